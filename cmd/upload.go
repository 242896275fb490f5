package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/extract"
	"github.com/spigell/matchning/internal/logger"
	"github.com/spigell/matchning/internal/matching"
	"github.com/spigell/matchning/internal/pocketbase"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload qualification files (.txt, .pdf, .docx) to your profile",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		upload(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().BoolP("replace", "r", false, "replace all uploaded files instead of adding to them")
	uploadCmd.Flags().Bool("raw", false, "store the text as is, without turning lines into a comma separated list")
}

func upload(cmd *cobra.Command, paths []string) {
	ctx := context.Background()

	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	raw := cmd.Flag("raw").Value.String() == "true"

	entries, err := readQualificationFiles(paths, !raw, time.Now())
	if err != nil {
		lg.Fatal("reading files", zap.Error(err))
	}

	client, userID, err := connect(ctx, config, lg)
	if err != nil {
		lg.Fatal(
			"connecting to PocketBase",
			zap.Error(err),
			zap.String("hint", connectHint),
		)
	}

	if cmd.Flag("replace").Value.String() != "true" {
		current, err := client.GetUser(userID)
		if err != nil {
			lg.Fatal("getting current files", zap.Error(err))
		}
		entries = mergeFileEntries(current.FileJSON, entries)
	}

	user, err := client.UpdateFileJSON(userID, entries)
	if err != nil {
		lg.Fatal("uploading files", zap.Error(err))
	}

	lg.Info("qualifications uploaded",
		zap.String("user_id", user.ID),
		zap.Int("files", len(user.FileJSON)),
		zap.Int("qualifications", len(matching.Tokenize(user.QualificationText()))),
	)
}

// readQualificationFiles extracts the text of every file, keyed by base name.
func readQualificationFiles(paths []string, normalize bool, now time.Time) ([]pocketbase.FileEntry, error) {
	entries := make([]pocketbase.FileEntry, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		text, err := extract.Text(path, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		if normalize {
			text = extract.Normalize(text)
		}

		entries = append(entries, pocketbase.FileEntry{
			FileName:   filepath.Base(path),
			Content:    text,
			UploadedAt: now.UTC(),
		})
	}
	return entries, nil
}

// mergeFileEntries replaces entries with the same file name and appends the rest.
func mergeFileEntries(current, uploaded []pocketbase.FileEntry) []pocketbase.FileEntry {
	merged := make([]pocketbase.FileEntry, 0, len(current)+len(uploaded))
	index := make(map[string]int, len(current))

	for _, entry := range current {
		index[entry.FileName] = len(merged)
		merged = append(merged, entry)
	}

	for _, entry := range uploaded {
		if idx, ok := index[entry.FileName]; ok {
			merged[idx] = entry
			continue
		}
		index[entry.FileName] = len(merged)
		merged = append(merged, entry)
	}

	return merged
}
