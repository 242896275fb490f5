package cmd

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/logger"
	"github.com/spigell/matchning/internal/report"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List your uploaded qualification files",
	Run: func(_ *cobra.Command, _ []string) {
		files()
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func files() {
	ctx := context.Background()

	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	client, userID, err := connect(ctx, config, lg)
	if err != nil {
		lg.Fatal("connecting to PocketBase", zap.Error(err), zap.String("hint", connectHint))
	}

	user, err := client.GetUser(userID)
	if err != nil {
		lg.Fatal("getting files", zap.Error(err))
	}

	if len(user.FileJSON) == 0 && len(user.TxtFiles) == 0 {
		lg.Info("no files uploaded", zap.String("hint", "run 'matchning upload <files>' first"))
		return
	}

	if err := report.Files(os.Stdout, user, client.FileURL); err != nil {
		lg.Fatal("printing files", zap.Error(err))
	}
}
