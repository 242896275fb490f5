// Package report renders match results for people.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spigell/matchning/internal/matching"
	"github.com/spigell/matchning/internal/pocketbase"
)

// Table writes the results ranked by the given key as an aligned table.
func Table(w io.Writer, results *matching.Results, by matching.RankKey) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "#\tID\tNAME\tMAIN %\tCANDIDATE %\tCOMMON")
	for i, result := range results.Ranked(by) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%.1f\t%s\n",
			i+1,
			result.CandidateID,
			result.DisplayName,
			matching.RoundPercentage(result.MainMatchPercentage),
			matching.RoundPercentage(result.CandidateMatchPercentage),
			strings.Join(result.CommonQualifications, matching.Separator),
		)
	}

	return tw.Flush()
}

// Files writes the uploaded qualification files of a user and links to the attached originals.
// fileURL builds the download link of an attachment.
func Files(w io.Writer, user *pocketbase.User, fileURL func(*pocketbase.User, string) string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "FILE\tUPLOADED\tQUALIFICATIONS")
	for _, entry := range user.FileJSON {
		uploaded := "-"
		if !entry.UploadedAt.IsZero() {
			uploaded = entry.UploadedAt.UTC().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", entry.FileName, uploaded, len(matching.Tokenize(entry.Content)))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if len(user.TxtFiles) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\nATTACHMENTS")
	for _, name := range user.TxtFiles {
		fmt.Fprintf(w, "%s\t%s\n", name, fileURL(user, name))
	}

	return nil
}

// Profile writes the profile fields of a user.
func Profile(w io.Writer, user *pocketbase.User) error {
	age := "-"
	if user.Age > 0 {
		age = fmt.Sprint(user.Age)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range [][2]string{
		{"ID", user.ID},
		{"NAME", orDash(user.FullName)},
		{"EMAIL", orDash(user.Email)},
		{"AGE", age},
		{"GENDER", orDash(user.Gender)},
		{"BIO", orDash(user.Bio)},
		{"FILES", fmt.Sprint(len(user.FileJSON))},
	} {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Label is a single line description of a result, used for interactive selection.
func Label(result *matching.Result) string {
	return fmt.Sprintf("%s %s / %.1f%% / %.1f%%",
		result.CandidateID,
		result.DisplayName,
		matching.RoundPercentage(result.MainMatchPercentage),
		matching.RoundPercentage(result.CandidateMatchPercentage),
	)
}

// DumpToTmpFile writes the results keyed by candidate ID and returns the file name.
func DumpToTmpFile(results *matching.Results) (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results.Map()); err != nil {
		return "", err
	}
	return file.Name(), nil
}
