package cmd

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/logger"
	"github.com/spigell/matchning/internal/pocketbase"
	"github.com/spigell/matchning/internal/report"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile, or change it with --bio, --age and --gender",
	Run: func(cmd *cobra.Command, _ []string) {
		profile(cmd)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	addProfileFlags(profileCmd)
}

func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("bio", "", "a short bio about yourself")
	cmd.Flags().Int("age", 0, "your age")
	cmd.Flags().String("gender", "", "your gender")
}

func profile(cmd *cobra.Command) {
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

	user, err := showOrUpdateProfile(cmd, client, userID)
	if err != nil {
		lg.Fatal("profile", zap.Error(err))
	}

	if err := report.Profile(os.Stdout, user); err != nil {
		lg.Fatal("printing the profile", zap.Error(err))
	}
}

// showOrUpdateProfile updates the record when any profile flag is given and returns the current record otherwise.
func showOrUpdateProfile(cmd *cobra.Command, client *pocketbase.Client, userID string) (*pocketbase.User, error) {
	changes := profileFromFlags(cmd)
	if changes.Bio == nil && changes.Age == nil && changes.Gender == nil {
		return client.GetUser(userID)
	}

	return client.UpdateProfile(userID, changes)
}

func profileFromFlags(cmd *cobra.Command) pocketbase.Profile {
	var changes pocketbase.Profile

	flags := cmd.Flags()
	if flags.Changed("bio") {
		bio, _ := flags.GetString("bio")
		bio = strings.TrimSpace(bio)
		changes.Bio = &bio
	}
	if flags.Changed("age") {
		age, _ := flags.GetInt("age")
		changes.Age = &age
	}
	if flags.Changed("gender") {
		gender, _ := flags.GetString("gender")
		gender = strings.TrimSpace(gender)
		changes.Gender = &gender
	}

	return changes
}
