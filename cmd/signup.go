package cmd

import (
	"context"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/logger"
	"github.com/spigell/matchning/internal/pocketbase"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a Matchning.se account. The password is read like the login password",
	Run: func(cmd *cobra.Command, _ []string) {
		runSignup(cmd)
	},
}

func init() {
	rootCmd.AddCommand(signupCmd)

	signupCmd.Flags().String("email", "", "email of the new account. Default is pocketbase.identity")
	signupCmd.Flags().String("full-name", "", "your full name, shown to other users")
}

func runSignup(cmd *cobra.Command) {
	ctx := context.Background()

	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	email, _ := cmd.Flags().GetString("email")
	fullName, _ := cmd.Flags().GetString("full-name")

	user, err := signup(ctx, config, email, fullName, lg)
	if err != nil {
		lg.Fatal("signing up",
			zap.Error(err),
			zap.String("hint", "pass --email and --full-name, and set MATCHNING_PASSWORD_FILE"),
		)
	}

	lg.Info("account created",
		zap.String("user_id", user.ID),
		zap.String("hint", "set pocketbase.identity to log in, then run 'matchning upload <files>'"),
	)
}

// signup creates the account. An empty email falls back to the configured login identity.
func signup(ctx context.Context, config *Config, email, fullName string, lg *zap.Logger) (*pocketbase.User, error) {
	if strings.TrimSpace(email) == "" {
		email = config.PocketBase.Identity
	}

	password, err := loadPassword(config.PocketBase)
	if err != nil {
		return nil, err
	}

	client := newClient(ctx, config, lg, "")

	return client.CreateUser(pocketbase.NewUser{
		Email:    email,
		Password: password,
		FullName: fullName,
	})
}
