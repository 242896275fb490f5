package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/pocketbase"
	"github.com/spigell/matchning/internal/secrets"
)

var errNoUser = errors.New("user id is not known")

const connectHint = "set user-id and MATCHNING_TOKEN_FILE, or pocketbase.identity with MATCHNING_PASSWORD_FILE"

// connect builds the PocketBase client and works out whose qualifications are matched.
func connect(ctx context.Context, config *Config, logger *zap.Logger) (*pocketbase.Client, string, error) {
	pb := config.PocketBase

	tokenSource := secrets.Source{
		Name: "pocketbase token",
		File: pb.TokenFile,
		Env:  "MATCHNING_TOKEN",
	}

	var token string
	if tokenSource.Configured() {
		var err error
		token, err = secrets.Load(tokenSource)
		if err != nil {
			return nil, "", err
		}
	}

	client := newClient(ctx, config, logger, token)

	userID := strings.TrimSpace(config.UserID)

	if !client.Authenticated() && strings.TrimSpace(pb.Identity) != "" {
		password, err := loadPassword(pb)
		if err != nil {
			return nil, "", err
		}

		user, err := client.AuthWithPassword(pb.Identity, password)
		if err != nil {
			return nil, "", err
		}

		logger.Info("logged in to PocketBase", zap.String("user_id", user.ID))

		if userID == "" {
			userID = user.ID
		}
	}

	// A bare token does not say whose it is.
	if userID == "" && client.Authenticated() {
		user, err := client.AuthRefresh()
		if err != nil {
			return nil, "", fmt.Errorf("resolving the user of the token: %w", err)
		}

		logger.Debug("resolved user from token", zap.String("user_id", user.ID))
		userID = user.ID
	}

	if userID == "" {
		return nil, "", errNoUser
	}

	return client, userID, nil
}

func newClient(ctx context.Context, config *Config, logger *zap.Logger, token string) *pocketbase.Client {
	pb := config.PocketBase

	client := pocketbase.New(ctx, logger, pb.URL, token)
	if pb.Collection != "" {
		client.Collection = pb.Collection
	}
	if pb.PerPage > 0 {
		client.PerPage = pb.PerPage
	}
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	return client
}

func loadPassword(pb *PocketBaseConfig) (string, error) {
	return secrets.Load(secrets.Source{
		Name: "pocketbase password",
		File: pb.PasswordFile,
		Env:  "MATCHNING_PASSWORD",
	})
}
