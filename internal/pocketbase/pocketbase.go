// Package pocketbase is a small client for the PocketBase REST API holding Matchning.se users.
package pocketbase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL            = "https://student-match-pb.cloud.spetsen.net"
	userAgent         = "spigell/matchning"
	defaultCollection = "users"
	// PocketBase allows up to 500, the exporter always used 50.
	defaultPerPage = 50
)

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	Collection string
	PerPage    int
}

// New returns a client for the given PocketBase instance. An empty baseURL falls back to the public Matchning.se backend.
func New(ctx context.Context, logger *zap.Logger, baseURL, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = apiURL
	}

	return &Client{
		ctx:    ctx,
		token:  strings.TrimSpace(token),
		APIURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:     logger,
		UserAgent:  userAgent,
		Collection: defaultCollection,
		PerPage:    defaultPerPage,
	}
}

// Authenticated reports whether the client carries a token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

func (c *Client) collection() string {
	if c.Collection == "" {
		return defaultCollection
	}
	return c.Collection
}
