// Package candidates turns PocketBase user records into the inputs of the matcher.
package candidates

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/matching"
	"github.com/spigell/matchning/internal/pocketbase"
)

// ErrNoCurrentUser is returned when there is nobody to match for.
var ErrNoCurrentUser = errors.New("current user is not set")

// UserSource is the part of the PocketBase client the assembler needs.
type UserSource interface {
	GetUser(id string) (*pocketbase.User, error)
	ListUsers() ([]*pocketbase.User, error)
}

type Assembler struct {
	Source UserSource
	Logger *zap.Logger
}

func New(source UserSource, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{Source: source, Logger: logger}
}

// Assemble returns the current user's qualification text and a pool of every other user.
func (a *Assembler) Assemble(currentID string) (string, *matching.Pool, error) {
	currentID = strings.TrimSpace(currentID)
	if currentID == "" {
		return "", nil, ErrNoCurrentUser
	}

	if a.Source == nil {
		return "", nil, errors.New("user source is required")
	}

	current, err := a.Source.GetUser(currentID)
	if err != nil {
		return "", nil, fmt.Errorf("fetch current user: %w", err)
	}

	users, err := a.Source.ListUsers()
	if err != nil {
		return "", nil, fmt.Errorf("fetch candidates: %w", err)
	}

	pool := matching.NewPool()
	skipped := 0
	for _, user := range users {
		if user == nil || user.ID == currentID {
			continue
		}

		err := pool.Add(matching.Candidate{
			ID:             user.ID,
			DisplayName:    user.FullName,
			Qualifications: user.QualificationText(),
		})
		if errors.Is(err, matching.ErrDuplicateCandidate) {
			// Records can shift between pages while listing.
			skipped++
			continue
		}
		if err != nil {
			return "", nil, err
		}
	}

	a.Logger.Info("candidate pool assembled",
		zap.String("user_id", currentID),
		zap.Int("users", len(users)),
		zap.Int("candidates", pool.Len()),
		zap.Int("duplicates_skipped", skipped),
		zap.Int("own_files", len(current.FileJSON)),
	)

	return current.QualificationText(), pool, nil
}
