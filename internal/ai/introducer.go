// Package ai defines what the command expects from a language model provider.
package ai

import "context"

// Introduction describes a match the current user wants to reach out to.
type Introduction struct {
	FromName                 string   `json:"fromName"`
	ToName                   string   `json:"toName"`
	MainMatchPercentage      float64  `json:"mainMatchPercentage"`
	CandidateMatchPercentage float64  `json:"candidateMatchPercentage"`
	CommonQualifications     []string `json:"commonQualifications"`
}

// Draft is a generated first message.
type Draft struct {
	Subject string
	Message string
	Raw     string
}

type Introducer interface {
	Introduce(ctx context.Context, in Introduction) (*Draft, error)
}
