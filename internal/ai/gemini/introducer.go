package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/ai"
	"github.com/spigell/matchning/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

var (
	//go:embed prompt.md
	promptTemplate string

	//go:embed response.schema.json
	responseSchema string
)

const (
	defaultMaxLogLength     = 200
	defaultTone             = "Friendly"
	defaultLanguage         = "Swedish"
	maxUserInstructionRunes = 500
	maxSingleLineRunes      = 80
)

// PromptOverrides customizes the generated message.
type PromptOverrides struct {
	Tone             string
	Language         string
	UserInstructions string
}

type Introducer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

func NewIntroducer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Introducer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Introducer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (i *Introducer) SetPromptOverrides(overrides PromptOverrides) {
	i.overrides = overrides
}

// Introduce drafts the first message from in.FromName to in.ToName.
func (i *Introducer) Introduce(ctx context.Context, in ai.Introduction) (*ai.Draft, error) {
	if i.generator == nil {
		return nil, errors.New("content generator is required")
	}
	if len(in.CommonQualifications) == 0 {
		return nil, errors.New("introduction needs at least one common qualification")
	}

	payload, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal introduction: %w", err)
	}

	system := buildPrompt(i.overrides)
	message := string(payload)

	i.logger.Debug("gemini generate content request",
		zap.String("to", in.ToName),
		zap.Int("prompt_length", utf8.RuneCountInString(system)+utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, i.maxLogLen)),
	)

	raw, err := i.generator.GenerateContent(ctx, system, message)
	if err != nil {
		return nil, err
	}

	i.logger.Debug("gemini generate content response",
		zap.String("to", in.ToName),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, i.maxLogLen)),
	)

	draft, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	draft.Raw = raw
	return draft, nil
}

func buildPrompt(o PromptOverrides) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Tone: {{TONE}}\nLanguage: {{LANGUAGE}}\nInstructions:\n{{USER_INSTRUCTIONS}}\n\nJSON Response:"
	}

	tone := singleLine(o.Tone)
	if tone == "" {
		tone = defaultTone
	}

	language := singleLine(o.Language)
	if language == "" {
		language = defaultLanguage
	}

	replacer := strings.NewReplacer(
		"{{TONE}}", tone,
		"{{LANGUAGE}}", language,
		"{{USER_INSTRUCTIONS}}", instructionsBlock(o.UserInstructions),
	)
	return replacer.Replace(template)
}

// singleLine collapses whitespace, neutralizes section markers and caps the length.
func singleLine(s string) string {
	s = neutralize(strings.Join(strings.Fields(s), " "))
	return truncateRunes(s, maxSingleLineRunes)
}

func instructionsBlock(s string) string {
	s = truncateRunes(strings.TrimSpace(s), maxUserInstructionRunes)

	lines := make([]string, 0)
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		line = neutralize(strings.Join(strings.Fields(line), " "))
		if line != "" {
			lines = append(lines, "  - "+line)
		}
	}

	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}

// neutralize keeps user text from opening new prompt sections.
func neutralize(s string) string {
	return strings.NewReplacer("[", "(", "]", ")", "{{", "(", "}}", ")").Replace(s)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func parseResponse(raw string) (*ai.Draft, error) {
	cleaned := extractJSON(raw)

	if err := validateResponse(cleaned); err != nil {
		return nil, err
	}

	var data struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	draft := &ai.Draft{
		Subject: strings.TrimSpace(data.Subject),
		Message: strings.TrimSpace(data.Message),
	}

	if draft.Message == "" {
		return nil, errors.New("gemini response has no message")
	}

	return draft, nil
}

func validateResponse(cleaned string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(responseSchema),
		gojsonschema.NewStringLoader(cleaned),
	)
	if err != nil {
		return fmt.Errorf("parse gemini response: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, field+": "+desc.Description())
	}

	return fmt.Errorf("gemini response does not match schema: %s", strings.Join(problems, "; "))
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
