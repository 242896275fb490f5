package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/ai"
	"github.com/spigell/matchning/internal/ai/gemini"
	"github.com/spigell/matchning/internal/candidates"
	"github.com/spigell/matchning/internal/filtering"
	"github.com/spigell/matchning/internal/logger"
	"github.com/spigell/matchning/internal/matching"
	"github.com/spigell/matchning/internal/pocketbase"
	"github.com/spigell/matchning/internal/report"
	"github.com/spigell/matchning/internal/secrets"
)

const (
	PromptShowMatches         = "Show matches"
	PromptDraftIntroduction   = "Draft an introduction"
	PromptAppendToExcludeFile = "Append all matches to exclude file"
	PromptMatchesToFile       = "Dump matches to file"
	PromptExit                = "Exit"
	PromptBack                = "back"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match your qualifications against every other user",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().BoolP("yes", "y", false, "print the matches and exit without asking")
	matchCmd.Flags().StringP("exclude-file", "e", "", "special file with candidates to exclude. Default is unset.")
	matchCmd.Flags().IntP("top", "n", 0, "show only the best N matches. 0 means all")
	matchCmd.Flags().String("rank-by", string(matching.RankByMain), "order matches by the main or the candidate percentage")
	matchCmd.Flags().Bool("deduplicate", false, "count repeated qualifications only once")
	matchCmd.Flags().StringSlice("skip-filter", nil, "filters to skip: minimum_match, excluded_candidates, exclude_file, top")

	viper.BindPFlag("exclude-file", matchCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("filters.top", matchCmd.Flags().Lookup("top"))
	viper.BindPFlag("match.rank-by", matchCmd.Flags().Lookup("rank-by"))
	viper.BindPFlag("match.deduplicate", matchCmd.Flags().Lookup("deduplicate"))
	viper.BindPFlag("filters.skip", matchCmd.Flags().Lookup("skip-filter"))
}

// session keeps what the interactive actions need.
type session struct {
	ctx        context.Context
	logger     *zap.Logger
	config     *Config
	client     *pocketbase.Client
	userID     string
	rankBy     matching.RankKey
	introducer ai.Introducer
}

func match(cmd *cobra.Command) {
	ctx := context.Background()

	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	lg.Info("starting the matchning", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	lg.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	client, userID, err := connect(ctx, config, lg)
	if err != nil {
		lg.Fatal(
			"connecting to PocketBase",
			zap.Error(err),
			zap.String("hint", connectHint),
		)
	}

	mainText, pool, err := candidates.New(client, lg).Assemble(userID)
	if err != nil {
		lg.Fatal("assembling candidates", zap.Error(err))
	}

	if strings.TrimSpace(mainText) == "" {
		lg.Info("exiting",
			zap.String("reason", "you have no qualifications uploaded"),
			zap.String("hint", "run 'matchning upload <files>' first"),
		)
		return
	}

	results := matching.Compute(mainText, pool, matchOptions(config.Match, lg)...)

	lg.Info("matching completed",
		zap.Int("candidates", pool.Len()),
		zap.Int("matched", results.Len()),
	)

	rankBy := matching.RankKey(config.Match.RankBy)
	steps := filterSteps(config.Filters.Skip, lg)
	results, err = filtering.Run(ctx, filterConfig(config, rankBy), filtering.Deps{Logger: lg}, steps, results)
	if err != nil {
		lg.Fatal("filtering failed", zap.Error(err))
	}

	if results.Len() == 0 {
		lg.Info("exiting", zap.String("reason", "no matches left after filters"))
		return
	}

	s := &session{
		ctx:    ctx,
		logger: lg,
		config: config,
		client: client,
		userID: userID,
		rankBy: rankBy,
	}

	s.introducer, err = prepareIntroducer(ctx, config.AI, lg)
	if err != nil {
		lg.Warn("skipping AI introductions", zap.Error(err))
	}

	if cmd.Flag("yes").Value.String() == "true" {
		if _, err := s.handleAction(PromptShowMatches, results); err != nil {
			lg.Fatal("exiting", zap.Error(err))
		}
		return
	}

	for {
		lg.Info("current list of matches", zap.Int("count", results.Len()))

		prompt := promptui.Select{
			Label: "What next?",
			Items: s.actions(results),
		}

		_, action, err := prompt.Run()
		if err != nil {
			lg.Fatal("exiting", zap.Error(err))
		}

		results, err = s.handleAction(action, results)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			lg.Fatal("exiting", zap.Error(err))
		}
	}
}

func matchOptions(cfg *MatchConfig, log *zap.Logger) []matching.Option {
	opts := []matching.Option{
		matching.WithLogger(log),
		matching.WithWorkers(cfg.Workers),
	}
	if cfg.Deduplicate {
		opts = append(opts, matching.WithDeduplication())
	}
	return opts
}

// filterSteps builds the default pipeline without the skipped filters and logs what will run.
func filterSteps(skip []string, lg *zap.Logger) []filtering.Filter {
	steps := filtering.Default()
	for _, name := range skip {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !filtering.DisableByName(steps, name, "skipped by configuration") {
			lg.Warn("unknown filter to skip", zap.String("name", name))
		}
	}

	for _, status := range filtering.Describe(steps) {
		fields := []zap.Field{
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
		}
		if status.Reason != "" {
			fields = append(fields, zap.String("reason", status.Reason))
		}
		lg.Debug("filter configured", fields...)
	}

	return steps
}

func filterConfig(config *Config, rankBy matching.RankKey) *filtering.Config {
	return &filtering.Config{
		MinimumMatch:          config.Filters.MinimumMatch,
		MinimumCandidateMatch: config.Filters.MinimumCandidateMatch,
		Exclude:               config.Filters.Exclude,
		ExcludeFile:           config.ExcludeFile,
		Top:                   config.Filters.Top,
		RankBy:                rankBy,
	}
}

func (s *session) actions(results *matching.Results) []string {
	items := []string{PromptShowMatches, PromptMatchesToFile}
	if s.introducer != nil {
		items = append(items, PromptDraftIntroduction)
	}
	if s.config.ExcludeFile != "" && results.Len() != 0 {
		items = append(items, PromptAppendToExcludeFile)
	}
	return append(items, PromptExit)
}

func (s *session) handleAction(action string, results *matching.Results) (*matching.Results, error) {
	switch action {
	case PromptShowMatches:
		return results, report.Table(os.Stdout, results, s.rankBy)
	case PromptMatchesToFile:
		filename, err := report.DumpToTmpFile(results)
		if err != nil {
			return results, fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("dumping result to file", zap.String("filename", filename))
		return results, nil
	case PromptAppendToExcludeFile:
		return s.appendToExcludeFile(results)
	case PromptDraftIntroduction:
		return results, s.draftIntroduction(results)
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return results, errExit
	default:
		return results, fmt.Errorf("invalid action: %s", action)
	}
}

func (s *session) appendToExcludeFile(results *matching.Results) (*matching.Results, error) {
	excludeFile := s.config.ExcludeFile

	excluded, err := filtering.ReadExcludeFile(excludeFile)
	if err != nil {
		return results, err
	}

	excluded.Append(filtering.ToExcluded(results, time.Now()))

	if err := excluded.ToFile(excludeFile); err != nil {
		return results, err
	}

	s.logger.Info("appended to exclude file", zap.String("filename", excludeFile))

	left, _ := results.Without(excluded.IDs())
	return left, nil
}

func (s *session) draftIntroduction(results *matching.Results) error {
	items := make([]string, 0, results.Len()+1)
	for _, result := range results.Ranked(s.rankBy) {
		items = append(items, report.Label(result))
	}

	candidatePrompt := promptui.Select{
		Label: "Choose a match and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := candidatePrompt.Run()
	if err != nil {
		return err
	}

	if selected == PromptBack {
		return nil
	}

	candidateID := strings.Split(selected, " ")[0]
	result := results.Get(candidateID)
	if result == nil {
		return fmt.Errorf("there is no such candidate id %s", candidateID)
	}

	me, err := s.client.GetUser(s.userID)
	if err != nil {
		return err
	}

	fromName := me.FullName
	if fromName == "" {
		fromName = matching.UnknownDisplayName
	}

	log := logger.WithFields(s.logger, logger.MatchFields(s.userID, candidateID)...)

	draft, err := s.introducer.Introduce(s.ctx, ai.Introduction{
		FromName:                 fromName,
		ToName:                   result.DisplayName,
		MainMatchPercentage:      matching.RoundPercentage(result.MainMatchPercentage),
		CandidateMatchPercentage: matching.RoundPercentage(result.CandidateMatchPercentage),
		CommonQualifications:     result.CommonQualifications,
	})
	if err != nil {
		log.Warn("drafting an introduction failed", zap.Error(err))
		return nil
	}

	log.Info("introduction drafted", zap.String("subject", draft.Subject))
	fmt.Fprintf(os.Stdout, "\n%s\n\n%s\n\n", draft.Subject, draft.Message)

	return nil
}

func prepareIntroducer(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Introducer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
	if err != nil {
		return nil, err
	}

	aiLogger := logger.WithFields(log, logger.AIFields("gemini", generator.Model())...)

	introducer := gemini.NewIntroducer(generator, cfg.Gemini.MaxLogLength, aiLogger)
	introducer.SetPromptOverrides(gemini.PromptOverrides{
		Tone:             cfg.Gemini.Tone,
		Language:         cfg.Gemini.Language,
		UserInstructions: cfg.Gemini.Instructions,
	})

	return introducer, nil
}
