package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "matchning"
	envPrefix = "MATCHNING"
)

type Config struct {
	PocketBase  *PocketBaseConfig `mapstructure:"pocketbase"`
	UserID      string            `mapstructure:"user-id"`
	UserAgent   string            `mapstructure:"user-agent"`
	ExcludeFile string            `mapstructure:"exclude-file"`
	Match       *MatchConfig      `mapstructure:"match"`
	Filters     *FiltersConfig    `mapstructure:"filters"`
	AI          *AIConfig         `mapstructure:"ai"`
}

type PocketBaseConfig struct {
	URL          string `mapstructure:"url"`
	Collection   string `mapstructure:"collection"`
	PerPage      int    `mapstructure:"per-page"`
	TokenFile    string `mapstructure:"token-file"`
	Identity     string `mapstructure:"identity"`
	PasswordFile string `mapstructure:"password-file"`
}

type MatchConfig struct {
	Deduplicate bool   `mapstructure:"deduplicate"`
	Workers     int    `mapstructure:"workers"`
	RankBy      string `mapstructure:"rank-by"`
}

type FiltersConfig struct {
	MinimumMatch          float64  `mapstructure:"minimum-match"`
	MinimumCandidateMatch float64  `mapstructure:"minimum-candidate-match"`
	Exclude               []string `mapstructure:"exclude"`
	Top                   int      `mapstructure:"top"`
	Skip                  []string `mapstructure:"skip"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
	Tone         string `mapstructure:"tone"`
	Language     string `mapstructure:"language"`
	Instructions string `mapstructure:"instructions"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "matchning finds Matchning.se users whose qualifications overlap with yours",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"pocketbase.token-file":    "MATCHNING_TOKEN_FILE",
		"pocketbase.password-file": "MATCHNING_PASSWORD_FILE",
		"ai.gemini.api-key-file":   "GEMINI_API_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is matchning.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("user-id", "u", "", "PocketBase id of the user to match for. Default is the logged in user.")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
}

func initConfig() {
	// .env is optional. Values already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	// Config is needed only for the commands talking to PocketBase.
	if !pocketBaseCommandCalled() {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Everything can come from flags and the environment as well.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

func pocketBaseCommandCalled() bool {
	for _, c := range []*cobra.Command{matchCmd, uploadCmd, profileCmd, signupCmd, filesCmd} {
		if c.CalledAs() != "" {
			return true
		}
	}
	return false
}

// getConfig returns the merged configuration with every section present.
func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.PocketBase == nil {
		config.PocketBase = &PocketBaseConfig{}
	}
	if config.Match == nil {
		config.Match = &MatchConfig{}
	}
	if config.Filters == nil {
		config.Filters = &FiltersConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}
