package cmd

import (
	"path/filepath"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/config"
	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/output"
)

var (
	cfgFile      string
	verbose      bool
	apiURL       string
	outputFormat string

	// appConfig is decoded once initConfig has merged every source.
	appConfig *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "BrainBoard feed client",
	Long: `brainboard - a session client for the BrainBoard feed API.

Sign in, browse and post to the feed, upload files and search from the
terminal. Credentials are stored encoded in the local store and refreshed
automatically while a command runs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Commands run with telemetry off. mock-serve installs a real system.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/brainboard/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output-format", "o", string(output.FormatTable), "Output format: table|json|yaml|markdown")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))
}

// initConfig merges defaults, the config file, .env and the environment.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	v := viper.GetViper()
	config.SetDefaults(v)

	if loaded, err := config.LoadDotEnv(".env"); err != nil {
		observability.CLILogger.Warn("Failed to load .env file", zap.Error(err))
	} else if len(loaded) > 0 {
		observability.CLILogger.Debug("Loaded environment file", zap.Strings("paths", loaded))
	}
	config.BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if dir := config.DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(filepath.Join(".", "config"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err == nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	} else if cfgFile != "" {
		ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Failed to read config file", err)
	} else {
		observability.CLILogger.Warn("Error reading config file", zap.Error(err))
	}

	cfg, err := config.Load(v)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
	}
	appConfig = cfg
}

// currentConfig returns the loaded configuration, loading defaults when a
// command runs without initConfig (tests).
func currentConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)
	return config.Load(v)
}
