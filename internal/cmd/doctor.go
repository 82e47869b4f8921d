package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/brainboard/brainboard/internal/config"
	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/session"
)

// doctorAPITimeout bounds the API reachability check.
const doctorAPITimeout = 5 * time.Second

var doctorInitForce bool

// doctorResult is one line of the diagnostic summary.
type doctorResult struct {
	name   string
	ok     bool
	detail string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the configuration, the local store, the stored session and the API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		logger := observability.Logger()

		var results []doctorResult
		add := func(name string, ok bool, detail string) {
			results = append(results, doctorResult{name: name, ok: ok, detail: detail})
			if ok {
				logger.Debug("Check passed", zap.String("check", name), zap.String("detail", detail))
			} else {
				logger.Warn("Check failed", zap.String("check", name), zap.String("detail", detail))
			}
		}

		add("Go", true, runtime.Version()+" "+runtime.GOOS+"/"+runtime.GOARCH)

		version := crucible.GetVersion()
		add("Gofulmen", version.Gofulmen != "", "v"+version.Gofulmen+" (crucible v"+version.Crucible+")")

		if path := config.DefaultConfigPath(); path == "" {
			add("Config file", false, "config directory not resolved")
		} else if fileExists(path) {
			add("Config file", true, path)
		} else {
			add("Config file", true, path+" (not created; run 'brainboard doctor init')")
		}

		cfg, err := currentConfig()
		if err != nil {
			add("Configuration", false, err.Error())
			return writeDoctorSummary(cmd, results)
		}
		add("Configuration", true, "api "+cfg.API.BaseURL)

		be, err := openBackend(ctx, cfg.Store)
		if err != nil {
			add("Store", false, err.Error())
		} else {
			defer be.Close() // nolint:errcheck // best-effort cleanup
			add("Store", true, describeStore(cfg.Store))
			add("Session", true, describeStoredSession(ctx, be))
		}

		if err := checkAPI(ctx, cfg.API.BaseURL); err != nil {
			add("API", false, err.Error())
		} else {
			add("API", true, cfg.API.BaseURL+" reachable")
		}

		return writeDoctorSummary(cmd, results)
	},
}

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if fileExists(configPath) && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		contents, err := defaultConfigYAML()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, contents, 0600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.Logger().Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a config file (default: the user config file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if !fileExists(path) {
			return fmt.Errorf("config file not found: %s: %w", path, os.ErrNotExist)
		}

		v := viper.New()
		config.SetDefaults(v)
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := config.Load(v); err != nil {
			return err
		}

		observability.Logger().Info("Config is valid", zap.String("path", path))
		return nil
	},
}

// defaultConfigYAML renders every default setting as a config file.
func defaultConfigYAML() ([]byte, error) {
	v := viper.New()
	config.SetDefaults(v)
	out, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("render default config: %w", err)
	}
	return append([]byte("# brainboard configuration\n"), out...), nil
}

func writeDoctorSummary(cmd *cobra.Command, results []doctorResult) error {
	lines := []string{config.AppName + " doctor", ""}
	failed := 0
	for _, result := range results {
		mark := "ok  "
		if !result.ok {
			mark = "FAIL"
			failed++
		}
		lines = append(lines, fmt.Sprintf("[%s] %-13s %s", mark, result.name, result.detail))
	}
	lines = append(lines, "")
	if failed == 0 {
		lines = append(lines, "All checks passed.")
	} else {
		lines = append(lines, fmt.Sprintf("%d check(s) failed.", failed))
	}

	if _, err := fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(lines, "\n"), 0)); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d diagnostic check(s) failed", failed)
	}
	return nil
}

func describeStore(cfg config.StoreConfig) string {
	switch cfg.Driver {
	case config.DriverMemory:
		return "memory (nothing persists between runs)"
	case config.DriverRedis:
		return "redis " + cfg.RedisAddr
	}
	if strings.TrimSpace(cfg.URL) != "" {
		return "libsql " + cfg.URL
	}
	return "libsql " + cfg.Path
}

// describeStoredSession reports whether the durable namespace holds a token.
func describeStoredSession(ctx context.Context, be *backend) string {
	ok, err := session.HasStoredCredentials(ctx, be.durable)
	switch {
	case err != nil:
		return "unreadable: " + err.Error()
	case ok:
		return "credentials stored"
	default:
		return "signed out"
	}
}

// checkAPI treats any HTTP response as reachable.
func checkAPI(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, doctorAPITimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := (&http.Client{Timeout: session.DefaultTimeout}).Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
}
