// Package cli implements the icebreaker command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/config"
	"github.com/ibeckermayer/icebreaker/internal/generator"
	"github.com/ibeckermayer/icebreaker/internal/generator/providers"
	"github.com/ibeckermayer/icebreaker/internal/logger"
	"github.com/ibeckermayer/icebreaker/internal/store"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

// app is the state shared by every command, filled in by setup.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd returns the root command for the icebreaker CLI
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "icebreaker",
		Short:         "Conversation starters for the X profile open in your browser",
		Long:          "icebreaker reads the X profile shown in your browser and asks Claude or Gemini for casual opening lines.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is <user config dir>/icebreaker/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newSuggestCmd(a))
	rootCmd.AddCommand(newProfileCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newLogoutCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newBotTestCmd(a))

	return rootCmd
}

func (a *app) setup() error {
	// .env is optional; it only seeds the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if a.configPath != "" {
		if err := os.Setenv(config.EnvConfigPath, a.configPath); err != nil {
			return err
		}
	}

	cfg, created, err := config.LoadOrCreate()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := logger.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development}
	if a.verbose {
		logCfg.Level = "debug"
	}
	a.logger, err = logger.New(logCfg)
	if err != nil {
		return err
	}

	if created {
		path, _ := config.ConfigPath()
		a.logger.Info("Created default config", zap.String("path", path))
	}
	return nil
}

func (a *app) openStore() (*store.Store, error) {
	path, err := config.DataPath()
	if err != nil {
		return nil, err
	}
	return store.New(path)
}

// providerOptions maps the config onto provider tuning.
func (a *app) providerOptions() (generator.Options, error) {
	claude := a.cfg.Providers.Claude
	gemini := a.cfg.Providers.Gemini

	opts := generator.Options{
		Claude: providers.AnthropicConfig{
			Model:       claude.Model,
			MaxTokens:   claude.MaxTokens,
			Temperature: temperature(claude.Temperature),
			BaseURL:     claude.BaseURL,
		},
		Gemini: providers.GeminiConfig{
			Model:       gemini.Model,
			MaxTokens:   gemini.MaxTokens,
			Temperature: temperature(gemini.Temperature),
			BaseURL:     gemini.BaseURL,
		},
	}

	if a.cfg.Debug.SaveExchanges {
		cacheDir, err := config.CacheDir()
		if err != nil {
			return generator.Options{}, err
		}
		opts.Recorder = store.NewExchangeLog(filepath.Join(cacheDir, "llm"), a.logger)
	}
	return opts, nil
}

func temperature(t float64) *float64 {
	if t <= 0 {
		return nil
	}
	return &t
}

func (a *app) providerFactory() (func(types.ProviderID) (generator.Provider, error), error) {
	opts, err := a.providerOptions()
	if err != nil {
		return nil, err
	}
	return func(id types.ProviderID) (generator.Provider, error) {
		return generator.New(id, opts)
	}, nil
}
