package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/config"
	"github.com/ibeckermayer/icebreaker/internal/relay"
	"github.com/ibeckermayer/icebreaker/internal/types"
	"github.com/ibeckermayer/icebreaker/internal/view"
)

// selectionFlags override the configured selection.
type selectionFlags struct {
	provider string
	style    string
	persona  string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "AI provider: claude|gemini (default from config)")
	cmd.Flags().StringVarP(&f.style, "style", "s", "", "conversation style: casual|flirty|witty|intellectual (default from config)")
	cmd.Flags().StringVar(&f.persona, "persona", "", "writer persona: male|female (default from config)")
}

func (f *selectionFlags) resolve(cfg config.SelectionConfig) (relay.Selection, error) {
	if f.provider != "" {
		cfg.Provider = f.provider
	}
	if f.style != "" {
		cfg.Style = f.style
	}
	if f.persona != "" {
		cfg.Persona = f.persona
	}
	sel, err := cfg.Parse()
	if err != nil {
		return relay.Selection{}, err
	}
	return relay.Selection{Provider: sel.Provider, Style: sel.Style, Persona: sel.Persona}, nil
}

// resolveActive is resolve with the provider last chosen through
// "config set" taking precedence over the config file default.
func (f *selectionFlags) resolveActive(cfg config.SelectionConfig, active types.ProviderID) (relay.Selection, error) {
	if f.provider == "" && active != "" {
		cfg.Provider = string(active)
	}
	return f.resolve(cfg)
}

// suggest loads the active profile and, when a provider is configured,
// generates suggestions for it. A profile without posts is rendered as is.
func suggest(ctx context.Context, r *relay.Relay, sel relay.Selection, logger *zap.Logger) (relay.State, error) {
	state := r.Activate(ctx)
	if state.Profile == nil || !state.Configured {
		return state, nil
	}

	if _, err := r.Generate(ctx, sel); err != nil {
		if !errors.Is(err, relay.ErrNothingToGenerate) {
			return state, fmt.Errorf("failed to generate suggestions: %w", err)
		}
		logger.Info("No posts to generate from", zap.String("handle", state.Handle))
	}
	return r.State(), nil
}

func newSuggestCmd(a *app) *cobra.Command {
	var (
		sel      selectionFlags
		open     bool
		maxPosts int
	)

	cmd := &cobra.Command{
		Use:   "suggest [profile-url]",
		Short: "Generate conversation starters for the profile in the active tab",
		Long: `Reads the X profile in the active browser tab (or opens profile-url first)
and asks the selected AI provider for three conversation starters.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Reject bad flags before a browser is started.
			if _, err := sel.resolve(a.cfg.Selection); err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := a.newRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			selection, err := sel.resolveActive(a.cfg.Selection, rt.relay.ActiveProvider(ctx))
			if err != nil {
				return err
			}

			if err := a.focus(ctx, rt, firstArg(args)); err != nil {
				return err
			}

			state, err := suggest(ctx, rt.relay, selection, a.logger)
			if err != nil {
				return err
			}
			return a.render(cmd, state, selection, maxPosts, open)
		},
	}

	sel.register(cmd)
	cmd.Flags().BoolVar(&open, "open", false, "also write an HTML page and open it")
	cmd.Flags().IntVar(&maxPosts, "show-posts", 0, "number of analyzed posts to list (-1 for all)")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	var maxPosts int

	cmd := &cobra.Command{
		Use:   "profile [profile-url]",
		Short: "Show the profile and posts extracted from the active tab",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.newRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := a.focus(ctx, rt, firstArg(args)); err != nil {
				return err
			}

			state := rt.relay.Activate(ctx)
			// Configured only decides whether to nag about keys here.
			state.Configured = true
			return a.render(cmd, state, relay.Selection{}, maxPosts, false)
		},
	}

	cmd.Flags().IntVar(&maxPosts, "show-posts", -1, "number of posts to list (-1 for all)")
	return cmd
}

func (a *app) render(cmd *cobra.Command, state relay.State, sel relay.Selection, maxPosts int, open bool) error {
	r, err := view.New()
	if err != nil {
		return err
	}
	if err := r.Text(cmd.OutOrStdout(), state, sel, maxPosts); err != nil {
		return err
	}
	if !open {
		return nil
	}

	cacheDir, err := config.CacheDir()
	if err != nil {
		return err
	}
	path, err := r.WriteHTML(filepath.Join(cacheDir, "view"), state, sel, maxPosts)
	if err != nil {
		return err
	}
	a.logger.Debug("Opening view", zap.String("path", path))
	return browser.OpenFile(path)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
