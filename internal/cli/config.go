package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/icebreaker/internal/config"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change settings and stored API keys",
	}

	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigSetCmd(a),
		newConfigResetCmd(a),
		newConfigPathCmd(),
		newConfigOpenCmd(),
	)
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active provider and masked API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.newRuntime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			stored, err := rt.creds.Load(cmd.Context())
			if err != nil {
				stored = types.ProviderConfig{}
			}
			printConfig(cmd.OutOrStdout(), a.cfg, stored)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config, stored types.ProviderConfig) {
	active := string(stored.Active)
	if active == "" {
		active = "(not configured)"
	}
	fmt.Fprintf(w, "Active provider: %s\n", active)
	for _, id := range []types.ProviderID{types.ProviderClaude, types.ProviderGemini} {
		fmt.Fprintf(w, "  %-7s %s\n", id+":", maskKey(stored.Credential(id)))
	}
	fmt.Fprintf(w, "Defaults: provider=%s style=%s persona=%s\n",
		cfg.Selection.Provider, cfg.Selection.Style, cfg.Selection.Persona)
	if cfg.Browser.RemoteURL != "" {
		fmt.Fprintf(w, "Browser: %s\n", cfg.Browser.RemoteURL)
	} else {
		fmt.Fprintf(w, "Browser: launched (headless=%t)\n", cfg.Browser.Headless)
	}
}

// maskKey keeps the first and last four characters of long keys.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(none)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <claude|gemini> <api-key>",
		Short: "Store an API key and make that provider active",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := types.ParseProvider(args[0])
			if err != nil {
				return err
			}

			rt, err := a.newRuntime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.relay.Configure(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s API key. %s is now the active provider.\n", id, id)
			return nil
		},
	}
}

func newConfigResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Erase all stored API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.newRuntime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.relay.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset.")
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where settings and data live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.ConfigPath()
			if err != nil {
				return err
			}
			dataPath, err := config.DataPath()
			if err != nil {
				return err
			}
			cacheDir, err := config.CacheDir()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "config: %s\n", cfgPath)
			fmt.Fprintf(w, "data:   %s\n", dataPath)
			fmt.Fprintf(w, "cache:  %s\n", cacheDir)
			return nil
		},
	}
}

func newConfigOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open [config|cache]",
		Short:     "Open the config file or the cache folder",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "cache"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "config"
			if len(args) == 1 {
				target = args[0]
			}

			var (
				path string
				err  error
			)
			if target == "cache" {
				path, err = config.CacheDir()
				if err == nil {
					err = os.MkdirAll(path, 0o700)
				}
			} else {
				path, err = config.ConfigPath()
			}
			if err != nil {
				return err
			}
			return browser.OpenFile(filepath.Clean(path))
		},
	}
}
