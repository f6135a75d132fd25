package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/browser"
)

const botTestURL = "https://bot.sannysoft.com"

// newBotTestCmd opens a fingerprint audit page with the same stealth
// options used for profile pages.
func newBotTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "bot-test",
		Short:  "Open a bot-detection audit page in the stealth browser",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Info("Opening audit page with stealth browser options", zap.String("url", botTestURL))

			s, err := browser.Launch(cmd.Context(), browser.LaunchOptions{
				Headless:     false,
				PollInterval: a.cfg.Browser.PollInterval(),
			}, a.logger)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.Open(cmd.Context(), botTestURL); err != nil {
				return fmt.Errorf("failed to navigate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to close the browser...")
			_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			return nil
		},
	}
}
