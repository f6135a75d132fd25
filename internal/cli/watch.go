package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/icebreaker/internal/relay"
	"github.com/ibeckermayer/icebreaker/internal/scheduler"
	"github.com/ibeckermayer/icebreaker/internal/view"
)

const watchJob = "watch-active-tab"

func newWatchCmd(a *app) *cobra.Command {
	var (
		sel      selectionFlags
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the active tab and suggest openers whenever a new profile shows up",
		Long: `Polls the active tab of an attached browser on a cron schedule. When the tab
shows a different X profile than last time, the profile is fetched and new
suggestions are printed. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Browser.RemoteURL == "" {
				return errors.New("watch needs browser.remote_url pointing at your running browser")
			}
			if _, err := sel.resolve(a.cfg.Selection); err != nil {
				return err
			}
			if schedule == "" {
				schedule = a.cfg.Watch.Schedule
			}
			loc, err := a.cfg.Watch.Location()
			if err != nil {
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

			r, err := view.New()
			if err != nil {
				return err
			}

			w := &watcher{
				relay:  rt.relay,
				render: func(state relay.State) error { return r.Text(cmd.OutOrStdout(), state, selection, 0) },
				sel:    selection,
				logger: a.logger,
			}

			s := scheduler.New(loc, a.logger)
			if err := s.AddJob(watchJob, schedule, w.tick); err != nil {
				return err
			}
			if err := s.RunNow(watchJob, w.tick); err != nil {
				a.logger.Warn("Initial check failed", zap.Error(err))
			}

			s.Start()
			a.logger.Info("Watching active tab", zap.String("schedule", schedule))
			<-ctx.Done()
			<-s.Stop().Done()
			return nil
		},
	}

	sel.register(cmd)
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule for tab checks (default from config)")
	return cmd
}

// watcher re-runs the relay when the active profile changes.
type watcher struct {
	relay  *relay.Relay
	render func(relay.State) error
	sel    relay.Selection
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func (w *watcher) tick(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := w.relay.Activate(ctx)
	if state.Handle == w.last {
		return nil
	}
	w.last = state.Handle
	if state.Handle == "" {
		w.logger.Debug("Active tab is not a profile")
		return nil
	}

	if state.Configured {
		if _, err := w.relay.Generate(ctx, w.sel); err != nil && !errors.Is(err, relay.ErrNothingToGenerate) {
			return fmt.Errorf("failed to generate for @%s: %w", state.Handle, err)
		}
		state = w.relay.State()
	}
	return w.render(state)
}
