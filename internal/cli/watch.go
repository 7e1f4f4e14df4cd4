package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"go-publicist/internal/model"
	"go-publicist/internal/watch"
)

func newWatchCmd(o *options) *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically refresh platform status and history until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			if schedule == "" {
				schedule = e.cfg.Watch.Schedule
			}
			w, err := watch.New(watch.Config{Schedule: schedule, HistoryLimit: e.cfg.Watch.HistoryLimit}, e.core, e.notifier)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			w.Refresh(ctx)
			printTargets(cmd.OutOrStdout(), w.Snapshot())
			printHistory(cmd.OutOrStdout(), w.Latest())

			unregister := e.rec.OnHistoryRefresh(w.HistoryObserver())
			defer unregister()
			if err := w.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron spec or descriptor such as \"@every 30s\" (overrides WATCH.schedule)")
	return cmd
}

func sortTargets(ts []model.PublishTarget) []model.PublishTarget {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Platform < ts[j].Platform })
	return ts
}
