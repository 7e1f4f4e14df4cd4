package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go-publicist/internal/core"
	"go-publicist/internal/groups"
	"go-publicist/internal/logx"
	"go-publicist/internal/model"
	"go-publicist/internal/watch"
)

func newPublishCmd(o *options) *cobra.Command {
	var showHistory bool
	cmd := &cobra.Command{
		Use:   "publish <post-id> <platform>",
		Short: "Publish a post to one platform",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			p, err := parsePlatform(args[1])
			if err != nil {
				return err
			}
			e, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			w, done := e.followHistory(showHistory)
			defer done()

			out, err := e.core.RequestPublish(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			if o.json() {
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			}
			if w != nil {
				printHistory(cmd.OutOrStdout(), w.Flush(cmd.Context()))
			}
			if !out.Success {
				return ErrFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showHistory, "show-history", false, "print the latest history page after publishing")
	return cmd
}

type skipView struct {
	Platform model.PlatformID `json:"platform"`
	Reason   string           `json:"reason"`
}

type batchView struct {
	model.BatchResult
	Skipped []skipView `json:"skipped,omitempty"`
}

func newBatchCmd(o *options) *cobra.Command {
	var (
		group       string
		showHistory bool
	)
	cmd := &cobra.Command{
		Use:   "batch <post-id> [platform...]",
		Short: "Publish a post to several platforms in one request",
		Long: "Publish a post to several platforms in one request.\n" +
			"Without explicit platforms the --group (default \"default\") from groups.yaml is used.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			var targets []model.PlatformID
			for _, a := range args[1:] {
				p, err := parsePlatform(a)
				if err != nil {
					return err
				}
				targets = append(targets, p)
			}
			if len(args) == 1 || cmd.Flags().Changed("group") {
				ps, err := o.resolveGroup(group)
				if err != nil {
					return err
				}
				targets = append(targets, ps...)
			}

			e, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			w, done := e.followHistory(showHistory)
			defer done()

			rep, err := e.core.RequestBatchPublish(cmd.Context(), id, targets)
			if err != nil && !errors.Is(err, core.ErrNothingToPublish) {
				return err
			}
			printBatch(cmd.OutOrStdout(), o.json(), rep)
			if err != nil {
				return err
			}
			if w != nil {
				printHistory(cmd.OutOrStdout(), w.Flush(cmd.Context()))
			}
			if rep.Result.FailureCount > 0 {
				return ErrFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", groups.DefaultGroup, "target group from groups.yaml")
	cmd.Flags().BoolVar(&showHistory, "show-history", false, "print the latest history page after publishing")
	return cmd
}

func newTestCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "test <platform>",
		Short: "Send a test payload to a platform webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePlatform(args[0])
			if err != nil {
				return err
			}
			e, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			out, err := e.core.RequestTest(cmd.Context(), p)
			if err != nil {
				return err
			}
			if o.json() {
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			}
			if !out.Success {
				return ErrFailed
			}
			return nil
		},
	}
}

func (o *options) resolveGroup(name string) ([]model.PlatformID, error) {
	g, err := groups.Load(o.groupsPath)
	if err != nil {
		return nil, err
	}
	ps, ok := g.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown group %q in %s", name, o.groupsPath)
	}
	return ps, nil
}

// followHistory 在需要时创建一个不启动定时任务的 watcher，并注册为历史刷新回调。
func (e *env) followHistory(enabled bool) (*watch.Watcher, func()) {
	if !enabled {
		return nil, func() {}
	}
	w, err := watch.New(watch.Config{Schedule: e.cfg.Watch.Schedule, HistoryLimit: e.cfg.Watch.HistoryLimit}, e.core, nil)
	if err != nil {
		logx.Warnf("history follow disabled: %v", err)
		return nil, func() {}
	}
	return w, e.rec.OnHistoryRefresh(w.HistoryObserver())
}

func printBatch(w io.Writer, asJSON bool, rep core.BatchReport) {
	if asJSON {
		v := batchView{BatchResult: rep.Result}
		for _, s := range rep.Skipped {
			v.Skipped = append(v.Skipped, skipView{Platform: s.Platform, Reason: s.Reason.Error()})
		}
		_ = writeJSON(w, v)
		return
	}
	for _, s := range rep.Skipped {
		fmt.Fprintf(w, " - %-12s skipped (%v)\n", s.Platform, s.Reason)
	}
	for _, p := range rep.Result.Platforms() {
		o := rep.Result.Outcomes[p]
		detail := o.PostURL
		if !o.Success {
			detail = o.ErrorMessage
		}
		fmt.Fprintf(w, " %s %-12s %s\n", mark(o.Success), p, detail)
	}
}
