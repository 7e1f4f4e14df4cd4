package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"go-publicist/internal/export"
	"go-publicist/internal/model"
	"go-publicist/internal/publish"
)

func newPlatformsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "Show which platforms have a configured webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			targets := e.core.Platforms(cmd.Context())
			if o.json() {
				return writeJSON(cmd.OutOrStdout(), targets)
			}
			printTargets(cmd.OutOrStdout(), targets)
			return nil
		},
	}
}

func printTargets(w io.Writer, targets []model.PublishTarget) {
	if len(targets) == 0 {
		fmt.Fprintln(w, "No platforms reported (is the publish API reachable?)")
		return
	}
	for _, t := range targets {
		state := "configured"
		if !t.Configured {
			state = "not configured"
		}
		fmt.Fprintf(w, " %s %-12s %s\n", mark(t.Configured), t.Platform, state)
	}
}

func newSetupCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "setup <platform>",
		Short: "Show webhook setup instructions for a platform",
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
			g, err := e.core.Setup(cmd.Context(), p)
			if err != nil {
				return err
			}
			if o.json() {
				return writeJSON(cmd.OutOrStdout(), g)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s webhook setup\n", model.DisplayName(g.Platform))
			for i, s := range g.Steps {
				fmt.Fprintf(out, " %d. %s\n", i+1, s)
			}
			fmt.Fprintf(out, "Environment variable: %s\n", g.EnvVar)
			fmt.Fprintf(out, "Example: %s=%s\n", g.EnvVar, g.ExampleWebhook)
			fmt.Fprintf(out, "Zapier: %s\n", g.ZapierURL)
			return nil
		},
	}
}

func newHistoryCmd(o *options) *cobra.Command {
	var (
		platform    string
		limit       int
		successOnly bool
		exportPath  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past publish attempts, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			recs := e.core.History(cmd.Context(), publish.Filter{
				Platform:    model.PlatformID(platform).Normalize(),
				Limit:       limit,
				SuccessOnly: successOnly,
			})
			if exportPath != "" {
				if err := export.ToJSON(exportPath, recs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", len(recs), exportPath)
			}
			if o.json() {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			printHistory(cmd.OutOrStdout(), recs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "only this platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", publish.DefaultHistoryLimit, "maximum number of records (0 = API default)")
	cmd.Flags().BoolVar(&successOnly, "success-only", false, "only successful attempts")
	cmd.Flags().StringVar(&exportPath, "export", "", "also write the records to this JSON file")
	return cmd
}

func printHistory(w io.Writer, recs []model.HistoryRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No publishing history")
		return
	}
	for _, r := range recs {
		when := "-"
		if !r.PublishedAt.IsZero() {
			when = r.PublishedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, " %s %s  post #%-6d %-12s %s\n", mark(r.Success), when, r.PostID, r.Platform, r.PostURL)
	}
}

func newStatsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show publishing statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			st, err := e.core.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if o.json() {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total: %d  successful: %d  failed: %d  success rate: %.1f%%\n",
				st.TotalPublished, st.Successful, st.Failed, st.SuccessRate)
			ps := make([]model.PublishTarget, 0, len(st.ByPlatform))
			for p := range st.ByPlatform {
				ps = append(ps, model.PublishTarget{Platform: p})
			}
			for _, p := range sortTargets(ps) {
				fmt.Fprintf(out, " %-12s %d\n", p.Platform, st.ByPlatform[p.Platform])
			}
			if st.LastPublished != nil {
				fmt.Fprintf(out, "Last published: %s\n", st.LastPublished.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newStatusCmd(o *options) *cobra.Command {
	var cleanDays int
	cmd := &cobra.Command{
		Use:   "status [post-id]",
		Short: "Show locally tracked target status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id model.PostID
			if len(args) == 1 {
				var err error
				if id, err = parsePostID(args[0]); err != nil {
					return err
				}
			}
			e, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()
			if cleanDays > 0 && e.db != nil {
				n, err := e.db.CleanOlderThan(ctx, cleanDays)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d stale entries\n", n)
			}
			entries, err := e.core.Status(ctx, id)
			if err != nil {
				return err
			}
			if o.json() {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No tracked targets")
				return nil
			}
			for _, en := range entries {
				line := fmt.Sprintf(" post #%-6d %-12s %-10s", en.PostID, en.Platform, en.Status)
				switch {
				case en.PostURL != "":
					line += " " + en.PostURL
				case en.Message != "":
					line += " " + strconv.Quote(en.Message)
				}
				fmt.Fprintln(out, line)
			}
			if e.db != nil && id == 0 {
				counts, err := e.db.CountByStatus(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "idle=%d publishing=%d published=%d failed=%d\n",
					counts[model.StatusIdle], counts[model.StatusPublishing], counts[model.StatusPublished], counts[model.StatusFailed])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&cleanDays, "clean-days", 0, "remove non-published entries older than N days first")
	return cmd
}
