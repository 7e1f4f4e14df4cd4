// Package cli is the command-line front end: it parses arguments, issues
// publish/test intents to the core and prints results. Notices go to the
// configured notifiers; command output goes to cmd.OutOrStdout().
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"go-publicist/internal/model"
)

// ErrFailed is returned when at least one target failed, so scripts get a
// non-zero exit status. The failure itself has already been notified.
var ErrFailed = errors.New("one or more targets failed")

type options struct {
	configPath string
	envFiles   []string
	groupsPath string
	baseURL    string
	simple     bool
	output     string
}

// NewRootCmd returns the root command of the publicist CLI.
func NewRootCmd() *cobra.Command {
	o := &options{}
	rootCmd := &cobra.Command{
		Use:           "publicist",
		Short:         "Publish stored posts to social platforms through the publish API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "settings.yaml", "path to settings.yaml (optional)")
	pf.StringSliceVar(&o.envFiles, "env-file", []string{".env"}, ".env files to load, later files win")
	pf.StringVar(&o.groupsPath, "groups", "groups.yaml", "path to groups.yaml used by batch --group")
	pf.StringVar(&o.baseURL, "api", "", "publish API base url (overrides API.BASE_URL)")
	pf.BoolVar(&o.simple, "simple", false, "keep target status in memory only")
	pf.StringVarP(&o.output, "output", "o", "text", "output format: text|json")

	rootCmd.AddCommand(newPlatformsCmd(o))
	rootCmd.AddCommand(newSetupCmd(o))
	rootCmd.AddCommand(newPublishCmd(o))
	rootCmd.AddCommand(newBatchCmd(o))
	rootCmd.AddCommand(newTestCmd(o))
	rootCmd.AddCommand(newHistoryCmd(o))
	rootCmd.AddCommand(newStatsCmd(o))
	rootCmd.AddCommand(newStatusCmd(o))
	rootCmd.AddCommand(newWatchCmd(o))
	return rootCmd
}

func (o *options) json() bool { return strings.EqualFold(o.output, "json") }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parsePostID(s string) (model.PostID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q: must be a positive integer", s)
	}
	return model.PostID(id), nil
}

func parsePlatform(s string) (model.PlatformID, error) {
	p := model.PlatformID(s).Normalize()
	if p == "" {
		return "", errors.New("platform must not be empty")
	}
	return p, nil
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
