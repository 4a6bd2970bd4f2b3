package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/cursor"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/events"
	"github.com/lherron/syncp/internal/render"
)

var logCmd = &cobra.Command{
	Use:   "log [entity-id]",
	Short: "Show the copy journal",
	Long: `Show events from the local journal: copied and skipped entities, copied
wikis and metadata changes. Nothing a copy creates is rolled back on failure;
this journal is the record of what was created.

Examples:
  syncp log                               # Recent events
  syncp log syn12                         # Events about syn12
  syncp log --type entity.skipped         # Only skipped entities
  syncp log --since 2026-10-01 -o json
  syncp log --limit 20 --cursor <cursor>  # Next page
`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runLog),
}

var (
	logSince  string
	logTypes  string
	logLimit  int
	logCursor string
)

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().StringVar(&logSince, "since", "", "Show events since date/time (YYYY-MM-DD or RFC3339)")
	logCmd.Flags().StringVar(&logTypes, "type", "", "Event types to show (comma-separated)")
	logCmd.Flags().IntVar(&logLimit, "limit", 50, "Limit number of events (0 = unlimited)")
	logCmd.Flags().StringVar(&logCursor, "cursor", "", "Pagination cursor from previous page")
}

func runLog(app *appctx.App, cmd *cobra.Command, args []string) error {
	filter := events.Filter{Limit: logLimit}
	if len(args) == 1 {
		entityID, _, err := parseEntityArg(args[0])
		if err != nil {
			return err
		}
		filter.ResourceID = entityID
	}
	for _, t := range strings.Split(logTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter.EventTypes = append(filter.EventTypes, t)
		}
	}
	if logSince != "" {
		since, err := parseTime(logSince)
		if err != nil {
			return err
		}
		filter.Since = since
	}

	scope := filter.ResourceID + "|" + strings.Join(filter.EventTypes, ",") + "|" + logSince
	if logCursor != "" {
		c, err := cursor.Decode(logCursor, scope)
		if err != nil {
			return err
		}
		filter.AfterID = c.LastID
	}

	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	evts, err := events.List(ensureContext(cmd.Context()), app.DB.DB, filter)
	if err != nil {
		return err
	}

	t := render.Table{Headers: []string{"ID", "TIME", "PRINCIPAL", "EVENT", "RESOURCE", "PAYLOAD"}}
	for _, e := range evts {
		t.Rows = append(t.Rows, []string{
			fmt.Sprint(e.ID),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			deref(e.Principal),
			e.EventType,
			deref(e.ResourceID),
			deref(e.Payload),
		})
		t.Items = append(t.Items, e)
	}
	if err := renderer.Render(t); err != nil {
		return err
	}

	// A full page may have more after it.
	if logLimit > 0 && len(evts) == logLimit {
		next, err := cursor.New(evts[len(evts)-1].ID, scope).Encode()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "next cursor: %s\n", next)
	}
	return nil
}

// parseTime accepts YYYY-MM-DD or RFC3339
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewValueError("invalid time %q: want YYYY-MM-DD or RFC3339", s)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
