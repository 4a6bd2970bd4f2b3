package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/render"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the principal commands act as",
	Long: `Displays the principal the repository sees for this configuration, and
whether commands use the local database or a syncpd endpoint.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.WithRepo(), runWhoami),
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

type whoamiInfo struct {
	Principal  string `json:"principal"`
	Repository string `json:"repository"`
}

func runWhoami(app *appctx.App, cmd *cobra.Command, args []string) error {
	principal, err := app.Repo.WhoAmI(ensureContext(cmd.Context()))
	if err != nil {
		return err
	}
	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	repo := app.Config.DBPath
	if app.Config.UseRemote() {
		repo = app.Config.Endpoint
	}
	info := whoamiInfo{Principal: principal, Repository: repo}
	return renderer.Render(render.Table{
		Headers: []string{"PRINCIPAL", "REPOSITORY"},
		Rows:    [][]string{{info.Principal, info.Repository}},
		Items:   []interface{}{info},
	})
}
