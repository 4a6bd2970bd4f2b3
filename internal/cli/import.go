package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/manifest"
	"github.com/lherron/syncp/internal/render"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Create an entity tree from a YAML manifest",
	Long: `Create projects, folders, files, links, tables and wikis described by a YAML
manifest. Links and wikis are created last so they can refer to any path in
the manifest, and wiki markdown may use ${path} placeholders that expand to
the created entity ids.

Example manifest:

  projects:
    - project: Source
      children:
        - folder: data
          children:
            - file: raw.csv
              content_type: text/csv
          wiki:
            title: Data
            markdown: See ${Source/data/raw.csv}
`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.WithRepo(), runImport),
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(app *appctx.App, cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	res, err := manifest.Apply(ensureContext(cmd.Context()), app.Repo, m, app.Log)
	if res != nil {
		t := render.Table{Headers: []string{"PATH", "ID"}}
		for _, p := range res.Order {
			t.Rows = append(t.Rows, []string{p, res.IDs[p]})
			t.Items = append(t.Items, map[string]string{"path": p, "id": res.IDs[p]})
		}
		if rerr := renderer.Render(t); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
