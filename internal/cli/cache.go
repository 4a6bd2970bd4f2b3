package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/cache"
	"github.com/lherron/syncp/internal/render"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local file handle cache",
	Long: `The cache maps file handle ids to local files holding their content. When a
copy creates a new handle for cached content, the new handle is added to the
cache pointing at the same file.`,
}

var cacheAddCmd = &cobra.Command{
	Use:   "add <file-handle-id> <path>",
	Short: "Record the local file holding a file handle's content",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runCacheAdd),
}

var cacheLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List cached file handles",
	Args:    cobra.NoArgs,
	RunE:    appctx.WithApp(appctx.DefaultOptions(), runCacheLs),
}

var cacheAddMD5 string

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheAddCmd)
	cacheCmd.AddCommand(cacheLsCmd)

	cacheAddCmd.Flags().StringVar(&cacheAddMD5, "md5", "", "Content MD5 of the file")
}

func runCacheAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}
	entry, err := app.Cache.Add(ensureContext(cmd.Context()), args[0], args[1], cacheAddMD5)
	if err != nil {
		return err
	}
	return renderCacheEntries(renderer, []cache.Entry{*entry})
}

func runCacheLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}
	entries, err := app.Cache.List(ensureContext(cmd.Context()))
	if err != nil {
		return err
	}
	return renderCacheEntries(renderer, entries)
}

func renderCacheEntries(r *render.Renderer, entries []cache.Entry) error {
	t := render.Table{Headers: []string{"FILE HANDLE", "MD5", "MODIFIED", "PATH"}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			e.FileHandleID,
			optionalString(e.ContentMD5),
			e.ModifiedAt,
			e.Path,
		})
		t.Items = append(t.Items, e)
	}
	return r.Render(t)
}
