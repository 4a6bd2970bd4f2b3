package cli

import (
	"fmt"
	"io"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/render"
	"github.com/lherron/syncp/internal/treecopy"
)

var copyWikiCmd = &cobra.Command{
	Use:   "copy-wiki <source-owner> <destination-owner>",
	Short: "Copy the wiki of one entity to another",
	Long: `Copy the wiki page tree of an entity to another entity.

Pages are created parent-first. Links between copied pages and mentions of the
source owner are rewritten to their destination ids. Use --map to rewrite
mentions of other entities, for example ones copied earlier with cp.

Examples:
  syncp copy-wiki syn12 syn40
  syncp copy-wiki syn12 syn40 --source-subpage 7 --dest-subpage 3
  syncp copy-wiki syn12 syn40 --map syn13=syn41 --show-rewrites
`,
	Args: cobra.ExactArgs(2),
	RunE: appctx.WithApp(appctx.WithRepo(), runCopyWiki),
}

var (
	copyWikiSourceSubPage string
	copyWikiDestSubPage   string
	copyWikiMap           []string
	copyWikiNoUpdateLinks bool
	copyWikiNoUpdateIDs   bool
	copyWikiShowRewrites  bool
)

func init() {
	rootCmd.AddCommand(copyWikiCmd)

	copyWikiCmd.Flags().StringVar(&copyWikiSourceSubPage, "source-subpage", "", "Copy only this page and its descendants")
	copyWikiCmd.Flags().StringVar(&copyWikiDestSubPage, "dest-subpage", "", "Destination page to copy under")
	copyWikiCmd.Flags().StringArrayVar(&copyWikiMap, "map", nil, "Entity id rewrite old=new (repeatable)")
	copyWikiCmd.Flags().BoolVar(&copyWikiNoUpdateLinks, "no-update-links", false, "Do not rewrite links to copied pages")
	copyWikiCmd.Flags().BoolVar(&copyWikiNoUpdateIDs, "no-update-ids", false, "Do not apply --map rewrites")
	copyWikiCmd.Flags().BoolVar(&copyWikiShowRewrites, "show-rewrites", false, "Print a unified diff of every rewritten page")
}

func runCopyWiki(app *appctx.App, cmd *cobra.Command, args []string) error {
	entityMap, err := parsePairs(copyWikiMap)
	if err != nil {
		return err
	}
	for k, v := range entityMap {
		if _, _, err := parseEntityArg(k); err != nil {
			return err
		}
		if _, _, err := parseEntityArg(v); err != nil {
			return err
		}
	}

	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	req := treecopy.NewWikiCopyRequest(args[0], args[1])
	req.EntitySubPageID = copyWikiSourceSubPage
	req.DestinationSubPageID = copyWikiDestSubPage
	req.UpdateLinks = !copyWikiNoUpdateLinks
	req.UpdateSynIDs = !copyWikiNoUpdateIDs
	req.EntityMap = entityMap

	res, err := app.Copier(nil).CopyWikiDetailed(ensureContext(cmd.Context()), req)
	if err != nil {
		return err
	}

	if copyWikiShowRewrites {
		for _, rw := range res.Rewrites {
			if err := writeRewriteDiff(cmd.ErrOrStderr(), rw); err != nil {
				return err
			}
		}
	}
	return renderWikiHeaders(renderer, res.Headers)
}

// writeRewriteDiff prints the markdown change of one page as a unified diff
func writeRewriteDiff(w io.Writer, rw treecopy.PageRewrite) error {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(rw.Before),
		B:        difflib.SplitLines(rw.After),
		FromFile: fmt.Sprintf("wiki/%s (copied)", rw.WikiID),
		ToFile:   fmt.Sprintf("wiki/%s (rewritten)", rw.WikiID),
		Context:  1,
	}
	return difflib.WriteUnifiedDiff(w, diff)
}

func renderWikiHeaders(r *render.Renderer, headers []domain.WikiHeader) error {
	t := render.Table{Headers: []string{"ID", "PARENT", "TITLE"}}
	for _, h := range headers {
		t.Rows = append(t.Rows, []string{h.ID, optionalString(h.ParentID), h.Title})
		t.Items = append(t.Items, h)
	}
	return r.Render(t)
}
