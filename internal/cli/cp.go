package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/bulk"
	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/render"
	"github.com/lherron/syncp/internal/treecopy"
)

var cpCmd = &cobra.Command{
	Use:   "cp <source>... <destination>",
	Short: "Copy entities and everything below them",
	Long: `Copy one or more entities into a destination container.

Projects are merged into an existing destination project: their children and
their wiki are copied, the project itself is not. The project is reported as
"Merged <source> into <destination>" and is not part of the id mapping.
Folders, files, links and tables are copied recursively. Wikis are copied for
every copied entity and links inside them are rewritten to the new ids.

A source may carry a version suffix (syn12.3) to copy one file version.

Examples:
  syncp cp syn12 syn40                          # Copy a folder into syn40
  syncp cp syn12.3 syn40 --set-provenance none  # Copy file version 3 without provenance
  syncp cp syn1 syn2 --exclude-types file,table # Copy only folders and links
  syncp cp syn12 syn13 syn40 --continue-on-error
`,
	Args: cobra.MinimumNArgs(2),
	RunE: appctx.WithApp(appctx.WithRepo(), runCp),
}

var (
	cpVersion         int
	cpSetProvenance   string
	cpUpdateExisting  bool
	cpExcludeTypes    string
	cpContinueOnError bool
	cpSkipWiki        bool
	cpSkipAnnotations bool
	cpSourceSubPage   string
	cpDestSubPage     string
	cpNoUpdateLinks   bool
	cpNoUpdateIDs     bool
)

func init() {
	rootCmd.AddCommand(cpCmd)

	cpCmd.Flags().IntVar(&cpVersion, "version", 0, "File version to copy (single source only)")
	cpCmd.Flags().StringVar(&cpSetProvenance, "set-provenance", "traceback", "Provenance of copied files: traceback, existing, none")
	cpCmd.Flags().BoolVar(&cpUpdateExisting, "update-existing", false, "Update same-named entities in the destination instead of failing")
	cpCmd.Flags().StringVar(&cpExcludeTypes, "exclude-types", "", "Entity types to skip (comma-separated: file, link, table)")
	cpCmd.Flags().BoolVar(&cpContinueOnError, "continue-on-error", false, "Report failed entities and keep copying")
	cpCmd.Flags().BoolVar(&cpSkipWiki, "skip-wiki", false, "Do not copy wikis")
	cpCmd.Flags().BoolVar(&cpSkipAnnotations, "skip-annotations", false, "Do not copy annotations")
	cpCmd.Flags().StringVar(&cpSourceSubPage, "source-subpage", "", "Copy only this wiki page and its descendants")
	cpCmd.Flags().StringVar(&cpDestSubPage, "dest-subpage", "", "Wiki page of the destination to copy under")
	cpCmd.Flags().BoolVar(&cpNoUpdateLinks, "no-update-links", false, "Do not rewrite wiki links to copied pages")
	cpCmd.Flags().BoolVar(&cpNoUpdateIDs, "no-update-ids", false, "Do not rewrite entity ids inside wikis")
}

func runCp(app *appctx.App, cmd *cobra.Command, args []string) error {
	sources := args[:len(args)-1]
	destination, _, err := parseEntityArg(args[len(args)-1])
	if err != nil {
		return err
	}
	if cpVersion < 0 {
		return domain.NewValueError("--version must be positive")
	}
	if cpVersion > 0 && len(sources) > 1 {
		return domain.NewValueError("--version can only be used with a single source")
	}

	excluded, err := domain.ParseEntityTypes(cpExcludeTypes)
	if err != nil {
		return err
	}
	base := treecopy.Options{
		SetProvenance:        cpSetProvenance,
		UpdateExisting:       cpUpdateExisting,
		ExcludeTypes:         excluded,
		ContinueOnError:      cpContinueOnError,
		SkipCopyAnnotations:  cpSkipAnnotations,
		SkipCopyWikiPage:     cpSkipWiki,
		EntitySubPageID:      cpSourceSubPage,
		DestinationSubPageID: cpDestSubPage,
		UpdateLinks:          !cpNoUpdateLinks,
		UpdateSynIDs:         !cpNoUpdateIDs,
	}

	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	// Status lines share stdout with table output only.
	format, _ := render.ParseFormat(app.Config.Output)
	structured := format != render.FormatTable
	status := cmd.OutOrStdout()
	if structured {
		status = cmd.ErrOrStderr()
	}
	copier := app.Copier(status)

	var pairs []treecopy.Pair
	op := &bulk.Operation{
		ContinueOnError: cpContinueOnError,
		Progress:        cmd.ErrOrStderr(),
	}
	result := op.Execute(ensureContext(cmd.Context()), sources, func(ctx context.Context, source string) error {
		opts := base
		entityID, version, err := parseEntityArg(source)
		if err != nil {
			return err
		}
		if cpVersion > 0 {
			version = &cpVersion
		}
		opts.Version = version

		mapping, err := copier.Copy(ctx, entityID, destination, opts)
		if mapping != nil {
			pairs = append(pairs, mapping.Pairs()...)
		}
		return err
	})

	if structured {
		if err := renderPairs(renderer, pairs); err != nil {
			return err
		}
	}
	return bulkError(result, len(sources), cmd.ErrOrStderr())
}

func renderPairs(r *render.Renderer, pairs []treecopy.Pair) error {
	t := render.Table{Headers: []string{"SOURCE", "DESTINATION"}}
	for _, p := range pairs {
		t.Rows = append(t.Rows, []string{p.Source, p.Destination})
		t.Items = append(t.Items, p)
	}
	return r.Render(t)
}

// bulkError turns a bulk result into the command error. A single item keeps
// its own error so the exit code reflects its kind.
func bulkError(result *bulk.Result, items int, w io.Writer) error {
	if len(result.Errors) == 0 {
		return nil
	}
	if items == 1 {
		return result.Errors[0].Error
	}
	result.PrintSummary(w)
	return exitError(result.ExitCode(), result.Err())
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
