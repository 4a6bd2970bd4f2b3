package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/bulk"
	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/render"
)

var copyHandlesCmd = &cobra.Command{
	Use:   "copy-handles <file-handle-id>...",
	Short: "Copy file handles in batches",
	Long: `Copy file handles for association with an object. No bytes are transferred:
each new handle points at the same stored content, optionally with a new name
or content type. Requests are sent in batches of at most
max_file_handles_per_copy. A handle that cannot be copied is reported with its
failure code and does not stop the others.

Examples:
  syncp copy-handles 11 12 --object-id syn40
  syncp copy-handles 11 --object-id syn40 --file-name data.csv --content-type text/csv
`,
	Args: cobra.MinimumNArgs(1),
	RunE: appctx.WithApp(appctx.WithRepo(), runCopyHandles),
}

var (
	copyHandlesObjectType  string
	copyHandlesObjectID    string
	copyHandlesContentType string
	copyHandlesFileName    string
)

func init() {
	rootCmd.AddCommand(copyHandlesCmd)

	copyHandlesCmd.Flags().StringVar(&copyHandlesObjectType, "object-type", domain.ObjectTypeFileEntity, "Associated object type: FileEntity, WikiAttachment, TableEntity")
	copyHandlesCmd.Flags().StringVar(&copyHandlesObjectID, "object-id", "", "Associated object id (required)")
	copyHandlesCmd.Flags().StringVar(&copyHandlesContentType, "content-type", "", "New content type for every copy")
	copyHandlesCmd.Flags().StringVar(&copyHandlesFileName, "file-name", "", "New file name for every copy")
}

func runCopyHandles(app *appctx.App, cmd *cobra.Command, args []string) error {
	if copyHandlesObjectID == "" {
		return domain.NewValueError("--object-id is required")
	}
	switch copyHandlesObjectType {
	case domain.ObjectTypeFileEntity, domain.ObjectTypeWikiAttachment, domain.ObjectTypeTableEntity:
	default:
		return domain.NewValueError("invalid object type %q", copyHandlesObjectType)
	}

	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	n := len(args)
	objectTypes := make([]string, n)
	objectIDs := make([]string, n)
	contentTypes := make([]string, n)
	fileNames := make([]string, n)
	for i := range args {
		objectTypes[i] = copyHandlesObjectType
		objectIDs[i] = copyHandlesObjectID
		contentTypes[i] = copyHandlesContentType
		fileNames[i] = copyHandlesFileName
	}

	ctx := ensureContext(cmd.Context())
	results, err := app.Copier(nil).BatchCopier().CopyFileHandles(ctx, args, objectTypes, objectIDs, contentTypes, fileNames)
	if err != nil {
		return err
	}

	t := render.Table{Headers: []string{"ORIGINAL", "NEW", "FILE NAME", "FAILURE"}}
	failed := 0
	for _, r := range results {
		row := []string{r.OriginalFileHandleID, "-", "-", "-"}
		if r.Failed() {
			failed++
			row[3] = string(r.FailureCode)
		} else {
			row[1] = r.NewFileHandle.ID
			row[2] = r.NewFileHandle.FileName
			if err := app.Cache.Associate(ctx, r.OriginalFileHandleID, r.NewFileHandle.ID); err != nil {
				return err
			}
		}
		t.Rows = append(t.Rows, row)
		t.Items = append(t.Items, r)
	}
	if err := renderer.Render(t); err != nil {
		return err
	}
	return handleFailures(failed, len(results))
}

func handleFailures(failed, total int) error {
	switch {
	case failed == 0:
		return nil
	case failed == total:
		return exitError(bulk.ExitFailure, domain.NewValueError("all %d file handle copies failed", total))
	default:
		return exitError(bulk.ExitPartial, domain.NewValueError("%d of %d file handle copies failed", failed, total))
	}
}
