package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/logging"
	"github.com/lherron/syncp/internal/render"
	"github.com/lherron/syncp/internal/treecopy"
)

var changeMetadataCmd = &cobra.Command{
	Use:   "change-metadata <file-id>",
	Short: "Rename or retype the data file of a file entity",
	Long: `Point a file entity at a copy of its data file handle that carries a new file
name or content type. No bytes are transferred. Without --force-version the
current version is updated in place.

Examples:
  syncp change-metadata syn12 --download-as results.csv --content-type text/csv
  syncp change-metadata syn12 --download-as v2.txt --force-version
`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.WithRepo(), runChangeMetadata),
}

var (
	changeMetadataDownloadAs   string
	changeMetadataContentType  string
	changeMetadataForceVersion bool
)

func init() {
	rootCmd.AddCommand(changeMetadataCmd)

	changeMetadataCmd.Flags().StringVar(&changeMetadataDownloadAs, "download-as", "", "New file name")
	changeMetadataCmd.Flags().StringVar(&changeMetadataContentType, "content-type", "", "New content type")
	changeMetadataCmd.Flags().BoolVar(&changeMetadataForceVersion, "force-version", false, "Store the change as a new version")
}

func runChangeMetadata(app *appctx.App, cmd *cobra.Command, args []string) error {
	entityID, version, err := parseEntityArg(args[0])
	if err != nil {
		return err
	}
	if version != nil {
		return domain.NewValueError("change-metadata always applies to the current version of %s", entityID)
	}
	if changeMetadataDownloadAs == "" && changeMetadataContentType == "" {
		return domain.NewValueError("nothing to change: pass --download-as or --content-type")
	}

	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	ctx := ensureContext(cmd.Context())
	f, err := app.Copier(nil).ChangeFileMetadata(ctx, entityID, treecopy.MetadataChange{
		DownloadAs:   changeMetadataDownloadAs,
		ContentType:  changeMetadataContentType,
		ForceVersion: changeMetadataForceVersion,
	})
	if err != nil {
		return err
	}
	handle, err := app.Repo.GetFileHandle(ctx, f.ID, nil)
	if err != nil {
		return fmt.Errorf("failed to read new file handle of %s: %w", f.ID, err)
	}

	if err := app.Journal.MetadataChanged(ctx, f, handle.FileName, handle.ContentType); err != nil {
		app.Log.Warn("failed to record metadata change", zap.String(logging.FieldSource, f.ID), zap.Error(err))
	}

	return renderer.Render(render.Table{
		Headers: []string{"ID", "VERSION", "FILE HANDLE", "FILE NAME", "CONTENT TYPE"},
		Rows: [][]string{{
			f.ID, fmt.Sprint(f.VersionNumber), handle.ID, handle.FileName, optionalString(handle.ContentType),
		}},
		Items: []interface{}{map[string]interface{}{
			"id":               f.ID,
			"versionNumber":    f.VersionNumber,
			"dataFileHandleId": handle.ID,
			"fileName":         handle.FileName,
			"contentType":      handle.ContentType,
		}},
	})
}
