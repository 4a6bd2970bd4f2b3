package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/bulk"
	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/id"
	"github.com/lherron/syncp/internal/render"
)

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return bulk.ExitOK
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if bulk.IsPartial(err) {
		return bulk.ExitPartial
	}
	if domain.IsValueError(err) {
		return bulk.ExitInvalid
	}
	return bulk.ExitFailure
}

// newRenderer builds a renderer for the configured output format
func newRenderer(app *appctx.App, cmd *cobra.Command) (*render.Renderer, error) {
	format, err := render.ParseFormat(app.Config.Output)
	if err != nil {
		return nil, err
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format}), nil
}

// parseEntityArg accepts syn123 or syn123.4
func parseEntityArg(s string) (string, *int, error) {
	entityID, version, err := id.Normalize(s)
	if err != nil {
		return "", nil, domain.NewValueError("invalid entity id %q", s)
	}
	return entityID, version, nil
}

// parsePairs parses old=new arguments into a map
func parsePairs(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for _, v := range values {
		k, val, ok := strings.Cut(v, "=")
		if !ok || k == "" || val == "" {
			return nil, domain.NewValueError("invalid mapping %q: want old=new", v)
		}
		out[k] = val
	}
	return out, nil
}

func optionalString(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
