package manifest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/testutil"
)

const seed = `
projects:
  - project: src
    wiki:
      title: Home
      markdown: "raw data is in ${src/raw}"
      attachments:
        - file_name: fig.png
          content_type: image/png
        - file_name: fig-preview.png
          preview: true
      pages:
        - title: Details
          markdown: "see ${src/raw/a.txt}"
    children:
      - folder: raw
        annotations:
          stage: [raw]
        children:
          - file: a.txt
            content_type: text/plain
            provenance:
              name: upload
          - file: secret.txt
            deny: [bob]
      - link: shortcut
        target: src/raw/a.txt
      - table: results
        columns: ["1", "2"]
        rows:
          - [a, b]
          - [c, d]
  - project: dst
`

func TestApply(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")

	m, err := Parse(strings.NewReader(seed))
	require.NoError(t, err)
	res, err := Apply(ctx, s, m, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"src", "src/raw", "src/raw/a.txt", "src/raw/secret.txt", "src/results", "dst", "src/shortcut",
	}, res.Order)

	raw, err := s.GetEntity(ctx, res.IDs["src/raw"], nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Annotations{"stage": {"raw"}}, raw.Base().Annotations)

	link, err := s.GetEntity(ctx, res.IDs["src/shortcut"], nil)
	require.NoError(t, err)
	assert.Equal(t, res.IDs["src/raw/a.txt"], link.(*domain.Link).LinksTo.TargetID)

	act, err := s.GetProvenance(ctx, res.IDs["src/raw/a.txt"], nil)
	require.NoError(t, err)
	assert.Equal(t, "upload", act.Name)

	rows, err := s.QueryRows(ctx, res.IDs["src/results"], "SELECT * FROM "+res.IDs["src/results"])
	require.NoError(t, err)
	assert.Len(t, rows.Rows, 2)

	perms, err := s.As("bob").GetPermissions(ctx, res.IDs["src/raw/secret.txt"])
	require.NoError(t, err)
	assert.False(t, perms.CanDownload)

	headers, err := s.GetWikiHeaders(ctx, res.IDs["src"])
	require.NoError(t, err)
	require.Len(t, headers, 2)
	home, err := s.GetWikiPage(ctx, res.IDs["src"], headers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "raw data is in "+res.IDs["src/raw"], home.Markdown)
	assert.Len(t, home.AttachmentFileHandleIDs, 2)
	details, err := s.GetWikiPage(ctx, res.IDs["src"], headers[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "see "+res.IDs["src/raw/a.txt"], details.Markdown)
	assert.Equal(t, home.ID, details.ParentWikiID)
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"no projects", "projects: []\n"},
		{"unknown field", "projects:\n  - project: p\n    colour: red\n"},
		{"two kinds", "projects:\n  - project: p\n    folder: f\n"},
		{"folder at top", "projects:\n  - folder: f\n"},
		{"nested project", "projects:\n  - project: p\n    children:\n      - project: q\n"},
		{"link without target", "projects:\n  - project: p\n    children:\n      - link: l\n"},
		{"ragged row", "projects:\n  - project: p\n    children:\n      - table: t\n        columns: [a]\n        rows: [[x, y]]\n"},
		{"file with children", "projects:\n  - project: p\n    children:\n      - file: f\n        children:\n          - folder: g\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.True(t, domain.IsValueError(err), "got %v", err)
		})
	}
}

func TestApplyUnknownReferences(t *testing.T) {
	ctx := context.Background()

	m, err := Parse(strings.NewReader("projects:\n  - project: p\n    children:\n      - link: l\n        target: p/missing\n"))
	require.NoError(t, err)
	_, err = Apply(ctx, testutil.TempStore(t, "alice"), m, nil)
	assert.True(t, domain.IsValueError(err), "got %v", err)

	m, err = Parse(strings.NewReader("projects:\n  - project: p\n    wiki:\n      title: w\n      markdown: ${p/nope}\n"))
	require.NoError(t, err)
	_, err = Apply(ctx, testutil.TempStore(t, "alice"), m, nil)
	assert.True(t, domain.IsValueError(err), "got %v", err)
}

// plainSeeder hides the ACL methods of the store
type plainSeeder struct{ Seeder }

func TestApplyRestrictionsNeedACLSeeder(t *testing.T) {
	m, err := Parse(strings.NewReader("projects:\n  - project: p\n    deny: [bob]\n"))
	require.NoError(t, err)
	_, err = Apply(context.Background(), plainSeeder{testutil.TempStore(t, "alice")}, m, nil)
	assert.True(t, domain.IsValueError(err), "got %v", err)
}
