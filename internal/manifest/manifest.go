// Package manifest seeds a repository from a YAML description of entity
// trees and their wikis.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/logging"
)

// Manifest is the top level of a seed file
type Manifest struct {
	Projects []Node `yaml:"projects"`
}

// Node is one entity. Exactly one of Project, Folder, File, Link, or Table
// names it and selects its type.
type Node struct {
	Project string `yaml:"project,omitempty"`
	Folder  string `yaml:"folder,omitempty"`
	File    string `yaml:"file,omitempty"`
	Link    string `yaml:"link,omitempty"`
	Table   string `yaml:"table,omitempty"`

	Annotations domain.Annotations `yaml:"annotations,omitempty"`
	// Deny lists principals that may not download the entity.
	Deny []string `yaml:"deny,omitempty"`
	// AccessRequirements are descriptions of unmet requirements to add.
	AccessRequirements []string `yaml:"access_requirements,omitempty"`

	// File fields
	ContentType string    `yaml:"content_type,omitempty"`
	FileName    string    `yaml:"file_name,omitempty"`
	Provenance  *Activity `yaml:"provenance,omitempty"`

	// Link target, as a manifest path such as "project/folder/file"
	Target string `yaml:"target,omitempty"`

	// Table fields
	Columns []string   `yaml:"columns,omitempty"`
	Rows    [][]string `yaml:"rows,omitempty"`

	Wiki     *Page  `yaml:"wiki,omitempty"`
	Children []Node `yaml:"children,omitempty"`
}

// Activity is seeded provenance
type Activity struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Page is a wiki page and its sub pages. Markdown may reference seeded
// entities as ${manifest/path}.
type Page struct {
	Title       string       `yaml:"title"`
	Markdown    string       `yaml:"markdown,omitempty"`
	Attachments []Attachment `yaml:"attachments,omitempty"`
	Pages       []Page       `yaml:"pages,omitempty"`
}

// Attachment is a file handle attached to a wiki page
type Attachment struct {
	FileName    string `yaml:"file_name"`
	ContentType string `yaml:"content_type,omitempty"`
	Preview     bool   `yaml:"preview,omitempty"`
}

// Type returns the entity type the node describes and its name
func (n *Node) Type() (domain.EntityType, string, error) {
	var t domain.EntityType
	var name string
	count := 0
	for _, c := range []struct {
		t    domain.EntityType
		name string
	}{
		{domain.EntityTypeProject, n.Project},
		{domain.EntityTypeFolder, n.Folder},
		{domain.EntityTypeFile, n.File},
		{domain.EntityTypeLink, n.Link},
		{domain.EntityTypeTable, n.Table},
	} {
		if c.name != "" {
			t, name = c.t, c.name
			count++
		}
	}
	if count != 1 {
		return "", "", domain.NewValueError("manifest node must set exactly one of project, folder, file, link, table (got %d)", count)
	}
	return t, name, nil
}

// Parse decodes a manifest. Unknown fields are errors.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, domain.NewValueError("manifest is empty")
		}
		return nil, domain.NewValueError("failed to parse manifest: %v", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a manifest file
func Load(filename string) (*Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Validate checks node kinds and nesting
func (m *Manifest) Validate() error {
	if len(m.Projects) == 0 {
		return domain.NewValueError("manifest has no projects")
	}
	for i := range m.Projects {
		t, name, err := m.Projects[i].Type()
		if err != nil {
			return err
		}
		if t != domain.EntityTypeProject {
			return domain.NewValueError("top level entry %q must be a project", name)
		}
		if err := validateChildren(name, m.Projects[i].Children); err != nil {
			return err
		}
	}
	return nil
}

func validateChildren(parent string, nodes []Node) error {
	for i := range nodes {
		n := &nodes[i]
		t, name, err := n.Type()
		if err != nil {
			return fmt.Errorf("%s: %w", parent, err)
		}
		p := path.Join(parent, name)
		switch t {
		case domain.EntityTypeProject:
			return domain.NewValueError("%s: projects cannot be nested", p)
		case domain.EntityTypeLink:
			if n.Target == "" {
				return domain.NewValueError("%s: link requires a target", p)
			}
		case domain.EntityTypeTable:
			for _, row := range n.Rows {
				if len(row) != len(n.Columns) {
					return domain.NewValueError("%s: row has %d values for %d columns", p, len(row), len(n.Columns))
				}
			}
		}
		if len(n.Children) > 0 && t != domain.EntityTypeFolder {
			return domain.NewValueError("%s: only folders have children", p)
		}
		if err := validateChildren(p, n.Children); err != nil {
			return err
		}
	}
	return nil
}

// Seeder is the repository surface Apply writes through
type Seeder interface {
	CreateEntity(ctx context.Context, e domain.Entity) (domain.Entity, error)
	CreateFileHandle(ctx context.Context, h *domain.FileHandle) (*domain.FileHandle, error)
	SetProvenance(ctx context.Context, entityID string, activity *domain.Activity) (*domain.Activity, error)
	AppendRows(ctx context.Context, tableID string, rows *domain.RowSet) (int, error)
	CreateWikiPage(ctx context.Context, ownerID string, page *domain.WikiPage) (*domain.WikiPage, error)
}

// ACLSeeder is implemented by seeders that can restrict entities
type ACLSeeder interface {
	Restrict(ctx context.Context, entityID, principal string) error
	AddAccessRequirement(ctx context.Context, entityID, description string) (int64, error)
}

// Result maps manifest paths to created ids
type Result struct {
	IDs map[string]string `json:"ids"`
	// Order lists paths in creation order.
	Order []string `json:"order"`
}

type pendingLink struct {
	path   string
	parent string
	node   *Node
}

type pendingWiki struct {
	path  string
	owner string
	page  *Page
}

type applier struct {
	seeder Seeder
	log    *zap.Logger
	res    *Result
	links  []pendingLink
	wikis  []pendingWiki
}

// Apply creates every entity of the manifest. Links and wikis are created
// after all other entities so they can reference any path.
func Apply(ctx context.Context, seeder Seeder, m *Manifest, log *zap.Logger) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	a := &applier{
		seeder: seeder,
		log:    logging.OrNop(log),
		res:    &Result{IDs: make(map[string]string)},
	}

	for i := range m.Projects {
		if err := a.node(ctx, "", "", &m.Projects[i]); err != nil {
			return a.res, err
		}
	}
	for _, l := range a.links {
		target, ok := a.res.IDs[l.node.Target]
		if !ok {
			return a.res, domain.NewValueError("%s: unknown link target %q", l.path, l.node.Target)
		}
		e := &domain.Link{
			EntityBase: a.base(l.parent, l.node.Link, l.node),
			LinksTo:    domain.Reference{TargetID: target},
		}
		if err := a.create(ctx, l.path, e, l.node); err != nil {
			return a.res, err
		}
	}
	for _, w := range a.wikis {
		if err := a.wiki(ctx, w.path, w.owner, "", w.page); err != nil {
			return a.res, err
		}
	}
	return a.res, nil
}

func (a *applier) base(parent, name string, n *Node) domain.EntityBase {
	return domain.EntityBase{Name: name, ParentID: parent, Annotations: n.Annotations}
}

func (a *applier) node(ctx context.Context, parentPath, parentID string, n *Node) error {
	t, name, err := n.Type()
	if err != nil {
		return err
	}
	p := path.Join(parentPath, name)

	var e domain.Entity
	switch t {
	case domain.EntityTypeProject:
		e = &domain.Project{EntityBase: a.base("", name, n)}
	case domain.EntityTypeFolder:
		e = &domain.Folder{EntityBase: a.base(parentID, name, n)}
	case domain.EntityTypeFile:
		fileName := n.FileName
		if fileName == "" {
			fileName = name
		}
		h, err := a.seeder.CreateFileHandle(ctx, &domain.FileHandle{FileName: fileName, ContentType: n.ContentType})
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		e = &domain.File{EntityBase: a.base(parentID, name, n), DataFileHandleID: h.ID}
	case domain.EntityTypeLink:
		a.links = append(a.links, pendingLink{path: p, parent: parentID, node: n})
		return nil
	case domain.EntityTypeTable:
		e = &domain.Table{EntityBase: a.base(parentID, name, n), ColumnIDs: n.Columns}
	}

	if err := a.create(ctx, p, e, n); err != nil {
		return err
	}
	entityID := a.res.IDs[p]

	if n.Provenance != nil {
		if _, err := a.seeder.SetProvenance(ctx, entityID, &domain.Activity{
			Name:        n.Provenance.Name,
			Description: n.Provenance.Description,
		}); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if len(n.Rows) > 0 {
		rs := &domain.RowSet{TableID: entityID, Headers: n.Columns}
		for _, row := range n.Rows {
			rs.Rows = append(rs.Rows, domain.Row{Values: row})
		}
		if _, err := a.seeder.AppendRows(ctx, entityID, rs); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	for i := range n.Children {
		if err := a.node(ctx, p, entityID, &n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) create(ctx context.Context, p string, e domain.Entity, n *Node) error {
	created, err := a.seeder.CreateEntity(ctx, e)
	if err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	entityID := created.Base().ID
	a.res.IDs[p] = entityID
	a.res.Order = append(a.res.Order, p)
	a.log.Debug("seeded entity",
		zap.String("path", p),
		zap.String(logging.FieldType, string(e.Type())),
		zap.String(logging.FieldDestination, entityID))

	if len(n.Deny) > 0 || len(n.AccessRequirements) > 0 {
		acl, ok := a.seeder.(ACLSeeder)
		if !ok {
			return domain.NewValueError("%s: this repository cannot seed restrictions", p)
		}
		for _, principal := range n.Deny {
			if err := acl.Restrict(ctx, entityID, principal); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
		}
		for _, desc := range n.AccessRequirements {
			if _, err := acl.AddAccessRequirement(ctx, entityID, desc); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
		}
	}
	if n.Wiki != nil {
		a.wikis = append(a.wikis, pendingWiki{path: p, owner: entityID, page: n.Wiki})
	}
	return nil
}

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// expand replaces ${path} references with seeded ids
func (a *applier) expand(p, markdown string) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(markdown, func(m string) string {
		ref := placeholder.FindStringSubmatch(m)[1]
		if id, ok := a.res.IDs[ref]; ok {
			return id
		}
		if missing == "" {
			missing = ref
		}
		return m
	})
	if missing != "" {
		return "", domain.NewValueError("%s: wiki references unknown path %q", p, missing)
	}
	return out, nil
}

func (a *applier) wiki(ctx context.Context, p, owner, parentWikiID string, page *Page) error {
	markdown, err := a.expand(p, page.Markdown)
	if err != nil {
		return err
	}
	var attachments []string
	for _, att := range page.Attachments {
		h := &domain.FileHandle{FileName: att.FileName, ContentType: att.ContentType}
		if att.Preview {
			h.ConcreteType = domain.ConcreteTypePreviewFileHandle
		}
		created, err := a.seeder.CreateFileHandle(ctx, h)
		if err != nil {
			return fmt.Errorf("%s: wiki attachment %s: %w", p, att.FileName, err)
		}
		attachments = append(attachments, created.ID)
	}

	created, err := a.seeder.CreateWikiPage(ctx, owner, &domain.WikiPage{
		ParentWikiID:            parentWikiID,
		Title:                   page.Title,
		Markdown:                markdown,
		AttachmentFileHandleIDs: attachments,
	})
	if err != nil {
		return fmt.Errorf("%s: wiki page %q: %w", p, page.Title, err)
	}
	a.log.Debug("seeded wiki page",
		zap.String(logging.FieldOwner, owner),
		zap.String(logging.FieldWikiID, created.ID))

	for i := range page.Pages {
		if err := a.wiki(ctx, p, owner, created.ID, &page.Pages[i]); err != nil {
			return err
		}
	}
	return nil
}
