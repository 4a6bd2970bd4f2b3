package treecopy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/id"
	"github.com/lherron/syncp/internal/logging"
)

// childTypes are listed when walking a container.
var childTypes = []domain.EntityType{
	domain.EntityTypeFolder,
	domain.EntityTypeFile,
	domain.EntityTypeTable,
	domain.EntityTypeLink,
}

// Copier copies entity trees and wikis within one repository. All remote
// calls are issued sequentially.
type Copier struct {
	repo     Repository
	batch    *BatchCopier
	reporter Reporter
	cache    FileCache
	log      *zap.Logger
}

// New returns a Copier over repo.
func New(repo Repository, cfg Config) *Copier {
	log := logging.OrNop(cfg.Logger)
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Copier{
		repo:     repo,
		batch:    NewBatchCopier(repo, cfg.MaxFileHandlesPerCopy, log),
		reporter: reporter,
		cache:    cfg.Cache,
		log:      log,
	}
}

// BatchCopier returns the copier's file handle batcher.
func (c *Copier) BatchCopier() *BatchCopier {
	return c.batch
}

// Copy copies entityID and everything below it into destinationID, then
// copies the wiki of every copied entity unless SkipCopyWikiPage is set.
//
// A Project is merged into an existing destination Project: its children are
// copied and its wiki goes to the destination project, but the project itself
// is not added to the mapping. Wiki rewrites still map the source project id
// to the destination. The returned mapping holds every entity that was
// created, even when an error is returned; nothing is rolled back.
func (c *Copier) Copy(ctx context.Context, entityID, destinationID string, opts Options) (*Mapping, error) {
	w, err := c.walk(ctx, entityID, destinationID, opts)
	mapping := w.mapping
	if err != nil && !isPartial(err) {
		return mapping, err
	}
	if opts.SkipCopyWikiPage {
		return mapping, err
	}

	entityMap := mapping.Map()
	for _, p := range w.merged {
		entityMap[p.Source] = p.Destination
	}
	owners := append(append([]Pair(nil), w.merged...), mapping.Pairs()...)
	for _, p := range owners {
		req := WikiCopyRequest{
			SourceOwnerID:        p.Source,
			DestinationOwnerID:   p.Destination,
			EntitySubPageID:      opts.EntitySubPageID,
			DestinationSubPageID: opts.DestinationSubPageID,
			UpdateLinks:          opts.UpdateLinks,
			UpdateSynIDs:         opts.UpdateSynIDs,
			EntityMap:            entityMap,
		}
		if _, werr := c.CopyWiki(ctx, req); werr != nil {
			return mapping, fmt.Errorf("failed to copy wiki of %s: %w", p.Source, werr)
		}
	}
	return mapping, err
}

// CopyEntities runs the entity walk of Copy without copying wikis.
func (c *Copier) CopyEntities(ctx context.Context, entityID, destinationID string, opts Options) (*Mapping, error) {
	w, err := c.walk(ctx, entityID, destinationID, opts)
	return w.mapping, err
}

// walk copies the entity tree. The returned walker is never nil.
func (c *Copier) walk(ctx context.Context, entityID, destinationID string, opts Options) (*walker, error) {
	w := &walker{
		Copier:  c,
		opts:    opts,
		mapping: NewMapping(),
	}

	if err := domain.ValidateExcludeTypes(opts.ExcludeTypes); err != nil {
		return w, err
	}
	mode, err := ParseProvenanceMode(opts.SetProvenance)
	if err != nil {
		return w, err
	}
	principal, err := c.repo.WhoAmI(ctx)
	if err != nil {
		return w, fmt.Errorf("failed to resolve acting principal: %w", err)
	}
	w.mode = mode
	w.principal = principal

	if err := w.copy(ctx, entityID, destinationID, opts.Version); err != nil {
		return w, err
	}
	if len(w.failures) > 0 {
		return w, &PartialError{Failures: w.failures}
	}
	return w, nil
}

func isPartial(err error) bool {
	var pe *PartialError
	return errors.As(err, &pe)
}

// walker holds the state of one entity walk. It owns mapping. merged holds
// the source projects whose children went into a destination project.
type walker struct {
	*Copier
	opts      Options
	mode      ProvenanceMode
	principal string
	mapping   *Mapping
	merged    []Pair
	failures  []Outcome
}

// copy copies one entity into destinationID.
func (w *walker) copy(ctx context.Context, entityID, destinationID string, version *int) error {
	ent, err := w.repo.GetEntity(ctx, entityID, version)
	if err != nil {
		return err
	}
	src := ent.Base().ID

	if dst, _, err := id.Normalize(destinationID); err == nil && dst == src {
		return domain.NewValueError("destination and source entity are the same: %s", src)
	}
	switch ent.(type) {
	case *domain.Project, *domain.Folder:
		if version != nil {
			return domain.NewValueError("cannot specify version when copying a project or folder: %s", src)
		}
	}
	if p, ok := ent.(*domain.Project); ok {
		dest, err := w.repo.GetEntity(ctx, destinationID, nil)
		if err != nil {
			return err
		}
		if _, ok := dest.(*domain.Project); !ok {
			return domain.NewValueError("cannot copy project %s into %s: destination is a %s, not a project",
				p.ID, dest.Base().ID, dest.Type())
		}
		destinationID = dest.Base().ID
	}

	perms, err := w.repo.GetPermissions(ctx, src)
	if err != nil {
		return err
	}
	if !perms.CanDownload {
		w.skip(ctx, ent, "no download permission")
		return nil
	}
	reqs, err := w.repo.GetAccessRequirements(ctx, src)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		if r.Unmet {
			w.skip(ctx, ent, fmt.Sprintf("unmet access requirement %d", r.ID))
			return nil
		}
	}

	w.log.Debug("copying entity",
		zap.String(logging.FieldSource, src),
		zap.String(logging.FieldDestination, destinationID),
		zap.String(logging.FieldType, string(ent.Type())))

	return ent.Accept(&entityVisitor{walker: w, ctx: ctx, destinationID: destinationID})
}

// copyChildren copies every child of a source container into destinationID.
func (w *walker) copyChildren(ctx context.Context, sourceID, destinationID string) error {
	children, err := w.repo.ListChildren(ctx, sourceID, childTypes)
	if err != nil {
		return err
	}
	for _, child := range children {
		err := w.copy(ctx, child.ID, destinationID, nil)
		if err == nil {
			continue
		}
		if !w.opts.ContinueOnError || domain.IsValueError(err) {
			return err
		}
		o := Outcome{SourceID: child.ID, Type: child.Type, Reason: err.Error()}
		w.failures = append(w.failures, o)
		w.reporter.Report(ctx, o)
		w.log.Warn("entity not copied", zap.String(logging.FieldSource, child.ID), zap.Error(err))
	}
	return nil
}

func (w *walker) skip(ctx context.Context, ent domain.Entity, reason string) {
	w.reporter.Report(ctx, Outcome{SourceID: ent.Base().ID, Type: ent.Type(), Reason: reason})
}

func (w *walker) copied(ctx context.Context, ent domain.Entity, dst string) error {
	if err := w.mapping.Set(ent.Base().ID, dst); err != nil {
		return err
	}
	w.reporter.Report(ctx, Outcome{SourceID: ent.Base().ID, DestinationID: dst, Type: ent.Type()})
	return nil
}

// checkCollision fails when name already exists under destinationID, unless
// UpdateExisting is set.
func (w *walker) checkCollision(ctx context.Context, ent domain.Entity, destinationID string) error {
	if w.opts.UpdateExisting {
		return nil
	}
	existing, err := w.repo.FindEntityID(ctx, ent.Base().Name, destinationID)
	if err != nil {
		return err
	}
	if existing != "" {
		return domain.NewValueError("an entity named %q already exists in this location (%s). %s could not be copied",
			ent.Base().Name, existing, ent.Type())
	}
	return nil
}

func (w *walker) annotations(ent domain.Entity) domain.Annotations {
	if w.opts.SkipCopyAnnotations {
		return nil
	}
	return ent.Base().Annotations.Clone()
}

// entityVisitor copies one entity of each variant.
type entityVisitor struct {
	*walker
	ctx           context.Context
	destinationID string
}

// VisitProject merges p into the destination project, which copy has
// already checked.
func (v *entityVisitor) VisitProject(p *domain.Project) error {
	v.merged = append(v.merged, Pair{Source: p.ID, Destination: v.destinationID})
	v.reporter.Report(v.ctx, Outcome{SourceID: p.ID, DestinationID: v.destinationID, Type: p.Type(), Merged: true})
	return v.copyChildren(v.ctx, p.ID, v.destinationID)
}

func (v *entityVisitor) VisitFolder(f *domain.Folder) error {
	if err := v.checkCollision(v.ctx, f, v.destinationID); err != nil {
		return err
	}
	created, err := v.repo.CreateEntity(v.ctx, &domain.Folder{EntityBase: domain.EntityBase{
		Name:        f.Name,
		ParentID:    v.destinationID,
		Annotations: v.annotations(f),
	}})
	if err != nil {
		return err
	}
	if err := v.copied(v.ctx, f, created.Base().ID); err != nil {
		return err
	}
	return v.copyChildren(v.ctx, f.ID, created.Base().ID)
}

func (v *entityVisitor) VisitFile(f *domain.File) error {
	if v.opts.excludes(domain.EntityTypeFile) {
		v.skip(v.ctx, f, "file excluded")
		return nil
	}
	if err := v.checkCollision(v.ctx, f, v.destinationID); err != nil {
		return err
	}

	activity, err := resolveProvenance(v.ctx, v.repo, v.mode, f)
	if err != nil {
		return err
	}

	version := f.VersionNumber
	handle, err := v.repo.GetFileHandle(v.ctx, f.ID, &version)
	if err != nil {
		return err
	}

	handleID := handle.ID
	if handle.CreatedBy != v.principal {
		contentType := handle.ContentType
		fileName := handle.FileName
		copied, err := v.batch.copyOne(v.ctx, domain.FileHandleCopyRequest{
			FileHandleID:        handle.ID,
			AssociateObjectType: domain.ObjectTypeFileEntity,
			AssociateObjectID:   f.ID,
			NewContentType:      &contentType,
			NewFileName:         &fileName,
		}, "dataFileHandleId")
		if err != nil {
			return err
		}
		handleID = copied.ID
		v.associate(handle.ID, handleID)
	}

	created, err := v.repo.CreateEntity(v.ctx, &domain.File{
		EntityBase: domain.EntityBase{
			Name:        f.Name,
			ParentID:    v.destinationID,
			Annotations: v.annotations(f),
		},
		DataFileHandleID: handleID,
	})
	if err != nil {
		return err
	}
	if activity != nil {
		if _, err := v.repo.SetProvenance(v.ctx, created.Base().ID, activity); err != nil {
			return err
		}
	}
	return v.copied(v.ctx, f, created.Base().ID)
}

// associate tells the cache that newID has the bytes of originalID.
func (v *entityVisitor) associate(originalID, newID string) {
	if v.cache == nil {
		return
	}
	if err := v.cache.Associate(v.ctx, originalID, newID); err != nil {
		v.log.Warn("failed to associate cached file handle",
			zap.String(logging.FieldSource, originalID),
			zap.String(logging.FieldDestination, newID),
			zap.Error(err))
	}
}

func (v *entityVisitor) VisitLink(l *domain.Link) error {
	if v.opts.excludes(domain.EntityTypeLink) {
		v.skip(v.ctx, l, "link excluded")
		return nil
	}
	if err := v.checkCollision(v.ctx, l, v.destinationID); err != nil {
		return err
	}
	created, err := v.repo.CreateEntity(v.ctx, &domain.Link{
		EntityBase: domain.EntityBase{
			Name:        l.Name,
			ParentID:    v.destinationID,
			Annotations: v.annotations(l),
		},
		LinksTo: l.LinksTo,
	})
	if domain.IsNotFound(err) {
		v.log.Warn("link target no longer exists",
			zap.String(logging.FieldSource, l.ID),
			zap.String("target", l.LinksTo.TargetID))
		v.skip(v.ctx, l, fmt.Sprintf("the target of this link (%s) no longer exists", l.LinksTo.TargetID))
		return nil
	}
	if err != nil {
		return err
	}
	return v.copied(v.ctx, l, created.Base().ID)
}

func (v *entityVisitor) VisitTable(t *domain.Table) error {
	if v.opts.excludes(domain.EntityTypeTable) {
		v.skip(v.ctx, t, "table excluded")
		return nil
	}
	if err := v.checkCollision(v.ctx, t, v.destinationID); err != nil {
		return err
	}

	rows, err := v.repo.QueryRows(v.ctx, t.ID, "SELECT * FROM "+t.ID)
	if err != nil {
		return err
	}

	created, err := v.repo.CreateEntity(v.ctx, &domain.Table{
		EntityBase: domain.EntityBase{
			Name:        t.Name,
			ParentID:    v.destinationID,
			Annotations: v.annotations(t),
		},
		ColumnIDs: append([]string(nil), t.ColumnIDs...),
	})
	if err != nil {
		return err
	}
	if rows != nil && len(rows.Rows) > 0 {
		rows.TableID = created.Base().ID
		if _, err := v.repo.AppendRows(v.ctx, created.Base().ID, rows); err != nil {
			return err
		}
	}
	return v.copied(v.ctx, t, created.Base().ID)
}
