package domain

import (
	"strings"
	"time"
)

// EntityType is the short name of an entity variant
type EntityType string

const (
	EntityTypeProject EntityType = "project"
	EntityTypeFolder  EntityType = "folder"
	EntityTypeFile    EntityType = "file"
	EntityTypeLink    EntityType = "link"
	EntityTypeTable   EntityType = "table"
)

// Concrete type names used on the wire
const (
	ConcreteTypeProject = "org.sagebionetworks.repo.model.Project"
	ConcreteTypeFolder  = "org.sagebionetworks.repo.model.Folder"
	ConcreteTypeFile    = "org.sagebionetworks.repo.model.FileEntity"
	ConcreteTypeLink    = "org.sagebionetworks.repo.model.Link"
	ConcreteTypeTable   = "org.sagebionetworks.repo.model.table.TableEntity"

	ConcreteTypeS3FileHandle      = "org.sagebionetworks.repo.model.file.S3FileHandle"
	ConcreteTypePreviewFileHandle = "org.sagebionetworks.repo.model.file.PreviewFileHandle"
)

var concreteTypes = map[EntityType]string{
	EntityTypeProject: ConcreteTypeProject,
	EntityTypeFolder:  ConcreteTypeFolder,
	EntityTypeFile:    ConcreteTypeFile,
	EntityTypeLink:    ConcreteTypeLink,
	EntityTypeTable:   ConcreteTypeTable,
}

// ConcreteType returns the wire concrete type for an entity type
func (t EntityType) ConcreteType() string {
	return concreteTypes[t]
}

// EntityTypeFromConcrete maps a concrete type back to its short name
func EntityTypeFromConcrete(concrete string) (EntityType, bool) {
	for t, c := range concreteTypes {
		if c == concrete {
			return t, true
		}
	}
	return "", false
}

// Annotations are string keyed, multi-valued entity metadata
type Annotations map[string][]string

// Clone returns a deep copy of the annotations
func (a Annotations) Clone() Annotations {
	if a == nil {
		return nil
	}
	out := make(Annotations, len(a))
	for k, v := range a {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// EntityBase holds the attributes every entity variant shares
type EntityBase struct {
	ID          string      `json:"id,omitempty"`
	ParentID    string      `json:"parentId,omitempty"`
	Name        string      `json:"name"`
	Etag        string      `json:"etag,omitempty"`
	Annotations Annotations `json:"annotations,omitempty"`
	CreatedBy   string      `json:"createdBy,omitempty"`
	ModifiedOn  *time.Time  `json:"modifiedOn,omitempty"`
}

// Base returns the shared attributes. Embedding types inherit it.
func (b *EntityBase) Base() *EntityBase { return b }

// Entity is a node of the remote object graph. The set of variants is closed:
// Project, Folder, File, Link and Table.
type Entity interface {
	Base() *EntityBase
	Type() EntityType
	Accept(v Visitor) error
}

// Visitor dispatches on the entity variant
type Visitor interface {
	VisitProject(*Project) error
	VisitFolder(*Folder) error
	VisitFile(*File) error
	VisitLink(*Link) error
	VisitTable(*Table) error
}

// Project is a top-level container
type Project struct {
	EntityBase
}

// Folder is a container nested under a project or folder
type Folder struct {
	EntityBase
}

// File points at a stored blob through its data file handle
type File struct {
	EntityBase
	DataFileHandleID string `json:"dataFileHandleId"`
	VersionNumber    int    `json:"versionNumber,omitempty"`
}

// Reference identifies an entity and optionally one of its versions
type Reference struct {
	TargetID            string `json:"targetId"`
	TargetVersionNumber *int   `json:"targetVersionNumber,omitempty"`
}

// Link is a named pointer to another entity
type Link struct {
	EntityBase
	LinksTo Reference `json:"linksTo"`
}

// Table is a tabular entity defined by its column ids
type Table struct {
	EntityBase
	ColumnIDs []string `json:"columnIds"`
}

func (*Project) Type() EntityType { return EntityTypeProject }
func (*Folder) Type() EntityType  { return EntityTypeFolder }
func (*File) Type() EntityType    { return EntityTypeFile }
func (*Link) Type() EntityType    { return EntityTypeLink }
func (*Table) Type() EntityType   { return EntityTypeTable }

func (e *Project) Accept(v Visitor) error { return v.VisitProject(e) }
func (e *Folder) Accept(v Visitor) error  { return v.VisitFolder(e) }
func (e *File) Accept(v Visitor) error    { return v.VisitFile(e) }
func (e *Link) Accept(v Visitor) error    { return v.VisitLink(e) }
func (e *Table) Accept(v Visitor) error   { return v.VisitTable(e) }

// NewEntity returns an empty entity of the given type
func NewEntity(t EntityType) (Entity, error) {
	switch t {
	case EntityTypeProject:
		return &Project{}, nil
	case EntityTypeFolder:
		return &Folder{}, nil
	case EntityTypeFile:
		return &File{}, nil
	case EntityTypeLink:
		return &Link{}, nil
	case EntityTypeTable:
		return &Table{}, nil
	default:
		return nil, NewValueError("unsupported entity type: %s", t)
	}
}

// EntityHeader is the summary returned by child listings
type EntityHeader struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          EntityType `json:"type"`
	VersionNumber int        `json:"versionNumber,omitempty"`
}

// HeaderOf builds the header of an entity
func HeaderOf(e Entity) EntityHeader {
	h := EntityHeader{ID: e.Base().ID, Name: e.Base().Name, Type: e.Type()}
	if f, ok := e.(*File); ok {
		h.VersionNumber = f.VersionNumber
	}
	return h
}

// Permissions are the acting principal's rights on an entity
type Permissions struct {
	CanDownload bool `json:"canDownload"`
}

// AccessRequirement is a condition a principal must meet before downloading
type AccessRequirement struct {
	ID          int64  `json:"id"`
	SubjectID   string `json:"subjectId"`
	Description string `json:"description,omitempty"`
	Unmet       bool   `json:"unmet"`
}

// FileHandle describes a stored blob. Entities reference it by id.
type FileHandle struct {
	ID           string `json:"id"`
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType,omitempty"`
	ContentMD5   string `json:"contentMd5,omitempty"`
	ContentSize  int64  `json:"contentSize,omitempty"`
	ConcreteType string `json:"concreteType"`
	CreatedBy    string `json:"createdBy,omitempty"`
}

// IsPreview reports whether the handle is a generated preview
func (h *FileHandle) IsPreview() bool {
	return strings.HasSuffix(h.ConcreteType, ".PreviewFileHandle")
}

// Object types a file handle copy can be associated with
const (
	ObjectTypeFileEntity     = "FileEntity"
	ObjectTypeWikiAttachment = "WikiAttachment"
	ObjectTypeTableEntity    = "TableEntity"
)

// FailureCode explains why a single file handle could not be copied
type FailureCode string

const (
	FailureUnauthorized FailureCode = "UNAUTHORIZED"
	FailureNotFound     FailureCode = "NOT_FOUND"
)

// FileHandleCopyRequest asks for a copy of one file handle
type FileHandleCopyRequest struct {
	FileHandleID        string  `json:"fileHandleId"`
	AssociateObjectType string  `json:"associateObjectType"`
	AssociateObjectID   string  `json:"associateObjectId"`
	NewContentType      *string `json:"newContentType,omitempty"`
	NewFileName         *string `json:"newFileName,omitempty"`
}

// FileHandleCopyResult is either a new handle or a failure code
type FileHandleCopyResult struct {
	OriginalFileHandleID string      `json:"originalFileHandleId"`
	NewFileHandle        *FileHandle `json:"newFileHandle,omitempty"`
	FailureCode          FailureCode `json:"failureCode,omitempty"`
}

// Failed reports whether the copy of this handle failed
func (r FileHandleCopyResult) Failed() bool {
	return r.FailureCode != "" || r.NewFileHandle == nil
}

// UsedEntity is one input of an activity: an entity reference or a URL
type UsedEntity struct {
	Reference   *Reference `json:"reference,omitempty"`
	URL         string     `json:"url,omitempty"`
	Name        string     `json:"name,omitempty"`
	WasExecuted bool       `json:"wasExecuted"`
}

// Activity is the provenance record attached to a file version
type Activity struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Used        []UsedEntity `json:"used,omitempty"`
}

// WikiHeader is one entry of the flat header list of a wiki tree
type WikiHeader struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parentId,omitempty"`
}

// WikiPage is a markdown page owned by an entity. ParentWikiID is empty only
// for the root page.
type WikiPage struct {
	ID                      string   `json:"id,omitempty"`
	ParentWikiID            string   `json:"parentWikiId,omitempty"`
	Title                   string   `json:"title"`
	Markdown                string   `json:"markdown"`
	AttachmentFileHandleIDs []string `json:"attachmentFileHandleIds,omitempty"`
	Etag                    string   `json:"etag,omitempty"`
}

// Row is one table row
type Row struct {
	Values []string `json:"values"`
}

// RowSet is the result of a table query. Headers are column ids.
type RowSet struct {
	TableID string   `json:"tableId"`
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Event represents an event in the copy journal
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Principal    *string   `json:"principal,omitempty" db:"principal"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceID   *string   `json:"resource_id,omitempty" db:"resource_id"`
	EventType    string    `json:"event_type" db:"event_type"`
	Payload      *string   `json:"payload,omitempty" db:"payload"` // JSON
}
