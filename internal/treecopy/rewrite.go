package treecopy

import (
	"regexp"
	"strings"
)

// referencePattern matches "synN/wiki/M" links and bare "synN" ids.
var referencePattern = regexp.MustCompile(`\bsyn\d+(?:/wiki/\d+)?\b`)

// Rewrite describes how references in copied markdown are remapped.
type Rewrite struct {
	SourceOwnerID      string
	DestinationOwnerID string
	// WikiIDs maps source wiki page ids to destination ids.
	WikiIDs map[string]string
	// EntityIDs maps source entity ids to destination ids.
	EntityIDs map[string]string

	// UpdateLinks rewrites source owner wiki links and the bare source owner id.
	UpdateLinks bool
	// UpdateSynIDs rewrites bare ids found in EntityIDs.
	UpdateSynIDs bool
}

// RewriteMarkdown returns markdown with its references remapped. Every
// reference is rewritten at most once, so chained mappings never cascade,
// and text without mapped references is returned unchanged.
func RewriteMarkdown(markdown string, r Rewrite) string {
	if !r.UpdateLinks && !r.UpdateSynIDs {
		return markdown
	}
	return referencePattern.ReplaceAllStringFunc(markdown, func(token string) string {
		owner, wikiID, isLink := strings.Cut(token, "/wiki/")
		if !isLink {
			return r.entity(token)
		}
		if r.UpdateLinks && owner == r.SourceOwnerID {
			if newID, ok := r.WikiIDs[wikiID]; ok {
				return r.DestinationOwnerID + "/wiki/" + newID
			}
		}
		return r.entity(owner) + "/wiki/" + wikiID
	})
}

// entity rewrites one bare entity id.
func (r Rewrite) entity(entityID string) string {
	if r.UpdateLinks && r.SourceOwnerID != "" && entityID == r.SourceOwnerID {
		return r.DestinationOwnerID
	}
	if r.UpdateSynIDs {
		if newID, ok := r.EntityIDs[entityID]; ok {
			return newID
		}
	}
	return entityID
}
