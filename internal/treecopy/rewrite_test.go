package treecopy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteMarkdown(t *testing.T) {
	links := Rewrite{
		SourceOwnerID:      "syn1",
		DestinationOwnerID: "syn9",
		WikiIDs:            map[string]string{"10": "90", "11": "91"},
		EntityIDs:          map[string]string{"syn1": "syn9", "syn2": "syn8", "syn8": "syn7"},
		UpdateLinks:        true,
		UpdateSynIDs:       true,
	}

	tests := []struct {
		name     string
		markdown string
		rewrite  Rewrite
		want     string
	}{
		{
			name:     "wiki link",
			markdown: "[child](#!Synapse:syn1/wiki/11)",
			rewrite:  links,
			want:     "[child](#!Synapse:syn9/wiki/91)",
		},
		{
			name:     "unmapped wiki link keeps page id",
			markdown: "syn1/wiki/55",
			rewrite:  links,
			want:     "syn9/wiki/55",
		},
		{
			name:     "bare owner",
			markdown: "owned by syn1.",
			rewrite:  links,
			want:     "owned by syn9.",
		},
		{
			name:     "entity ids",
			markdown: "see syn2 and syn3",
			rewrite:  links,
			want:     "see syn8 and syn3",
		},
		{
			name:     "chained mapping does not cascade",
			markdown: "syn2 syn8",
			rewrite:  links,
			want:     "syn8 syn7",
		},
		{
			name:     "word boundaries",
			markdown: "syn12 xsyn1 syn1a syn1",
			rewrite:  links,
			want:     "syn12 xsyn1 syn1a syn9",
		},
		{
			name:     "other owner link uses entity map",
			markdown: "syn2/wiki/10",
			rewrite:  links,
			want:     "syn8/wiki/10",
		},
		{
			name:     "links only",
			markdown: "syn1/wiki/10 syn2",
			rewrite:  Rewrite{SourceOwnerID: "syn1", DestinationOwnerID: "syn9", WikiIDs: links.WikiIDs, EntityIDs: links.EntityIDs, UpdateLinks: true},
			want:     "syn9/wiki/90 syn2",
		},
		{
			name:     "ids only",
			markdown: "syn1/wiki/10 syn2",
			rewrite:  Rewrite{SourceOwnerID: "syn1", DestinationOwnerID: "syn9", WikiIDs: links.WikiIDs, EntityIDs: links.EntityIDs, UpdateSynIDs: true},
			want:     "syn9/wiki/10 syn8",
		},
		{
			name:     "disabled",
			markdown: "syn1/wiki/10 syn2",
			rewrite:  Rewrite{SourceOwnerID: "syn1", DestinationOwnerID: "syn9", WikiIDs: links.WikiIDs, EntityIDs: links.EntityIDs},
			want:     "syn1/wiki/10 syn2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteMarkdown(tt.markdown, tt.rewrite))
		})
	}
}

func TestRewriteMarkdownNoOp(t *testing.T) {
	r := Rewrite{
		SourceOwnerID:      "syn1",
		DestinationOwnerID: "syn9",
		WikiIDs:            map[string]string{"10": "90"},
		EntityIDs:          map[string]string{"syn5": "syn6"},
		UpdateLinks:        true,
		UpdateSynIDs:       true,
	}
	inputs := []string{
		"",
		"plain text with no ids",
		"syn2/wiki/10 and syn3, syn55, syn15",
		"unicode ✓ syn4: done\n\n* list",
	}
	for _, in := range inputs {
		assert.Equal(t, in, RewriteMarkdown(in, r))
	}
}
