package upload

import (
	"context"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Chunk is one change between two files.
type Chunk struct {
	Type    string `json:"type"` // "added" or "removed"
	Content string `json:"content"`
}

// Diff is the semantic difference between two uploads.
type Diff struct {
	BaseID  string  `json:"base_id"`
	HeadID  string  `json:"head_id"`
	Added   int     `json:"added"`
	Removed int     `json:"removed"`
	Chunks  []Chunk `json:"chunks"`
}

// Diff compares the content of base against head.
func (s *Store) Diff(ctx context.Context, baseID, headID string) (*Diff, error) {
	base, err := s.Content(ctx, baseID)
	if err != nil {
		return nil, err
	}
	head, err := s.Content(ctx, headID)
	if err != nil {
		return nil, err
	}
	d := TextDiff(string(base), string(head))
	d.BaseID, d.HeadID = baseID, headID
	return d, nil
}

// TextDiff computes a character-level diff cleaned up for readability.
// Added and Removed count changed characters; whitespace-only chunks are
// counted but not listed.
func TextDiff(base, head string) *Diff {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(base, head, true))

	out := &Diff{Chunks: []Chunk{}}
	for _, d := range diffs {
		var kind string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = "added"
			out.Added += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			kind = "removed"
			out.Removed += len([]rune(d.Text))
		case diffmatchpatch.DiffEqual:
			continue
		}
		if strings.TrimSpace(d.Text) != "" {
			out.Chunks = append(out.Chunks, Chunk{Type: kind, Content: d.Text})
		}
	}
	return out
}
