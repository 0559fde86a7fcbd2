package record

import (
	"fmt"
	"strings"
)

// NoteKind classifies a note so callers can filter the trail.
type NoteKind string

const (
	NoteInfo          NoteKind = "info"
	NoteMetadata      NoteKind = "metadata"
	NoteAllocation    NoteKind = "allocation"
	NoteParseError    NoteKind = "parse_error"
	NoteStrategyError NoteKind = "strategy_error"
	NoteHeuristic     NoteKind = "heuristic"
	NoteArtifact      NoteKind = "artifact"
	NoteRefine        NoteKind = "refine"
)

// Note is a single entry in a record's diagnostic trail.
type Note struct {
	Kind    NoteKind `json:"kind" yaml:"kind"`
	Message string   `json:"message" yaml:"message"`
}

// Notes is an append-only, ordered list of notes.
type Notes []Note

// Add appends a note. Empty messages are dropped.
func (n *Notes) Add(kind NoteKind, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	*n = append(*n, Note{Kind: kind, Message: message})
}

// Addf appends a formatted note.
func (n *Notes) Addf(kind NoteKind, format string, args ...any) {
	n.Add(kind, fmt.Sprintf(format, args...))
}

// Filter returns the notes of the given kind, in order.
func (n Notes) Filter(kind NoteKind) Notes {
	var out Notes
	for _, note := range n {
		if note.Kind == kind {
			out = append(out, note)
		}
	}
	return out
}

// String joins all messages into the single human-readable notes field.
func (n Notes) String() string {
	parts := make([]string, 0, len(n))
	for _, note := range n {
		parts = append(parts, note.Message)
	}
	return strings.Join(parts, " ")
}

func (n Notes) clone() Notes {
	if len(n) == 0 {
		return nil
	}
	out := make(Notes, len(n))
	copy(out, n)
	return out
}
