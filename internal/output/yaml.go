package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes YAML. Several documents are written as a sequence.
type YAMLWriter struct {
	w    *bufio.Writer
	docs []any
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w)}
}

// Write buffers a document until Flush.
func (w *YAMLWriter) Write(doc any) error {
	w.docs = append(w.docs, doc)
	return nil
}

// Flush writes the buffered documents.
func (w *YAMLWriter) Flush() error {
	if len(w.docs) == 0 {
		return w.w.Flush()
	}
	var v any = w.docs
	if len(w.docs) == 1 {
		v = w.docs[0]
	}
	w.docs = nil

	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
