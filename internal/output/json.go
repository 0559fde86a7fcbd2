package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter writes JSON. A single document is written as an object,
// several as an array.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
	docs   []any
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{w: bufio.NewWriter(w), pretty: pretty, indent: indent}
}

// Write buffers a document until Flush.
func (w *JSONWriter) Write(doc any) error {
	w.docs = append(w.docs, doc)
	return nil
}

// Flush writes the buffered documents. Nothing is written when the buffer
// is empty, so Close after Flush does not repeat output.
func (w *JSONWriter) Flush() error {
	if len(w.docs) == 0 {
		return w.w.Flush()
	}
	var v any = w.docs
	if len(w.docs) == 1 {
		v = w.docs[0]
	}
	w.docs = nil

	var out []byte
	var err error
	if w.pretty {
		out, err = json.MarshalIndent(v, "", w.indent)
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	if _, err := w.w.Write(append(out, '\n')); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes one compact JSON document per line.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: bufio.NewWriter(w)}
}

// Write writes a document as a line.
func (w *JSONLWriter) Write(doc any) error {
	out, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(append(out, '\n')); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
