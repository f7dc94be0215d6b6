// Package docstore is a key-value document service: documents are JSON
// objects grouped into collections and addressed by key.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotFound is returned when no document exists under a key.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the key is taken.
	ErrAlreadyExists = errors.New("document already exists")
)

// Document is a JSON object.
type Document map[string]any

// Store persists documents.
type Store interface {
	// Get returns the full document, or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)
	// Set writes the full document, replacing any existing one.
	Set(ctx context.Context, collection, key string, doc Document) error
	// Create writes the document only if the key is free, else ErrAlreadyExists.
	Create(ctx context.Context, collection, key string, doc Document) error
	// Update merges top-level fields into an existing document, or ErrNotFound.
	Update(ctx context.Context, collection, key string, fields Document) error
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// Int reads an integer field. JSON numbers arrive as float64 or json.Number
// depending on the backend; fractional values are rejected.
func (d Document) Int(field string) (int, bool) {
	switch v := d[field].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// Strings reads a field holding a sequence of strings. Non-string elements
// make the whole field unreadable.
func (d Document) Strings(field string) ([]string, bool) {
	switch v := d[field].(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Clone deep-copies the document through its JSON encoding.
func (d Document) Clone() (Document, error) {
	return decode(d)
}

// merge overlays fields onto base. Only top-level keys are replaced.
func merge(base, fields Document) Document {
	out := make(Document, len(base)+len(fields))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func decodeBytes(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func decode(doc Document) (Document, error) {
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}
	return decodeBytes(data)
}

func validateKey(collection, key string) error {
	if collection == "" {
		return fmt.Errorf("collection is required")
	}
	if key == "" {
		return fmt.Errorf("document key is required")
	}
	return nil
}
