package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// metadataReservedPrefix marks storage-internal fields; metadata keys may not use it.
const metadataReservedPrefix = "__"

// Document is a corpus entry (immutable value object).
type Document struct {
	id       string
	content  string
	metadata map[string]string
	vector   []float32
}

// NewDocument validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Content: non-empty, max 160KB.
// Metadata keys may not start with "__" (reserved for storage fields).
func NewDocument(id, content string, metadata map[string]string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	for k := range metadata {
		if k == "" {
			return Document{}, fmt.Errorf("metadata key must not be empty")
		}
		if strings.HasPrefix(k, metadataReservedPrefix) {
			return Document{}, fmt.Errorf("metadata key %q uses reserved prefix %q", k, metadataReservedPrefix)
		}
	}

	return Document{
		id:       id,
		content:  content,
		metadata: cloneStringMap(metadata),
	}, nil
}

// ReconstructDocument creates a Document without validation (storage hydration).
func ReconstructDocument(id, content string, metadata map[string]string, vector []float32) Document {
	return Document{id: id, content: content, metadata: metadata, vector: vector}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Metadata returns the metadata fields.
func (d *Document) Metadata() map[string]string { return d.metadata }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// SetVector sets the vector in place (mutation).
func (d *Document) SetVector(v []float32) { d.vector = v }

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
