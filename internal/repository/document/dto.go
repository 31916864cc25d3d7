package document

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
// Reserved fields use the "__" prefix; metadata keys are stored as-is.
func buildHashFields(doc *domain.Document) map[string]string {
	m := make(map[string]string, 2+len(doc.Metadata()))
	m["__content"] = doc.Content()
	m["__vector"] = vectorToBytes(doc.Vector())
	for k, v := range doc.Metadata() {
		m[k] = v
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) domain.Document {
	var content string
	var vector []float32
	metadata := make(map[string]string)

	for k, v := range m {
		switch {
		case k == "__content":
			content = v
		case k == "__vector":
			vector = bytesToVector(v)
		case strings.HasPrefix(k, "__"):
			// unknown reserved field, skip
		default:
			metadata[k] = v
		}
	}

	return domain.ReconstructDocument(id, content, metadata, vector)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
