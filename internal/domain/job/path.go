// Package job holds the pure rules for laying out job files in the blob store.
package job

import (
	"strings"

	"github.com/target/filetrack-api/internal/domain/model"
)

// DerivePath builds the blob key for leafName from the ordered path schema and the job's attribute values.
//
// Positions are visited from 0 to len(schema)-1. A position with no schema member, or whose tag has
// no attribute value, contributes an empty segment. Values are used verbatim; see UnsafePathValue.
func DerivePath(schema []model.PathMember, attributes map[string]string, leafName string) string {
	byOrder := make(map[int]string, len(schema))
	for _, m := range schema {
		if _, taken := byOrder[m.Order]; !taken {
			byOrder[m.Order] = m.ID
		}
	}

	var b strings.Builder
	for i := range len(schema) {
		if id, ok := byOrder[i]; ok {
			b.WriteString(attributes[id])
		}
		b.WriteByte('/')
	}
	b.WriteString(leafName)
	return b.String()
}

// UnsafePathValue reports whether an attribute value would add or escape path segments when used in DerivePath.
func UnsafePathValue(v string) bool {
	if strings.ContainsAny(v, `/\`) {
		return true
	}
	return v == "." || v == ".."
}

// UnsafeAttributes returns the ids of schema attributes whose values are unsafe path segments.
func UnsafeAttributes(schema []model.PathMember, attributes map[string]string) []string {
	var out []string
	for _, m := range schema {
		if v, ok := attributes[m.ID]; ok && UnsafePathValue(v) {
			out = append(out, m.ID)
		}
	}
	return out
}
