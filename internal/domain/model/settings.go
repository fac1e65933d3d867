package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxTagNameLen = 255

// Tag is an attribute key that jobs can be classified by.
type Tag struct {
	ID        string `json:"id"        db:"id"`
	Name      string `json:"name"      db:"name"`
	Mandatory bool   `json:"mandatory" db:"mandatory"`
}

// Validate validates a Tag.
func (t *Tag) Validate() error {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	if t.ID == "" {
		return errors.New("tag id is required")
	}
	if strings.Contains(t.ID, "/") {
		return fmt.Errorf("tag id %q must not contain '/'", t.ID)
	}
	if t.Name == "" {
		return errors.New("tag name is required")
	}
	if utf8.RuneCountInString(t.Name) > maxTagNameLen {
		return errors.New("tag name cannot exceed 255 characters")
	}
	return nil
}

// PathMember places a tag at a position of the blob path prefix.
type PathMember struct {
	ID    string `json:"id"    db:"id"`
	Order int    `json:"order" db:"position"`
}

// ValidatePathSchema checks that members are unique and their orders are contiguous from 0.
func ValidatePathSchema(members []PathMember) error {
	seen := make(map[string]struct{}, len(members))
	orders := make([]int, 0, len(members))
	for _, m := range members {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return errors.New("path member id is required")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate path member %q", id)
		}
		seen[id] = struct{}{}
		orders = append(orders, m.Order)
	}
	sort.Ints(orders)
	for i, o := range orders {
		if o != i {
			return fmt.Errorf("path member orders must be contiguous from 0, got %v", orders)
		}
	}
	return nil
}

// TagChanges is the diff between stored tags and a desired tag set.
type TagChanges struct {
	Add    []Tag `json:"added"`
	Update []Tag `json:"updated"`
	Delete []Tag `json:"deleted"`
}

// Empty reports whether applying the diff would change nothing.
func (c TagChanges) Empty() bool {
	return len(c.Add) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}

// DiffTags computes the changes needed to turn current into desired.
// Tags present in both are updated only when name or mandatory differ.
func DiffTags(current, desired []Tag) TagChanges {
	byID := make(map[string]Tag, len(current))
	for _, t := range current {
		byID[t.ID] = t
	}
	var out TagChanges
	kept := make(map[string]struct{}, len(desired))
	for _, t := range desired {
		kept[t.ID] = struct{}{}
		old, ok := byID[t.ID]
		switch {
		case !ok:
			out.Add = append(out.Add, t)
		case old.Name != t.Name || old.Mandatory != t.Mandatory:
			out.Update = append(out.Update, t)
		}
	}
	for _, t := range current {
		if _, ok := kept[t.ID]; !ok {
			out.Delete = append(out.Delete, t)
		}
	}
	return out
}
