package job

import "github.com/target/filetrack-api/internal/domain/model"

// AttributesChanged reports whether any incoming attribute differs from the stored value for the same tag.
// An incoming attribute with no stored counterpart counts as a change; stored attributes missing from
// incoming do not.
func AttributesChanged(stored []model.JobAttribute, incoming []model.AttributeValue) bool {
	current := model.AttributeMap(stored)
	for _, a := range incoming {
		v, ok := current[a.ID]
		if !ok || v != a.Value {
			return true
		}
	}
	return false
}

// MergeAttributes overlays incoming values on the stored attributes.
func MergeAttributes(stored []model.JobAttribute, incoming []model.AttributeValue) map[string]string {
	merged := model.AttributeMap(stored)
	for _, a := range incoming {
		merged[a.ID] = a.Value
	}
	return merged
}

// FileSetPlan partitions a job's stored files.
type FileSetPlan struct {
	ToDelete []model.JobFile
	ToRetain []model.JobFile
}

// ReconcileFiles splits current into files to delete (id not in keepIDs) and files to retain.
// Input order is preserved in both outputs.
func ReconcileFiles(current []model.JobFile, keepIDs []string) FileSetPlan {
	keep := make(map[string]struct{}, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = struct{}{}
	}
	var plan FileSetPlan
	for _, f := range current {
		if _, ok := keep[f.ID]; ok {
			plan.ToRetain = append(plan.ToRetain, f)
		} else {
			plan.ToDelete = append(plan.ToDelete, f)
		}
	}
	return plan
}

// FileMove is a retained file whose blob must move to a new key.
type FileMove struct {
	File    model.JobFile
	NewPath string
}

// PlanMoves recomputes the blob path of each retained file and returns those whose path changes.
func PlanMoves(schema []model.PathMember, attributes map[string]string, retained []model.JobFile) []FileMove {
	var moves []FileMove
	for _, f := range retained {
		next := DerivePath(schema, attributes, f.FileName)
		if next != f.BlobPath {
			moves = append(moves, FileMove{File: f, NewPath: next})
		}
	}
	return moves
}

// UnreferencedKeys returns the distinct keys of released that do not appear in kept, in first-seen order.
// Several files of one job can share a blob key, so a key is only safe to delete once no surviving
// file refers to it.
func UnreferencedKeys(released, kept []string) []string {
	skip := make(map[string]struct{}, len(kept)+len(released))
	for _, k := range kept {
		skip[k] = struct{}{}
	}
	var out []string
	for _, k := range released {
		if _, ok := skip[k]; ok {
			continue
		}
		skip[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
