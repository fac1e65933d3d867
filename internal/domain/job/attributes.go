package job

import (
	"fmt"
	"sort"
	"strings"

	"github.com/target/filetrack-api/internal/domain/model"
)

// ValidateAttributes checks incoming attributes against the tag vocabulary.
// Every attribute must name a known tag, and a mandatory tag that is given must not be blank. When
// requireMandatory is set, every mandatory tag must also be present.
func ValidateAttributes(tags []model.Tag, attrs []model.AttributeValue, requireMandatory bool) error {
	known := make(map[string]model.Tag, len(tags))
	for _, t := range tags {
		known[t.ID] = t
	}

	given := make(map[string]string, len(attrs))
	for _, a := range attrs {
		tag, ok := known[a.ID]
		if !ok {
			return fmt.Errorf("unknown attribute %q", a.ID)
		}
		if tag.Mandatory && !requireMandatory && strings.TrimSpace(a.Value) == "" {
			return fmt.Errorf("mandatory attribute %q cannot be blank", a.ID)
		}
		given[a.ID] = a.Value
	}
	if !requireMandatory {
		return nil
	}

	var missing []string
	for _, t := range tags {
		if t.Mandatory && strings.TrimSpace(given[t.ID]) == "" {
			missing = append(missing, t.ID)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing mandatory attributes: %s", strings.Join(missing, ", "))
	}
	return nil
}

// TagNames indexes tag display names by id.
func TagNames(tags []model.Tag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		out[t.ID] = t.Name
	}
	return out
}
