package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/filetrack-api/internal/domain/model"
)

func TestValidateAttributes(t *testing.T) {
	t.Parallel()
	tags := []model.Tag{
		{ID: "customer", Name: "Customer", Mandatory: true},
		{ID: "year", Name: "Year", Mandatory: true},
		{ID: "notes", Name: "Notes"},
	}

	tests := []struct {
		name             string
		attrs            []model.AttributeValue
		requireMandatory bool
		wantErr          string
	}{
		{
			name:             "all mandatory present",
			attrs:            []model.AttributeValue{{ID: "customer", Value: "acme"}, {ID: "year", Value: "2024"}},
			requireMandatory: true,
		},
		{
			name:             "missing mandatory",
			attrs:            []model.AttributeValue{{ID: "customer", Value: "acme"}, {ID: "notes", Value: "x"}},
			requireMandatory: true,
			wantErr:          "missing mandatory attributes: year",
		},
		{
			name:             "blank mandatory value",
			attrs:            []model.AttributeValue{{ID: "customer", Value: " "}, {ID: "year", Value: "2024"}},
			requireMandatory: true,
			wantErr:          "customer",
		},
		{
			name:    "unknown tag",
			attrs:   []model.AttributeValue{{ID: "colour", Value: "red"}},
			wantErr: `unknown attribute "colour"`,
		},
		{
			name:    "partial update blanking a mandatory tag",
			attrs:   []model.AttributeValue{{ID: "year", Value: "  "}},
			wantErr: `mandatory attribute "year" cannot be blank`,
		},
		{
			name:  "partial update clearing an optional tag",
			attrs: []model.AttributeValue{{ID: "notes", Value: ""}},
		},
		{
			name:  "partial update without mandatory check",
			attrs: []model.AttributeValue{{ID: "notes", Value: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateAttributes(tags, tt.attrs, tt.requireMandatory)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTagNames(t *testing.T) {
	t.Parallel()
	names := TagNames([]model.Tag{{ID: "customer", Name: "Customer"}})
	assert.Equal(t, map[string]string{"customer": "Customer"}, names)
}
