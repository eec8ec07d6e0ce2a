package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		obj     any
		wantErr bool
		field   string
	}{
		{
			name: "valid scores with summary",
			obj: map[string]any{
				"happy": 0.6, "calm": 0.2, "stressed": 0.1, "anxious": 0.1, "summary": "feeling good",
			},
		},
		{
			name: "extra numeric labels count toward the sum",
			obj: map[string]any{
				"happy": 0.3, "calm": 0.2, "stressed": 0.2, "anxious": 0.2, "sad": 0.2,
			},
		},
		{
			name: "lower bound inclusive",
			obj:  map[string]any{"happy": 0.2, "calm": 0.2, "stressed": 0.2, "anxious": 0.2},
		},
		{
			name: "upper bound inclusive",
			obj:  map[string]any{"happy": 0.3, "calm": 0.3, "stressed": 0.3, "anxious": 0.3},
		},
		{
			name: "just inside lower bound",
			obj:  map[string]any{"happy": 0.2, "calm": 0.2, "stressed": 0.2, "anxious": 0.21},
		},
		{
			name: "just inside upper bound",
			obj:  map[string]any{"happy": 0.3, "calm": 0.3, "stressed": 0.3, "anxious": 0.29},
		},
		{
			name:    "just below lower bound",
			obj:     map[string]any{"happy": 0.2, "calm": 0.2, "stressed": 0.2, "anxious": 0.19},
			wantErr: true,
		},
		{
			name:    "just above upper bound",
			obj:     map[string]any{"happy": 0.3, "calm": 0.3, "stressed": 0.3, "anxious": 0.31},
			wantErr: true,
		},
		{
			name: "extra label keeps the sum in band",
			obj:  map[string]any{"happy": 0.4, "calm": 0.2, "stressed": 0.1, "anxious": 0.1, "sad": 0.1},
		},
		{
			name:    "extra label pushes the sum out of band",
			obj:     map[string]any{"happy": 0.4, "calm": 0.3, "stressed": 0.2, "anxious": 0.1, "sad": 0.3},
			wantErr: true,
		},
		{
			name:    "missing happy",
			obj:     map[string]any{"calm": 0.4, "stressed": 0.3, "anxious": 0.3},
			wantErr: true,
			field:   "happy",
		},
		{
			name:    "missing calm",
			obj:     map[string]any{"happy": 0.4, "stressed": 0.3, "anxious": 0.3},
			wantErr: true,
			field:   "calm",
		},
		{
			name:    "missing stressed",
			obj:     map[string]any{"happy": 0.4, "calm": 0.3, "anxious": 0.3},
			wantErr: true,
			field:   "stressed",
		},
		{
			name:    "not an object",
			obj:     []any{0.5, 0.5},
			wantErr: true,
		},
		{
			name:    "missing anxious",
			obj:     map[string]any{"happy": 0.5, "calm": 0.3, "stressed": 0.2},
			wantErr: true,
			field:   "anxious",
		},
		{
			name:    "non-numeric happy",
			obj:     map[string]any{"happy": "high", "calm": 0.3, "stressed": 0.2, "anxious": 0.3},
			wantErr: true,
			field:   "happy",
		},
		{
			name:    "sum too high",
			obj:     map[string]any{"happy": 0.9, "calm": 0.9, "stressed": 0.1, "anxious": 0.1},
			wantErr: true,
		},
		{
			name:    "sum too low",
			obj:     map[string]any{"happy": 0.1, "calm": 0.1, "stressed": 0.1, "anxious": 0.1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.obj)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.obj, got)
				return
			}

			var schemaErr *Error
			require.True(t, errors.As(err, &schemaErr), "expected *schema.Error, got %v", err)
			assert.Equal(t, tt.field, schemaErr.Field)
			assert.Nil(t, got)
		})
	}
}

func TestValidateLeavesObjectUntouched(t *testing.T) {
	obj := map[string]any{"happy": 0.4, "calm": 0.3, "stressed": 0.2, "anxious": 0.1}
	got, err := Validate(obj)
	require.NoError(t, err)
	_, hasSummary := got["summary"]
	assert.False(t, hasSummary, "validator must not fill defaults")
	assert.Len(t, got, 4)
}
