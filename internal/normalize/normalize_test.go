package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{
			name:  "plain object",
			input: `{"happy":0.5,"calm":0.5}`,
			want:  map[string]any{"happy": 0.5, "calm": 0.5},
		},
		{
			name:  "json fence",
			input: "```json\n{\"happy\":0.7,\"calm\":0.3}\n```",
			want:  map[string]any{"happy": 0.7, "calm": 0.3},
		},
		{
			name:  "bare fence",
			input: "```\n{\"happy\":1}\n```",
			want:  map[string]any{"happy": 1.0},
		},
		{
			name:  "prose around object",
			input: "Here is your analysis: {\"happy\":0.4,\"summary\":\"ok\"} Hope that helps!",
			want:  map[string]any{"happy": 0.4, "summary": "ok"},
		},
		{
			name:  "prose before fenced block",
			input: "Sure! ```json\n{\"happy\":0.6,\"calm\":0.2,\"stressed\":0.1,\"anxious\":0.1,\"summary\":\"feeling good\"}\n```",
			want: map[string]any{
				"happy": 0.6, "calm": 0.2, "stressed": 0.1, "anxious": 0.1, "summary": "feeling good",
			},
		},
		{
			name:  "trailing comma repaired",
			input: "result: {\"happy\":0.5,\"calm\":0.5,}",
			want:  map[string]any{"happy": 0.5, "calm": 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFailures(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"I could not analyze this recording.",
		"} backwards {",
		"{not json at all}",
	}

	for _, input := range inputs {
		_, err := Parse(input)
		assert.True(t, errors.Is(err, ErrNoJSON), "input %q: expected ErrNoJSON, got %v", input, err)
	}
}

func TestParseRoundTrip(t *testing.T) {
	obj := map[string]any{
		"happy":   0.25,
		"calm":    0.25,
		"nested":  map[string]any{"list": []any{"a", 1.0, true}},
		"summary": "steady {not a brace issue}",
	}
	encoded, err := MarshalNoEscape(obj)
	require.NoError(t, err)

	for _, text := range []string{
		string(encoded),
		"```json\n" + string(encoded) + "\n```",
		"here you go: " + string(encoded) + " hope that helps",
	} {
		got, err := Parse(text)
		require.NoError(t, err)
		assert.Equal(t, obj, got)
	}
}

func TestParseNonObjectValue(t *testing.T) {
	got, err := Parse("[1, 2]")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, got)
}

func TestExtract(t *testing.T) {
	raw, err := Extract("```json\n{\"summary\": \"a <b> & c\"}\n```")
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"a <b> & c"}`, string(raw))
	assert.Contains(t, string(raw), "<b>")
}

func TestUnmarshalFlexDoubleEscaped(t *testing.T) {
	var out map[string]string
	err := UnmarshalFlex([]byte(`"{\"summary\":\"caf\\\\u00e9\"}"`), &out)
	require.NoError(t, err)
	assert.Equal(t, "café", out["summary"])
}
