package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONArray(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Record
	}{
		{
			name:  "plain array",
			input: `[{"a":1},{"b":"x"}]`,
			want:  []Record{{"a": float64(1)}, {"b": "x"}},
		},
		{
			name:  "fenced array",
			input: "```json\n[{\"a\":1}]\n```",
			want:  []Record{{"a": float64(1)}},
		},
		{
			name:  "prose around array",
			input: "Hier sind die Events:\n[{\"a\":1}]\nViel Spaß!",
			want:  []Record{{"a": float64(1)}},
		},
		{
			name:  "truncated after complete element",
			input: `[{"a":1},{"b":2`,
			want:  []Record{{"a": float64(1)}},
		},
		{
			name:  "truncated inside fenced block",
			input: "```json\n[{\"a\":1},{\"b\":2,\"c\":[1,\n```",
			want:  []Record{{"a": float64(1)}},
		},
		{
			name:  "no json",
			input: "no events found",
			want:  []Record{},
		},
		{
			name:  "empty",
			input: "",
			want:  []Record{},
		},
		{
			name:  "object instead of array",
			input: `{"a":1}`,
			want:  []Record{},
		},
		{
			name:  "non-object elements dropped",
			input: `[1, "x", {"a":1}, null]`,
			want:  []Record{{"a": float64(1)}},
		},
		{
			name:  "garbage span",
			input: "[this is not json]",
			want:  []Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseJSONArray(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	records, err := ExtractJSONArray("no events here")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = ExtractJSONArray(`[{"title":"x"}]`)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = ExtractJSONArray("[this is not json]")
	assert.ErrorIs(t, err, ErrUnparseable)
}
