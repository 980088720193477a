package enrichment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnup/eventscout/internal/logging"
)

func TestExtractFromURL(t *testing.T) {
	low := validRecord("Low Confidence", 0.3, "")
	incomplete := validRecord("No Start", 0.9, "")
	delete(incomplete, "time_start")
	gen := NewMockGeneratorText("```json\n" + candidateJSON(t, low, incomplete) + "\n```")

	x := NewExtractor(gen, "key", logging.Discard())
	got, err := x.ExtractFromURL(context.Background(), "https://club.de/programm")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Low Confidence", got[0].Title)
	assert.InDelta(t, 0.3, got[0].Confidence, 1e-9, "confidence is reported, not filtered")

	req := gen.Calls()[0]
	require.Len(t, req.Tools, 1, "the model fetches the page through web search")
	assert.Equal(t, 0.1, *req.Temperature)
	assert.Equal(t, 4096, req.MaxOutputTokens)
	assert.Contains(t, req.Contents[0].Parts[0].Text, "Erfinde NIEMALS Daten")
	assert.Contains(t, req.Contents[0].Parts[1].Text, "https://club.de/programm")
}

func TestExtractFromTextTruncates(t *testing.T) {
	gen := NewMockGeneratorText("[]")
	x := NewExtractor(gen, "key", logging.Discard())

	got, err := x.ExtractFromText(context.Background(), strings.Repeat("a", 20000), "https://insta.com/p/1")
	require.NoError(t, err)
	assert.Empty(t, got)

	req := gen.Calls()[0]
	assert.Empty(t, req.Tools)
	content := req.Contents[0].Parts[1].Text
	assert.True(t, strings.HasPrefix(content, "Quelle: https://insta.com/p/1\n\nInhalt:\n"))
	assert.Equal(t, 15000, strings.Count(content, "a"))
}

func TestExtractErrors(t *testing.T) {
	ctx := context.Background()

	x := NewExtractor(NewMockGeneratorText("[]"), "", logging.Discard())
	_, err := x.ExtractFromURL(ctx, "https://club.de")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = x.ExtractFromText(ctx, "text", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	x = NewExtractor(NewMockGeneratorText("[]"), "key", logging.Discard())
	_, err = x.ExtractFromURL(ctx, "club.de/programm")
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = x.ExtractFromURL(ctx, "ftp://club.de")
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = x.ExtractFromText(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyContent)

	x = NewExtractor(NewMockGeneratorText("[{\"title\": oops}]"), "key", logging.Discard())
	_, err = x.ExtractFromText(ctx, "text", "")
	assert.ErrorIs(t, err, ErrUnparseable)

	x = NewExtractor(NewMockGeneratorText("Keine Events auf dieser Seite."), "key", logging.Discard())
	got, err := x.ExtractFromText(ctx, "text", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	x = NewExtractor(NewMockGenerator(MockResponse{Err: &APIError{Provider: "gemini", StatusCode: 503}}), "key", logging.Discard())
	_, err = x.ExtractFromText(ctx, "text", "")
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}
