package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback(t *testing.T) {
	got := Fallback("Cheapest  CHICKEN at aldi ok")
	assert.Equal(t, []string{"cheapest", "chicken", "aldi"}, got.SearchTerms)
	assert.Nil(t, got.Category)
	assert.Nil(t, got.SortBy)
	assert.Nil(t, got.Limit)

	empty := Fallback("a an")
	assert.NotNil(t, empty.SearchTerms)
	assert.Empty(t, empty.SearchTerms)
}

func TestParse(t *testing.T) {
	got, err := Parse("```json\n{\"search_terms\": [\"chicken\", \" \"], \"category\": \"Meat\", \"sort_by\": \"price\", \"limit\": 5}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"chicken"}, got.SearchTerms)
	require.NotNil(t, got.Category)
	assert.Equal(t, "meat", *got.Category)
	require.NotNil(t, got.SortBy)
	assert.Equal(t, SortPrice, *got.SortBy)
	require.NotNil(t, got.Limit)
	assert.Equal(t, 5, *got.Limit)
}

func TestParseDropsInvalidHints(t *testing.T) {
	got, err := Parse(`{"search_terms": null, "category": "toys", "sort_by": "rating", "limit": 0}`)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.SearchTerms)
	assert.Nil(t, got.Category)
	assert.Nil(t, got.SortBy)
	assert.Nil(t, got.Limit)
}

func TestParseClampsLimit(t *testing.T) {
	for _, raw := range []string{"1e300", "5000", "1000.9"} {
		got, err := Parse(`{"search_terms": ["milk"], "limit": ` + raw + `}`)
		require.NoError(t, err, raw)
		require.NotNil(t, got.Limit, raw)
		assert.Equal(t, MaxLimit, *got.Limit, raw)
	}

	got, err := Parse(`{"search_terms": ["milk"], "limit": 2.7}`)
	require.NoError(t, err)
	assert.Equal(t, 2, *got.Limit)
}

func TestParseRejectsProse(t *testing.T) {
	_, err := Parse("I could not understand that.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = Parse("{not json}")
	assert.Error(t, err)
}

func newProviderServer(t *testing.T, status int, content string) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.Equal(t, 0.3, req.Temperature)
		assert.Equal(t, 200, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error": {"message": "rate limited"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)

	return NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/"}, server.Client())
}

func TestInterpretWithProvider(t *testing.T) {
	provider := newProviderServer(t, http.StatusOK, `{"search_terms": ["avocado"], "category": "produce", "sort_by": null, "limit": null}`)
	i := NewInterpreter(provider)
	assert.True(t, i.Enabled())

	got := i.Interpret(context.Background(), "avocados on sale")
	assert.Equal(t, []string{"avocado"}, got.SearchTerms)
	require.NotNil(t, got.Category)
	assert.Equal(t, "produce", *got.Category)
	assert.Nil(t, got.SortBy)
}

func TestInterpretFallsBackOnProviderError(t *testing.T) {
	provider := newProviderServer(t, http.StatusTooManyRequests, "")

	_, err := provider.Complete(context.Background(), "s", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	got := NewInterpreter(provider).Interpret(context.Background(), "best milk deals")
	assert.Equal(t, Fallback("best milk deals"), got)
}

func TestInterpretFallsBackOnGarbage(t *testing.T) {
	provider := newProviderServer(t, http.StatusOK, "Sure! Here are some deals.")

	got := NewInterpreter(provider).Interpret(context.Background(), "frozen pizza")
	assert.Equal(t, []string{"frozen", "pizza"}, got.SearchTerms)
}

func TestInterpretWithoutProvider(t *testing.T) {
	i := NewInterpreter(nil)
	assert.False(t, i.Enabled())
	assert.Equal(t, Fallback("eggs"), i.Interpret(context.Background(), "eggs"))
}
