// Package intent turns a free-text deal search into structured hints. An
// optional language model provider does the parsing; when it is missing or
// misbehaves a deterministic keyword split is used instead.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"grocerygenius-api/internal/catalog"

	"github.com/sirupsen/logrus"
)

// Sort hints.
const (
	SortPrice   = "price"
	SortSavings = "savings"
)

// MaxLimit caps the result count hint; deal queries accept no more.
const MaxLimit = 1000

// Intent is the structured form of a search query.
type Intent struct {
	SearchTerms []string `json:"searchTerms"`
	Category    *string  `json:"category"`
	SortBy      *string  `json:"sortBy"`
	Limit       *int     `json:"limit"`
}

// Provider completes a system prompt and a user query into raw model output
// that should contain a JSON object.
type Provider interface {
	Complete(ctx context.Context, system, query string) (string, error)
}

// Interpreter extracts intents. A nil provider always uses Fallback.
type Interpreter struct {
	provider Provider
}

// NewInterpreter creates an interpreter.
func NewInterpreter(provider Provider) *Interpreter {
	return &Interpreter{provider: provider}
}

// Enabled reports whether a provider is configured.
func (i *Interpreter) Enabled() bool {
	return i.provider != nil
}

// Interpret never fails. Provider errors and unparsable output fall back to
// the keyword split.
func (i *Interpreter) Interpret(ctx context.Context, query string) Intent {
	if i.provider == nil {
		return Fallback(query)
	}

	out, err := i.provider.Complete(ctx, SystemPrompt, query)
	if err != nil {
		logrus.WithField("component", "intent").WithError(err).Warn("Provider failed, using keyword fallback")
		return Fallback(query)
	}

	intent, err := Parse(out)
	if err != nil {
		logrus.WithField("component", "intent").WithError(err).Warn("Unparsable provider output, using keyword fallback")
		return Fallback(query)
	}
	return intent
}

// Fallback lower-cases the query, splits it on whitespace and keeps words
// longer than two characters.
func Fallback(query string) Intent {
	terms := []string{}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) > 2 {
			terms = append(terms, w)
		}
	}
	return Intent{SearchTerms: terms}
}

// wireIntent is the snake_case object the provider is asked for.
type wireIntent struct {
	SearchTerms []string `json:"search_terms"`
	Category    *string  `json:"category"`
	SortBy      *string  `json:"sort_by"`
	Limit       *float64 `json:"limit"`
}

// ErrNoJSON is returned by Parse when the output holds no JSON object.
var ErrNoJSON = errors.New("no JSON object in provider output")

// Parse decodes provider output. Code fences and surrounding prose are
// tolerated. Unknown categories, sort hints other than price or savings and
// non-positive limits become nil.
func Parse(out string) (Intent, error) {
	start := strings.IndexByte(out, '{')
	end := strings.LastIndexByte(out, '}')
	if start < 0 || end < start {
		return Intent{}, ErrNoJSON
	}

	var w wireIntent
	if err := json.Unmarshal([]byte(out[start:end+1]), &w); err != nil {
		return Intent{}, fmt.Errorf("decode intent: %w", err)
	}

	intent := Intent{SearchTerms: []string{}}
	for _, term := range w.SearchTerms {
		if term = strings.TrimSpace(term); term != "" {
			intent.SearchTerms = append(intent.SearchTerms, term)
		}
	}
	if w.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*w.Category))
		if catalog.IsCategory(c) {
			intent.Category = &c
		}
	}
	if w.SortBy != nil {
		s := strings.ToLower(strings.TrimSpace(*w.SortBy))
		if s == SortPrice || s == SortSavings {
			intent.SortBy = &s
		}
	}
	if w.Limit != nil && *w.Limit >= 1 {
		n := int(min(*w.Limit, MaxLimit))
		intent.Limit = &n
	}
	return intent, nil
}

// SystemPrompt instructs the provider to answer with an intent object.
var SystemPrompt = `You are a helpful assistant that parses grocery deal search queries.
Given a user query, extract the search intent and return JSON with these fields:
- search_terms: array of keywords to search for in item names
- category: one of [` + strings.Join(catalog.Taxonomy, ", ") + `] or null
- sort_by: "price" if they want cheapest, "savings" if they want best deals, or null
- limit: number of results they want, or null for default

Examples:
- "cheapest chicken" -> {"search_terms": ["chicken"], "category": "meat", "sort_by": "price", "limit": null}
- "best protein deals" -> {"search_terms": ["chicken", "beef", "pork", "turkey", "fish", "eggs"], "category": "meat", "sort_by": "price", "limit": null}
- "avocados on sale" -> {"search_terms": ["avocado"], "category": "produce", "sort_by": null, "limit": null}
- "dairy under $5" -> {"search_terms": [], "category": "dairy", "sort_by": "price", "limit": null}

Return only valid JSON, no explanation.`
