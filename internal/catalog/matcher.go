package catalog

type storeKeywords struct {
	slug     string
	keywords []string
}

// Matcher resolves free-text merchant names to store slugs.
type Matcher struct {
	stores []storeKeywords
}

// NewMatcher builds a matcher. Entries are tested in the given order.
func NewMatcher(entries []StoreEntry) *Matcher {
	m := &Matcher{stores: make([]storeKeywords, 0, len(entries))}
	for _, e := range entries {
		m.stores = append(m.stores, storeKeywords{slug: e.Slug, keywords: foldAll(e.Keywords)})
	}
	return m
}

// Match returns the slug of the first store whose keyword occurs in merchant.
func (m *Matcher) Match(merchant string) (string, bool) {
	name := Fold(merchant)
	if name == "" {
		return "", false
	}

	for _, s := range m.stores {
		if containsAny(name, s.keywords) {
			return s.slug, true
		}
	}
	return "", false
}

// Slugs returns the registered slugs in matching order.
func (m *Matcher) Slugs() []string {
	out := make([]string, len(m.stores))
	for i, s := range m.stores {
		out[i] = s.slug
	}
	return out
}
