package catalog

type categoryKeywords struct {
	name     string
	keywords []string
}

// Classifier assigns item names to a taxonomy category.
//
// Categories are tested in declaration order and the first hit wins, so a
// keyword listed under two categories (e.g. "bread" in pantry and bakery)
// always resolves to the earlier one.
type Classifier struct {
	categories []categoryKeywords
}

// NewClassifier builds a classifier from ordered entries.
func NewClassifier(entries []CategoryEntry) *Classifier {
	c := &Classifier{categories: make([]categoryKeywords, 0, len(entries))}
	for _, e := range entries {
		c.categories = append(c.categories, categoryKeywords{name: e.Name, keywords: foldAll(e.Keywords)})
	}
	return c
}

// Classify returns the category for name, or Other.
func (c *Classifier) Classify(name string) string {
	folded := Fold(name)
	for _, cat := range c.categories {
		if containsAny(folded, cat.keywords) {
			return cat.name
		}
	}
	return Other
}
