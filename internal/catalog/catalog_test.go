package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	classifier := c.Classifier()

	tests := []struct {
		name string
		want string
	}{
		{"Organic Chicken Breast", "meat"},
		{"Whole Milk", "dairy"},
		{"Paper Towels", "household"},
		{"Zzyx Widget", Other},
		{"Bananas", "produce"},
		{"Sourdough Bread", "pantry"},
		{"Blueberry Bagels", "produce"},
		{"FROZEN PEAS", "frozen"},
		{"", Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.name))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	first := c.Classifier().Classify("Cinnamon Raisin Bread")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Classifier().Classify("Cinnamon Raisin Bread"))
	}
}

func TestClassifierFollowsDeclarationOrder(t *testing.T) {
	bakeryFirst := NewClassifier([]CategoryEntry{
		{Name: "bakery", Keywords: []string{"bread"}},
		{Name: "pantry", Keywords: []string{"bread"}},
	})
	assert.Equal(t, "bakery", bakeryFirst.Classify("White Bread"))

	pantryFirst := NewClassifier([]CategoryEntry{
		{Name: "pantry", Keywords: []string{"bread"}},
		{Name: "bakery", Keywords: []string{"bread"}},
	})
	assert.Equal(t, "pantry", pantryFirst.Classify("White Bread"))
}

func TestMatch(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	matcher := c.Matcher()

	tests := []struct {
		merchant string
		want     string
		ok       bool
	}{
		{"ALDI US", "aldi", true},
		{"Trader Joe's", "trader-joes", true},
		{"Trader Joe’s", "trader-joes", true},
		{"Harris-Teeter", "harris-teeter", true},
		{"Harris Teeter Supermarkets", "harris-teeter", true},
		{"Walmart Supercenter", "walmart", true},
		{"ＬＩＤＬ", "lidl", true},
		{"Local Corner Store", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			slug, ok := matcher.Match(tt.merchant)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, slug)
		})
	}
}

func TestMatcherFollowsRegistryOrder(t *testing.T) {
	m := NewMatcher([]StoreEntry{
		{Slug: "safeway", Keywords: []string{"safeway"}},
		{Slug: "aldi", Keywords: []string{"aldi"}},
	})

	slug, ok := m.Match("Aldi inside Safeway")
	require.True(t, ok)
	assert.Equal(t, "safeway", slug)
	assert.Equal(t, []string{"safeway", "aldi"}, m.Slugs())
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	aldi, ok := c.Store("aldi")
	require.True(t, ok)
	assert.Equal(t, "Aldi", aldi.Name)
	assert.Equal(t, "/stores/aldi.svg", aldi.LogoURL)
	assert.Equal(t, "https://www.aldi.us", aldi.Website)

	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	assert.Equal(t, Taxonomy[:len(Taxonomy)-1], names)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `
stores:
  - slug: food-lion
    name: Food Lion
    keywords: [food lion]
categories:
  - name: dairy
    keywords: [milk]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Stores, 1)
	assert.Equal(t, "/stores/food-lion.svg", c.Stores[0].LogoURL)

	slug, ok := c.Matcher().Match("FOOD LION #1234")
	assert.True(t, ok)
	assert.Equal(t, "food-lion", slug)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := map[string]string{
		"no stores": `categories: [{name: dairy, keywords: [milk]}]`,
		"duplicate slug": `
stores:
  - {slug: aldi}
  - {slug: aldi}`,
		"unknown category": `
stores: [{slug: aldi}]
categories: [{name: toys, keywords: [lego]}]`,
		"other declared": `
stores: [{slug: aldi}]
categories: [{name: other, keywords: [misc]}]`,
		"category without keywords": `
stores: [{slug: aldi}]
categories: [{name: dairy}]`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
