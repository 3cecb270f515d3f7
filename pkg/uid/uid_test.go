package uid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForStoreIsStable(t *testing.T) {
	assert.Equal(t, ForStore("aldi"), ForStore(" ALDI "))
	assert.NotEqual(t, ForStore("aldi"), ForStore("lidl"))

	_, ok := Canonical(ForStore("aldi"))
	assert.True(t, ok)
}

func TestCanonical(t *testing.T) {
	id := New()
	got, ok := Canonical("  " + strings.ToUpper(id) + " ")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = Canonical("not-an-id")
	assert.False(t, ok)
}
