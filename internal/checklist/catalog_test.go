package checklist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.NotEmpty(t, c.OrderTypes())
	assert.True(t, c.Has("Continuous EEG | EMU"))

	m := KeywordMatcher{}
	// Every order type that ends in a disconnect must be able to reach the
	// Disconnected status through its own automatic items.
	for _, ot := range c.OrderTypes() {
		var list []Item
		for _, l := range c.Labels(ot) {
			list = append(list, Item{Text: l, Completed: true})
		}
		hasDisconnect := false
		for _, l := range c.Labels(ot) {
			if m.IsDisconnectStep(Normalize(l)) {
				hasDisconnect = true
			}
		}
		assert.Equal(t, hasDisconnect, Disconnected(m, list), ot)
	}
}

func TestCatalogLabelsAreCopies(t *testing.T) {
	c := DefaultCatalog()
	labels := c.Labels("Routine EEG")
	require.NotEmpty(t, labels)
	labels[0] = "changed"
	assert.NotEqual(t, "changed", c.Labels("Routine EEG")[0])
	assert.Empty(t, c.Labels("unknown"))
}

func TestParseCatalogErrors(t *testing.T) {
	_, err := ParseCatalog([]byte("order_types:\n  - name: ''\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("order_types:\n  - name: A\n  - name: A\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("order_types: [\n"))
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Routine EEG", "Ambulatory EEG"}, c.OrderTypes())

	c, err = LoadCatalog("")
	require.NoError(t, err)
	assert.True(t, c.Has("Routine EEG"))

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
