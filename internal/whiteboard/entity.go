// Package whiteboard is the shared lab status board.
package whiteboard

import (
	"sort"
	"time"
)

type Entry struct {
	ID        string    `yaml:"id" json:"id"`
	Section   string    `yaml:"section" json:"section"`
	Text      string    `yaml:"text" json:"text"`
	Color     string    `yaml:"color" json:"color"`
	Pinned    bool      `yaml:"pinned" json:"pinned"`
	UpdatedBy string    `yaml:"updated_by" json:"updatedBy"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}

// Board is stored as a single document.
type Board struct {
	Entries   []*Entry  `yaml:"entries" json:"entries"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}

func (b *Board) find(id string) int {
	for i, e := range b.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Sort orders entries by section, pinned first, then most recently updated.
func (b *Board) Sort() {
	sort.SliceStable(b.Entries, func(i, j int) bool {
		a, c := b.Entries[i], b.Entries[j]
		if a.Section != c.Section {
			return a.Section < c.Section
		}
		if a.Pinned != c.Pinned {
			return a.Pinned
		}
		return a.UpdatedAt.After(c.UpdatedAt)
	})
}
