package model

import "time"

// Entry is one person in space: the craft they are on and their name.
type Entry struct {
	Label string `json:"label"` // craft / station
	Name  string `json:"name"`
}

// Content is everything the panel needs for one render.
type Content struct {
	Count   int     `json:"count"`
	Entries []Entry `json:"entries"`

	// FetchedAt is when the source produced this content. Zero for
	// content built by hand.
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// Group collects the entries sharing one label.
type Group struct {
	Label string   `json:"label"`
	Names []string `json:"names"`
}

// Count returns the number of names in the group.
func (g Group) Count() int { return len(g.Names) }

// GroupByLabel groups entries by label, preserving the order in which each
// label first appears.
func (c Content) GroupByLabel() []Group {
	var groups []Group
	index := make(map[string]int)
	for _, e := range c.Entries {
		i, ok := index[e.Label]
		if !ok {
			i = len(groups)
			index[e.Label] = i
			groups = append(groups, Group{Label: e.Label})
		}
		groups[i].Names = append(groups[i].Names, e.Name)
	}
	return groups
}

