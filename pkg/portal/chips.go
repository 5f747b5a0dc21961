package portal

import "strings"

// ChipSet is an ordered set of strings, used for tag-style inputs such as
// genres, amenities, cuisines and plan benefits.
type ChipSet struct {
	items []string
}

// NewChipSet creates a set from values, dropping blanks and duplicates
func NewChipSet(values ...string) *ChipSet {
	c := &ChipSet{}
	for _, v := range values {
		c.Add(v)
	}
	return c
}

// Add appends a trimmed value. It returns false when the value is blank or
// already present.
func (c *ChipSet) Add(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" || c.Contains(v) {
		return false
	}
	c.items = append(c.items, v)
	return true
}

// Remove deletes value, returning false when it was not present
func (c *ChipSet) Remove(value string) bool {
	v := strings.TrimSpace(value)
	for i, item := range c.items {
		if item == v {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether value is in the set
func (c *ChipSet) Contains(value string) bool {
	for _, item := range c.items {
		if item == value {
			return true
		}
	}
	return false
}

// Values returns a copy of the items in insertion order
func (c *ChipSet) Values() []string {
	out := make([]string, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items
func (c *ChipSet) Len() int {
	return len(c.items)
}

// Reset replaces the contents with values
func (c *ChipSet) Reset(values ...string) {
	c.items = nil
	for _, v := range values {
		c.Add(v)
	}
}
