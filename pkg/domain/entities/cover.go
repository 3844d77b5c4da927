package entities

import (
	"fmt"
	"strings"
)

// CoverItem is one (product, level) choice of a cover
type CoverItem struct {
	Product ProductID
	Level   LevelID
}

// Cover is a set of level choices at one facility whose combined lower bounds
// exceed the facility capacity. Items are ordered by product.
type Cover struct {
	Facility FacilityID
	Items    []CoverItem
	Weight   float64
}

// Size returns |C|
func (c *Cover) Size() int { return len(c.Items) }

// Contains reports whether p is a cover member
func (c *Cover) Contains(p ProductID) bool {
	_, ok := c.LevelOf(p)
	return ok
}

// LevelOf returns the level chosen for p, if p is a member
func (c *Cover) LevelOf(p ProductID) (LevelID, bool) {
	for _, item := range c.Items {
		if item.Product == p {
			return item.Level, true
		}
	}
	return -1, false
}

// String method for Cover
func (c *Cover) String() string {
	parts := make([]string, len(c.Items))
	for i, item := range c.Items {
		parts[i] = fmt.Sprintf("%s:%s", item.Product, item.Level)
	}
	return fmt.Sprintf("%s{%s} weight=%g", c.Facility, strings.Join(parts, ", "), c.Weight)
}
