package icon

import (
	"cmp"
	"slices"
)

// Collection is a set of sized icons ranked ascending by area. Equal areas
// keep their input order.
type Collection struct {
	icons []*Icon
}

// NewCollection ranks icons. Unsized icons are not eligible and are left out.
func NewCollection(icons []*Icon) *Collection {
	sized := make([]*Icon, 0, len(icons))
	for _, ic := range icons {
		if ic != nil && ic.Sized() {
			sized = append(sized, ic)
		}
	}

	slices.SortStableFunc(sized, func(a, b *Icon) int {
		return cmp.Compare(a.Area(), b.Area())
	})

	return &Collection{icons: sized}
}

// Len returns the number of icons left in the collection.
func (c *Collection) Len() int { return len(c.icons) }

// AtLeast returns the smallest icon covering minWidth × minHeight. If none is
// big enough the largest icon is returned instead; nil only when empty.
func (c *Collection) AtLeast(minWidth, minHeight int) *Icon {
	for _, ic := range c.icons {
		d, _ := ic.Size()
		if d.Covers(minWidth, minHeight) {
			return ic
		}
	}
	return c.Largest()
}

// Largest returns the icon with the greatest area, the earliest one among
// equals, or nil when empty.
func (c *Collection) Largest() *Icon {
	i := c.largestIndex()
	if i < 0 {
		return nil
	}
	return c.icons[i]
}

// PopLargest removes and returns what Largest would return.
func (c *Collection) PopLargest() *Icon {
	i := c.largestIndex()
	if i < 0 {
		return nil
	}
	ic := c.icons[i]
	c.icons = slices.Delete(c.icons, i, i+1)
	return ic
}

// Icons returns the ranked icons, smallest first. The slice belongs to the caller.
func (c *Collection) Icons() []*Icon {
	return slices.Clone(c.icons)
}

func (c *Collection) largestIndex() int {
	n := len(c.icons)
	if n == 0 {
		return -1
	}
	top := c.icons[n-1].Area()
	i := n - 1
	for i > 0 && c.icons[i-1].Area() == top {
		i--
	}
	return i
}
