package physics

import "math"

// Side identifies which side of a moving body struck an obstacle.
type Side uint8

const (
	SideNone Side = iota
	SideTop
	SideBottom
	SideLeft
	SideRight
	SideTopLeft
	SideTopRight
	SideBottomLeft
	SideBottomRight
)

var sideNames = [...]string{
	SideNone:        "none",
	SideTop:         "top",
	SideBottom:      "bottom",
	SideLeft:        "left",
	SideRight:       "right",
	SideTopLeft:     "topLeft",
	SideTopRight:    "topRight",
	SideBottomLeft:  "bottomLeft",
	SideBottomRight: "bottomRight",
}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return "unknown"
}

// IsTop reports whether the side involves the top edge (top or a top corner).
func (s Side) IsTop() bool {
	return s == SideTop || s == SideTopLeft || s == SideTopRight
}

// IsBottom reports whether the side involves the bottom edge (bottom or a bottom corner).
func (s Side) IsBottom() bool {
	return s == SideBottom || s == SideBottomLeft || s == SideBottomRight
}

// IsLeft reports whether the side involves the left edge (left or a left corner).
func (s Side) IsLeft() bool {
	return s == SideLeft || s == SideTopLeft || s == SideBottomLeft
}

// IsRight reports whether the side involves the right edge (right or a right corner).
func (s Side) IsRight() bool {
	return s == SideRight || s == SideTopRight || s == SideBottomRight
}

// IsCorner reports whether the side is a composite corner tag.
func (s Side) IsCorner() bool {
	return s >= SideTopLeft && s <= SideBottomRight
}

// DefaultCornerTolerance is the depth band (inclusive) within which two
// perpendicular penetrations are reported as a corner.
const DefaultCornerTolerance = 1.0

// Overlap returns the horizontal and vertical overlap amounts of two rectangles.
// Either value is <= 0 when the rectangles do not overlap on that axis.
func Overlap(a, b Rect) (x, y float64) {
	x = math.Min(a.Right(), b.Right()) - math.Max(a.Left(), b.Left())
	y = math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Top(), b.Top())
	return x, y
}

// Intersects reports whether both overlaps are strictly positive.
// Degenerate rectangles (non-positive or non-finite size or position) never intersect.
func Intersects(a, b Rect) bool {
	if !a.valid() || !b.valid() {
		return false
	}
	x, y := Overlap(a, b)
	return x > 0 && y > 0
}

// Collides reports whether any hitbox of a intersects any hitbox of b.
func Collides(a, b []Rect) bool {
	for _, ra := range a {
		for _, rb := range b {
			if Intersects(ra, rb) {
				return true
			}
		}
	}
	return false
}

// depth is one candidate penetration for ResolveDirection.
type depth struct {
	side  Side
	value float64
}

// ResolveDirection reports which side of moving struck obstacle.
//
// The penetration depth of each of moving's edges into obstacle is computed and
// the smallest wins; equal depths keep the order top, bottom, left, right.
// When the runner-up is within tolerance of the winner and the two edges are
// perpendicular, the corner tag is returned instead. Returns SideNone when
// the rectangles do not intersect.
func ResolveDirection(moving, obstacle Rect, tolerance float64) Side {
	if !Intersects(moving, obstacle) {
		return SideNone
	}
	if !(tolerance >= 0) {
		tolerance = 0
	}

	depths := [4]depth{
		{SideTop, obstacle.Bottom() - moving.Top()},
		{SideBottom, moving.Bottom() - obstacle.Top()},
		{SideLeft, obstacle.Right() - moving.Left()},
		{SideRight, moving.Right() - obstacle.Left()},
	}

	// Insertion sort keeps equal depths in declaration order.
	for i := 1; i < len(depths); i++ {
		for j := i; j > 0 && depths[j].value < depths[j-1].value; j-- {
			depths[j], depths[j-1] = depths[j-1], depths[j]
		}
	}

	first, second := depths[0], depths[1]
	if second.value-first.value <= tolerance {
		if corner := cornerOf(first.side, second.side); corner != SideNone {
			return corner
		}
	}
	return first.side
}

// cornerOf combines a vertical and a horizontal side into a corner tag.
// Returns SideNone for parallel sides.
func cornerOf(a, b Side) Side {
	vertical, horizontal := a, b
	if a == SideLeft || a == SideRight {
		vertical, horizontal = b, a
	}
	switch {
	case vertical == SideTop && horizontal == SideLeft:
		return SideTopLeft
	case vertical == SideTop && horizontal == SideRight:
		return SideTopRight
	case vertical == SideBottom && horizontal == SideLeft:
		return SideBottomLeft
	case vertical == SideBottom && horizontal == SideRight:
		return SideBottomRight
	}
	return SideNone
}

// Separate pushes body out of obstacle through the given side so that the two
// edges are flush. Corners are resolved along the vertical edge.
func Separate(b *Body, obstacle Rect, side Side) {
	switch {
	case side.IsBottom():
		b.SetBottom(obstacle.Top())
	case side.IsTop():
		b.SetTop(obstacle.Bottom())
	case side == SideLeft:
		b.SetLeft(obstacle.Right())
	case side == SideRight:
		b.SetRight(obstacle.Left())
	}
}
