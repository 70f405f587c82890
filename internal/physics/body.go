package physics

import "math"

// Rect is an axis-aligned rectangle. X/Y is the top-left corner.
type Rect struct {
	X, Y float64
	W, H float64
}

// Left returns the left edge.
func (r Rect) Left() float64 { return r.X }

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Top returns the top edge.
func (r Rect) Top() float64 { return r.Y }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// CenterX returns the horizontal center.
func (r Rect) CenterX() float64 { return r.X + r.W/2 }

// CenterY returns the vertical center.
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// valid reports whether the rectangle has a finite position and a positive finite size.
func (r Rect) valid() bool {
	return r.W > 0 && r.H > 0 && finite(r.X) && finite(r.Y) && finite(r.W) && finite(r.H)
}

// Body is the movable primitive shared by every entity: position, velocity and size.
// The bounding edges are always derived from X/Y and W/H, never stored.
type Body struct {
	X, Y   float64 // Top-left corner
	DX, DY float64 // Velocity in units per tick
	W, H   float64 // Size
}

// Rect returns the body's bounding rectangle.
func (b *Body) Rect() Rect {
	return Rect{X: b.X, Y: b.Y, W: b.W, H: b.H}
}

// Left returns the left edge.
func (b *Body) Left() float64 { return b.X }

// Right returns the right edge.
func (b *Body) Right() float64 { return b.X + b.W }

// Top returns the top edge.
func (b *Body) Top() float64 { return b.Y }

// Bottom returns the bottom edge.
func (b *Body) Bottom() float64 { return b.Y + b.H }

// CenterX returns the horizontal center.
func (b *Body) CenterX() float64 { return b.X + b.W/2 }

// CenterY returns the vertical center.
func (b *Body) CenterY() float64 { return b.Y + b.H/2 }

// SetLeft moves the body so its left edge is at v.
func (b *Body) SetLeft(v float64) { b.X = v }

// SetRight moves the body so its right edge is at v.
func (b *Body) SetRight(v float64) { b.X = v - b.W }

// SetTop moves the body so its top edge is at v.
func (b *Body) SetTop(v float64) { b.Y = v }

// SetBottom moves the body so its bottom edge is at v.
func (b *Body) SetBottom(v float64) { b.Y = v - b.H }

// SetCenter moves the body so its center is at (x, y).
func (b *Body) SetCenter(x, y float64) {
	b.X = x - b.W/2
	b.Y = y - b.H/2
}

// Move advances the position by one tick of velocity.
func (b *Body) Move() {
	b.X += b.DX
	b.Y += b.DY
}

// Fall advances a gravity-affected body by dt ticks.
// Velocity is updated first, then the position integrates the new velocity
// plus the half-step gravity term.
func (b *Body) Fall(gravity, dt float64) {
	b.DY += gravity * dt
	b.X += b.DX * dt
	b.Y += b.DY*dt + 0.5*gravity*dt*dt
}

// Friction scales the horizontal velocity by factor (1 = no friction) and
// snaps tiny residual speeds to zero.
func (b *Body) Friction(factor float64) {
	b.DX *= factor
	if math.Abs(b.DX) < restEpsilon {
		b.DX = 0
	}
}

// ClampSpeed limits each velocity component to its ceiling. Zero ceilings are ignored.
func (b *Body) ClampSpeed(maxX, maxY float64) {
	if maxX > 0 {
		b.DX = Clamp(b.DX, -maxX, maxX)
	}
	if maxY > 0 {
		b.DY = Clamp(b.DY, -maxY, maxY)
	}
}

// ClampTo keeps the body inside the rectangle bounds, zeroing the velocity
// component that pushed it out. Reports whether any edge was hit.
func (b *Body) ClampTo(bounds Rect) bool {
	hit := false
	if b.Left() < bounds.Left() {
		b.SetLeft(bounds.Left())
		b.DX = 0
		hit = true
	} else if b.Right() > bounds.Right() {
		b.SetRight(bounds.Right())
		b.DX = 0
		hit = true
	}
	if b.Top() < bounds.Top() {
		b.SetTop(bounds.Top())
		b.DY = 0
		hit = true
	} else if b.Bottom() > bounds.Bottom() {
		b.SetBottom(bounds.Bottom())
		b.DY = 0
		hit = true
	}
	return hit
}

// restEpsilon is the speed under which a decelerating body is considered at rest.
const restEpsilon = 0.01
