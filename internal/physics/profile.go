package physics

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidProfile is returned by Profile.Validate.
var ErrInvalidProfile = errors.New("invalid physics profile")

// Profile holds the tuning parameters of one session. It is bound once when
// the session is created and passed by value afterwards; nothing mutates it
// mid-session. Speeds are in units per tick, accelerations in units per tick².
type Profile struct {
	// Field
	FieldWidth  float64 `yaml:"field_width"`
	FieldHeight float64 `yaml:"field_height"`

	// Forces
	Gravity        float64 `yaml:"gravity"`
	GroundFriction float64 `yaml:"ground_friction"` // DX retained per tick on ground (0..1)
	AirFriction    float64 `yaml:"air_friction"`    // DX retained per tick in the air (0..1)
	RestitutionX   float64 `yaml:"restitution_x"`
	RestitutionY   float64 `yaml:"restitution_y"`
	Accel          float64 `yaml:"accel"`
	Decel          float64 `yaml:"decel"`
	MaxSpeedX      float64 `yaml:"max_speed_x"`
	MaxSpeedY      float64 `yaml:"max_speed_y"`

	// Paddles and avatars
	PaddleWidth  float64 `yaml:"paddle_width"`
	PaddleHeight float64 `yaml:"paddle_height"`
	PaddleSpeed  float64 `yaml:"paddle_speed"`
	Spin         float64 `yaml:"spin"` // share of paddle DY transferred to the ball
	AvatarWidth  float64 `yaml:"avatar_width"`
	AvatarHeight float64 `yaml:"avatar_height"`
	JumpImpulse  float64 `yaml:"jump_impulse"`
	JumpHeight   float64 `yaml:"jump_height"`

	// Ball
	BallSize       float64 `yaml:"ball_size"`
	BallSpeed      float64 `yaml:"ball_speed"`
	BallAccel      float64 `yaml:"ball_accel"`
	BallMaxSpeed   float64 `yaml:"ball_max_speed"`
	HitSpeed       float64 `yaml:"hit_speed"`
	ServeSpread    float64 `yaml:"serve_spread"`
	ServeDirection int     `yaml:"serve_direction"` // -1 toward the left seat, +1 toward the right seat

	// Obstacles
	NetWidth  float64 `yaml:"net_width"`
	NetHeight float64 `yaml:"net_height"`

	// Timers
	ServeDelay   time.Duration `yaml:"serve_delay"`
	RespawnDelay time.Duration `yaml:"respawn_delay"`
	HangDelay    time.Duration `yaml:"hang_delay"`

	// Rules
	MaxScore        int     `yaml:"max_score"`
	CornerTolerance float64 `yaml:"corner_tolerance"`
}

// Bounds returns the field rectangle.
func (p Profile) Bounds() Rect {
	return Rect{W: p.FieldWidth, H: p.FieldHeight}
}

// Validate checks that the profile cannot produce NaN or degenerate geometry.
func (p Profile) Validate() error {
	nonNegative := map[string]float64{
		"gravity":          p.Gravity,
		"restitution_x":    p.RestitutionX,
		"restitution_y":    p.RestitutionY,
		"accel":            p.Accel,
		"decel":            p.Decel,
		"max_speed_x":      p.MaxSpeedX,
		"max_speed_y":      p.MaxSpeedY,
		"paddle_width":     p.PaddleWidth,
		"paddle_height":    p.PaddleHeight,
		"paddle_speed":     p.PaddleSpeed,
		"spin":             p.Spin,
		"avatar_width":     p.AvatarWidth,
		"avatar_height":    p.AvatarHeight,
		"jump_impulse":     p.JumpImpulse,
		"jump_height":      p.JumpHeight,
		"ball_size":        p.BallSize,
		"ball_speed":       p.BallSpeed,
		"ball_accel":       p.BallAccel,
		"ball_max_speed":   p.BallMaxSpeed,
		"hit_speed":        p.HitSpeed,
		"serve_spread":     p.ServeSpread,
		"net_width":        p.NetWidth,
		"net_height":       p.NetHeight,
		"corner_tolerance": p.CornerTolerance,
	}
	for name, v := range nonNegative {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %v", ErrInvalidProfile, name, v)
		}
	}
	for name, v := range map[string]float64{"field_width": p.FieldWidth, "field_height": p.FieldHeight} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidProfile, name, v)
		}
	}
	for name, v := range map[string]float64{"ground_friction": p.GroundFriction, "air_friction": p.AirFriction} {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrInvalidProfile, name, v)
		}
	}
	if p.ServeDirection != -1 && p.ServeDirection != 1 {
		return fmt.Errorf("%w: serve_direction must be -1 or 1, got %d", ErrInvalidProfile, p.ServeDirection)
	}
	if p.MaxScore <= 0 {
		return fmt.Errorf("%w: max_score must be positive, got %d", ErrInvalidProfile, p.MaxScore)
	}
	if p.ServeDelay < 0 || p.RespawnDelay < 0 || p.HangDelay < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidProfile)
	}
	return nil
}
