package object

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tomz197/arcade/internal/physics"
	"github.com/tomz197/arcade/internal/protocol"
)

// ErrInvalidOption rejects an unknown game or preset.
var ErrInvalidOption = errors.New("invalid game option")

// Field size shared by every game, in logical units.
const (
	FieldWidth  = 120
	FieldHeight = 80
)

// Overrider applies per-game settings on top of the defaults.
type Overrider interface {
	Override(game string, dst any) error
}

// DefaultProfile returns the built-in tuning of a game.
func DefaultProfile(t Type) (physics.Profile, error) {
	base := physics.Profile{
		FieldWidth:      FieldWidth,
		FieldHeight:     FieldHeight,
		GroundFriction:  1,
		AirFriction:     1,
		ServeDirection:  1,
		CornerTolerance: physics.DefaultCornerTolerance,
	}
	switch t {
	case TypePong:
		base.RestitutionY = 1
		base.PaddleWidth = 2
		base.PaddleHeight = 14
		base.PaddleSpeed = 1.5
		base.Spin = 0.3
		base.BallSize = 2
		base.BallSpeed = 1
		base.BallAccel = 0.1
		base.BallMaxSpeed = 3
		base.ServeSpread = 0.6
		base.ServeDelay = time.Second
		base.MaxScore = 7
	case TypeRunner:
		base.Gravity = 0.15
		base.GroundFriction = 0.8
		base.AirFriction = 0.95
		base.Accel = 0.3
		base.Decel = 0.2
		base.MaxSpeedX = 1.5
		base.MaxSpeedY = 3
		base.AvatarWidth = 4
		base.AvatarHeight = 6
		base.JumpImpulse = 2.4
		base.JumpHeight = 24
		base.PaddleWidth = 24 // moving platform
		base.PaddleHeight = 3
		base.PaddleSpeed = 0.5
		base.BallSize = 3 // hazard head
		base.RespawnDelay = 2 * time.Second
		base.HangDelay = 1500 * time.Millisecond
		base.MaxScore = 10
	case TypeVolley:
		base.Gravity = 0.1
		base.GroundFriction = 0.8
		base.AirFriction = 0.98
		base.RestitutionX = 0.9
		base.RestitutionY = 0.9
		base.Accel = 0.3
		base.Decel = 0.2
		base.MaxSpeedX = 1.2
		base.MaxSpeedY = 3
		base.AvatarWidth = 6
		base.AvatarHeight = 8
		base.JumpImpulse = 1.8
		base.JumpHeight = 20
		base.BallSize = 4
		base.BallMaxSpeed = 3
		base.HitSpeed = 2
		base.NetWidth = 2
		base.NetHeight = 24
		base.ServeDelay = 1500 * time.Millisecond
		base.MaxScore = 7
	default:
		return physics.Profile{}, fmt.Errorf("%w: unknown game %q", ErrInvalidOption, t)
	}
	return base, nil
}

var (
	lengthPresets = map[string]float64{"": 1, "normal": 1, "short": 0.5, "long": 2}
	sizePresets   = map[string]float64{"": 1, "normal": 1, "small": 0.75, "large": 1.25}
	speedPresets  = map[string]float64{"": 1, "normal": 1, "slow": 0.75, "fast": 1.25}
)

// ValidateOptions rejects presets that are not known.
func ValidateOptions(o protocol.Options) error {
	if _, ok := lengthPresets[o.Length]; !ok {
		return fmt.Errorf("%w: length %q", ErrInvalidOption, o.Length)
	}
	if _, ok := sizePresets[o.Size]; !ok {
		return fmt.Errorf("%w: size %q", ErrInvalidOption, o.Size)
	}
	if _, ok := speedPresets[o.Speed]; !ok {
		return fmt.Errorf("%w: speed %q", ErrInvalidOption, o.Speed)
	}
	return nil
}

// ResolveProfile builds the profile of a new session: game defaults, then the
// settings overrides, then the presets, then validation.
func ResolveProfile(t Type, o protocol.Options, ov Overrider) (physics.Profile, error) {
	p, err := DefaultProfile(t)
	if err != nil {
		return p, err
	}
	if ov != nil {
		if err := ov.Override(string(t), &p); err != nil {
			return physics.Profile{}, err
		}
	}
	// Viewers mirror the arena at the shared field size.
	if p.FieldWidth != FieldWidth || p.FieldHeight != FieldHeight {
		return physics.Profile{}, fmt.Errorf("%w: field size is fixed at %dx%d, got %vx%v",
			physics.ErrInvalidProfile, FieldWidth, FieldHeight, p.FieldWidth, p.FieldHeight)
	}
	if err := ValidateOptions(o); err != nil {
		return physics.Profile{}, err
	}

	length := lengthPresets[o.Length]
	p.MaxScore = max(1, int(math.Round(float64(p.MaxScore)*length)))

	size := sizePresets[o.Size]
	p.PaddleHeight *= size
	p.AvatarWidth *= size
	p.AvatarHeight *= size
	p.BallSize *= size

	speed := speedPresets[o.Speed]
	p.PaddleSpeed *= speed
	p.BallSpeed *= speed
	p.BallAccel *= speed
	p.BallMaxSpeed *= speed
	p.HitSpeed *= speed
	p.MaxSpeedX *= speed

	if err := p.Validate(); err != nil {
		return physics.Profile{}, err
	}
	return p, nil
}
