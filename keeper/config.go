package keeper

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Config holds every physical-unit constant the controller runs on, so
// tests can inject different thresholds without touching control logic.
type Config struct {
	// FieldWidth and FieldDepth are the guarded area in meters; the
	// keeper holds position within half of each around the field center.
	FieldWidth float64
	FieldDepth float64

	// Frequency is the control tick rate in Hz.
	Frequency float64

	// DefaultXYSpeed and DefaultZSpeed are the translation (m/s) and
	// rotation (deg/s) magnitudes used for commanded moves.
	DefaultXYSpeed float64
	DefaultZSpeed  float64

	// BallAbsentTimeout forces a reset when no measurement arrived for
	// this long. KickTimeout makes Kicking coast on slightly stale data.
	BallAbsentTimeout time.Duration
	KickTimeout       time.Duration

	// ChaseEnterThreshold and ChaseExitThreshold are the forward-distance
	// hysteresis bounds in meters; enter must be below exit.
	ChaseEnterThreshold float64
	ChaseExitThreshold  float64

	// BlindSpotThreshold is the forward distance below which the camera
	// loses the ball under the chassis nose.
	BlindSpotThreshold float64

	// DegreeEps is the yaw drift (degrees) below which recentering skips
	// rotation rather than chase sensor noise. DistanceEps is the lateral
	// slack (meters) allowed when parked on a field boundary.
	DegreeEps   float64
	DistanceEps float64

	// DeadBand zeroes lateral corrections smaller than this magnitude.
	DeadBand float64

	// SettlePause is the pause inserted before contact-driven
	// transitions.
	SettlePause time.Duration

	// FrontArmorIndex is the contact sensor that advances the cycle; any
	// other index aborts to Watching.
	FrontArmorIndex int

	// Lateral feedback controller gains, signed so a positive lateral
	// offset yields a positive (corrective) chassis y velocity.
	Kp, Ki, Kd float64

	// Clock supplies staleness timestamps; nil means the wall clock.
	Clock clock.Clock
}

// DefaultConfig returns the tuning the goalkeeper plays with on a field of
// the given size.
func DefaultConfig(fieldWidth, fieldDepth float64) Config {
	return Config{
		FieldWidth:          fieldWidth,
		FieldDepth:          fieldDepth,
		Frequency:           30,
		DefaultXYSpeed:      0.4,
		DefaultZSpeed:       36,
		BallAbsentTimeout:   8 * time.Second,
		KickTimeout:         300 * time.Millisecond,
		ChaseEnterThreshold: 1.2,
		ChaseExitThreshold:  1.4,
		BlindSpotThreshold:  0.25,
		DegreeEps:           2,
		DistanceEps:         0.01,
		DeadBand:            0.1,
		SettlePause:         time.Second,
		FrontArmorIndex:     2,
		Kp:                  -10,
		Ki:                  -0.05,
		Kd:                  -0.5,
	}
}

// Validate checks the config for values the controller cannot run on.
func (c *Config) Validate() error {
	if c.FieldWidth <= 0 || c.FieldDepth <= 0 {
		return errors.New("field dimensions must be positive")
	}
	if c.Frequency <= 0 {
		return errors.New("frequency must be positive")
	}
	if c.DefaultXYSpeed <= 0 {
		return errors.New("default xy speed must be positive")
	}
	if c.ChaseEnterThreshold >= c.ChaseExitThreshold {
		return errors.New("chase enter threshold must be below the exit threshold")
	}
	return nil
}
