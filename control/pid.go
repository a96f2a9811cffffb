// Package control holds the feedback controller driving the keeper's
// lateral axis.
package control

import (
	"time"
)

// PID is a single-axis discrete PID controller with a fixed sample period
// and a symmetric output clamp. The integral term is clamped to the output
// bounds so it cannot wind up past what the output could ever deliver.
type PID struct {
	kp, ki, kd float64
	setPoint   float64
	dt         float64
	min, max   float64

	integral  float64
	lastError float64
	primed    bool
}

// NewPID returns a controller with the given gains, setpoint, sample
// period and symmetric output limit.
func NewPID(kp, ki, kd, setPoint float64, samplePeriod time.Duration, outputLimit float64) *PID {
	if outputLimit < 0 {
		outputLimit = -outputLimit
	}
	return &PID{
		kp:       kp,
		ki:       ki,
		kd:       kd,
		setPoint: setPoint,
		dt:       samplePeriod.Seconds(),
		min:      -outputLimit,
		max:      outputLimit,
	}
}

// Next advances the controller by one sample period with the given
// measurement and returns the clamped correction.
func (p *PID) Next(measured float64) float64 {
	err := p.setPoint - measured

	p.integral += p.ki * err * p.dt
	p.integral = clamp(p.integral, p.min, p.max)

	var deriv float64
	if p.primed && p.dt > 0 {
		deriv = (err - p.lastError) / p.dt
	}
	p.lastError = err
	p.primed = true

	return clamp(p.kp*err+p.integral+p.kd*deriv, p.min, p.max)
}

// Reset clears the accumulated integral and derivative history, as if the
// controller were freshly constructed.
func (p *PID) Reset() {
	p.integral = 0
	p.lastError = 0
	p.primed = false
}

func clamp(v, min, max float64) float64 {
	switch {
	case v < min:
		return min
	case v > max:
		return max
	default:
		return v
	}
}
