// Package keeper implements the goalkeeper controller: a periodic worker
// running a three-state machine over the fused vision, telemetry and
// contact-event streams.
package keeper

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/fieldkeeper/keeper/control"
	"github.com/fieldkeeper/keeper/robomaster"
	"github.com/fieldkeeper/keeper/vision"
	"github.com/fieldkeeper/keeper/work"
)

// Drive is the subset of the command client the keeper steers with.
// *robomaster.Commander satisfies it.
type Drive interface {
	ChassisSpeed(x, y, z float64) error
	ChassisWheel(w1, w2, w3, w4 float64) error
	ChassisMove(x, y, z, speedXY, speedZ float64) error
	LEDControl(comp, effect string, r, g, b int) error
}

// Keeper is the goalkeeper controller. It drains the three sensor queues
// once per tick, runs the state machine and issues motion commands under
// the safety guards. It is a work.Worker and is not safe for concurrent
// use beyond the queues.
type Keeper struct {
	name   string
	cfg    Config
	drive  Drive
	clk    clock.Clock
	logger golog.Logger

	visionQ *work.Queue[vision.Measurement]
	pushQ   *work.Queue[robomaster.Push]
	eventQ  *work.Queue[robomaster.Event]

	state State
	pid   *control.PID
	maxX  float64 // field half depth
	maxY  float64 // field half width

	// pose accumulates the latest position push (x, y) and attitude push
	// (yaw in Z); the two halves can be one cycle apart in age.
	pose         robomaster.ChassisPosition
	poseLastSeen time.Time

	ball         vision.Measurement
	ballValid    bool
	ballLastSeen time.Time

	// hit is edge-triggered: cleared at the top of every tick, so a
	// contact is seen only during the cycle it arrived.
	hitIndex    int
	hitSeen     bool
	hitLastSeen time.Time
}

// NewKeeper validates the config and performs the Watching entry effects;
// a failure there is fatal to startup.
func NewKeeper(
	name string,
	drive Drive,
	cfg Config,
	visionQ *work.Queue[vision.Measurement],
	pushQ *work.Queue[robomaster.Push],
	eventQ *work.Queue[robomaster.Event],
	logger golog.Logger,
) (*Keeper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	period := time.Duration(float64(time.Second) / cfg.Frequency)
	k := &Keeper{
		name:    name,
		cfg:     cfg,
		drive:   drive,
		clk:     clk,
		logger:  logger,
		visionQ: visionQ,
		pushQ:   pushQ,
		eventQ:  eventQ,
		state:   Watching,
		pid:     control.NewPID(cfg.Kp, cfg.Ki, cfg.Kd, 0, period, cfg.DefaultXYSpeed),
		maxX:    cfg.FieldDepth / 2,
		maxY:    cfg.FieldWidth / 2,
	}
	if err := k.enterState(); err != nil {
		return nil, errors.Wrap(err, "entering initial state")
	}
	return k, nil
}

// State returns the current phase.
func (k *Keeper) State() State {
	return k.state
}

// Name implements work.Worker.
func (k *Keeper) Name() string { return k.name }

// Frequency implements work.Worker.
func (k *Keeper) Frequency() float64 { return k.cfg.Frequency }

// Close implements work.Worker. The drive belongs to the caller.
func (k *Keeper) Close() error { return nil }

// Work executes one control cycle: clear the remembered contact, drain
// the queues in arrival order, then dispatch on state.
func (k *Keeper) Work(ctx context.Context) error {
	k.hitSeen = false
	k.hitIndex = 0

	if err := k.drainPush(); err != nil {
		return err
	}
	if err := k.drainEvents(); err != nil {
		return err
	}
	k.drainVision()

	switch k.state {
	case Watching:
		return k.watch()
	case Chasing:
		return k.chase(ctx)
	case Kicking:
		return k.kick(ctx)
	default:
		return errors.Errorf("unknown state %v", k.state)
	}
}

func (k *Keeper) drainPush() error {
	updated := false
	for {
		p, ok := k.pushQ.TryNext()
		if !ok {
			break
		}
		updated = true
		switch v := p.(type) {
		case robomaster.ChassisPosition:
			k.pose.X, k.pose.Y = v.X, v.Y
		case robomaster.ChassisAttitude:
			k.pose.Z = v.Yaw
		default:
			return errors.Errorf("unexpected push content %T", p)
		}
	}
	if updated {
		k.poseLastSeen = k.clk.Now()
	}
	return nil
}

func (k *Keeper) drainEvents() error {
	updated := false
	for {
		e, ok := k.eventQ.TryNext()
		if !ok {
			break
		}
		updated = true
		hit, isHit := e.(robomaster.ArmorHitEvent)
		if !isHit {
			return errors.Errorf("unexpected event content %T", e)
		}
		k.hitIndex = hit.Index
		k.hitSeen = true
	}
	if updated {
		k.hitLastSeen = k.clk.Now()
	}
	return nil
}

func (k *Keeper) drainVision() {
	updated := false
	for {
		m, ok := k.visionQ.TryNext()
		if !ok {
			break
		}
		updated = true
		k.ball = m
		k.ballValid = true
	}
	if updated {
		k.ballLastSeen = k.clk.Now()
	}
}

func (k *Keeper) nextState() error {
	k.state = k.state.Next()
	k.logger.Infow("state advanced", "state", k.state)
	return k.enterState()
}

// resetState aborts to Watching. Already Watching is a no-op so entry
// effects do not re-fire.
func (k *Keeper) resetState() error {
	if k.state == Watching {
		return nil
	}
	k.state = k.state.Origin()
	k.logger.Infow("state reset", "state", k.state)
	return k.enterState()
}

// enterState performs the one-shot side effects of the current state.
func (k *Keeper) enterState() error {
	switch k.state {
	case Watching:
		if err := k.recenter(); err != nil {
			return err
		}
		return k.drive.LEDControl(robomaster.LEDAll, robomaster.LEDEffectPulse, 0, 255, 0)
	case Chasing:
		k.pid.Reset()
		return k.drive.LEDControl(robomaster.LEDAll, robomaster.LEDEffectSolid, 255, 0, 0)
	case Kicking:
		if err := k.drive.ChassisMove(-k.maxX*2/3, 0, 0, k.cfg.DefaultXYSpeed, 0); err != nil {
			return err
		}
		return k.drive.LEDControl(robomaster.LEDAll, robomaster.LEDEffectSolid, 255, 255, 255)
	default:
		return errors.Errorf("unknown state %v", k.state)
	}
}

// recenter cancels accumulated drift by moving back to the tracked field
// center. Yaw within DegreeEps is left alone.
func (k *Keeper) recenter() error {
	diffZ := k.pose.Z
	if math.Abs(diffZ) < k.cfg.DegreeEps {
		diffZ = 0
	}
	return k.drive.ChassisMove(-k.pose.X, -k.pose.Y, -diffZ, k.cfg.DefaultXYSpeed, k.cfg.DefaultZSpeed)
}

// watch observes only: no motion beyond the one-shot recenter on entry.
func (k *Keeper) watch() error {
	if !k.ballValid {
		return nil
	}
	if k.ball.Forward < k.cfg.ChaseEnterThreshold {
		return k.nextState()
	}
	return nil
}

// guard is the shared chase/kick precondition. It reports whether motion
// is permitted this cycle; when it is not, it has already stopped the
// wheels or transitioned as required.
func (k *Keeper) guard(ctx context.Context) (bool, error) {
	if k.hitSeen {
		if err := k.stopWheels(); err != nil {
			return false, err
		}
		if k.hitIndex == k.cfg.FrontArmorIndex {
			if k.state == Kicking {
				k.pause(ctx)
			}
			return false, k.nextState()
		}
		k.pause(ctx)
		return false, k.resetState()
	}

	if k.clk.Now().Sub(k.ballLastSeen) > k.cfg.BallAbsentTimeout {
		return false, k.resetState()
	}

	if k.ball.Forward > k.cfg.ChaseExitThreshold {
		return false, k.resetState()
	}

	if math.Abs(k.pose.X) > k.maxX {
		if err := k.stopWheels(); err != nil {
			return false, err
		}
		if err := k.drive.LEDControl(robomaster.LEDBottomFront, robomaster.LEDEffectBlink, 0, 0, 255); err != nil {
			return false, err
		}
		return false, k.drive.LEDControl(robomaster.LEDBottomBack, robomaster.LEDEffectBlink, 0, 0, 255)
	}

	// Out of bounds sideways only blocks motion that would go further
	// out; correcting back toward center stays allowed.
	if k.pose.Y > k.maxY && k.ball.Lateral > k.cfg.DistanceEps {
		if err := k.stopWheels(); err != nil {
			return false, err
		}
		return false, k.drive.LEDControl(robomaster.LEDBottomRight, robomaster.LEDEffectBlink, 0, 0, 255)
	}
	if k.pose.Y < -k.maxY && -k.ball.Lateral > k.cfg.DistanceEps {
		if err := k.stopWheels(); err != nil {
			return false, err
		}
		return false, k.drive.LEDControl(robomaster.LEDBottomLeft, robomaster.LEDEffectBlink, 0, 0, 255)
	}

	return true, nil
}

func (k *Keeper) chase(ctx context.Context) error {
	ok, err := k.guard(ctx)
	if err != nil || !ok {
		return err
	}

	if k.ball.Forward < k.cfg.BlindSpotThreshold {
		return k.stopWheels()
	}
	vy := k.lateralCorrection()
	if vy == 0 {
		return k.stopWheels()
	}
	return k.drive.ChassisSpeed(0, vy, 0)
}

func (k *Keeper) kick(ctx context.Context) error {
	ok, err := k.guard(ctx)
	if err != nil || !ok {
		return err
	}

	// Slightly stale data: coast on the previous command rather than
	// steer on an old measurement.
	if k.clk.Now().Sub(k.ballLastSeen) > k.cfg.KickTimeout {
		return nil
	}
	vy := k.lateralCorrection()
	return k.drive.ChassisSpeed(k.cfg.DefaultXYSpeed, vy, 0)
}

func (k *Keeper) lateralCorrection() float64 {
	vy := k.pid.Next(k.ball.Lateral)
	if math.Abs(vy) < k.cfg.DeadBand {
		return 0
	}
	return vy
}

func (k *Keeper) stopWheels() error {
	return k.drive.ChassisWheel(0, 0, 0, 0)
}

func (k *Keeper) pause(ctx context.Context) {
	if k.cfg.SettlePause > 0 {
		goutils.SelectContextOrWait(ctx, k.cfg.SettlePause)
	}
}
