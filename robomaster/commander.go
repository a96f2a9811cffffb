package robomaster

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Commander owns the control-channel connection to the robot. All methods
// are synchronous: validate arguments, send one command, wait for one
// response within the configured timeout. Safe for concurrent use.
type Commander struct {
	mu      sync.Mutex
	ip      string
	conn    net.Conn
	timeout time.Duration
	closed  bool
	buf     []byte
	logger  golog.Logger
}

// NewCommander connects to the robot at the given address and enters SDK
// mode. An empty address waits for the robot's broadcast announcement. An
// address containing a port is dialed verbatim; otherwise the control port
// is appended.
func NewCommander(ctx context.Context, addr string, timeout time.Duration, logger golog.Logger) (*Commander, error) {
	if addr == "" {
		found, err := FindRobotIP(ctx, "", timeout, 1, logger)
		if err != nil {
			return nil, err
		}
		addr = found
	}
	ip := addr
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, strconv.Itoa(CtrlPort))
	} else {
		ip, _, _ = net.SplitHostPort(addr)
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "dialing control channel")
	}
	c := &Commander{
		ip:      ip,
		conn:    conn,
		timeout: timeout,
		buf:     make([]byte, defaultBufSize),
		logger:  logger,
	}
	resp, err := c.do("command")
	if err != nil {
		return nil, multiClose(err, conn)
	}
	if !isOK(resp) && resp != "Already in SDK mode" {
		return nil, multiClose(errors.Errorf("entering SDK mode: %q", resp), conn)
	}
	return c, nil
}

func multiClose(err error, conn net.Conn) error {
	if closeErr := conn.Close(); closeErr != nil {
		return errors.Wrapf(err, "also failed to close connection: %s", closeErr)
	}
	return err
}

// IP returns the robot's address.
func (c *Commander) IP() string {
	return c.ip
}

// Close releases the control-channel socket. Calling it more than once is
// safe.
func (c *Commander) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// do renders and sends one command, then blocks for a single response. The
// caller must hold no lock; do takes it so a request and its response stay
// paired.
func (c *Commander) do(args ...interface{}) (string, error) {
	if len(args) == 0 {
		return "", errors.New("empty command not accepted")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", errors.New("connection is already closed")
	}

	cmd := render(args...)
	deadline := time.Now().Add(c.timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	if _, err := c.conn.Write([]byte(cmd)); err != nil {
		return "", errors.Wrapf(err, "sending %q", cmd)
	}
	n, err := c.conn.Read(c.buf)
	if err != nil {
		return "", errors.Wrapf(err, "awaiting response to %q", cmd)
	}
	resp := strings.TrimSpace(string(c.buf[:n]))
	c.logger.Debugw("command exchanged", "command", cmd, "response", resp)
	return resp, nil
}

// doOK sends a command whose only acceptable response is the success
// sentinel.
func (c *Commander) doOK(args ...interface{}) error {
	resp, err := c.do(args...)
	if err != nil {
		return err
	}
	if !isOK(resp) {
		return errors.Errorf("%v: unexpected response %q", args[0], resp)
	}
	return nil
}

// Version queries the SDK version string.
func (c *Commander) Version() (string, error) {
	return c.do("version")
}

// SetRobotMode sets the robot motion mode.
func (c *Commander) SetRobotMode(mode string) error {
	if err := oneOf("mode", mode, modeEnums); err != nil {
		return err
	}
	return c.doOK("robot", "mode", mode)
}

// RobotMode queries the current motion mode.
func (c *Commander) RobotMode() (string, error) {
	resp, err := c.do("robot", "mode", "?")
	if err != nil {
		return "", err
	}
	if err := oneOf("robot mode result", resp, modeEnums); err != nil {
		return "", err
	}
	return resp, nil
}

// ChassisSpeed commands chassis velocity: x, y in m/s, z in deg/s.
func (c *Commander) ChassisSpeed(x, y, z float64) error {
	if err := inRange("x", x, -3.5, 3.5); err != nil {
		return err
	}
	if err := inRange("y", y, -3.5, 3.5); err != nil {
		return err
	}
	if err := inRange("z", z, -600, 600); err != nil {
		return err
	}
	return c.doOK("chassis", "speed", "x", x, "y", y, "z", z)
}

// ChassisWheel commands the four wheel speeds in rpm.
func (c *Commander) ChassisWheel(w1, w2, w3, w4 float64) error {
	for _, w := range []struct {
		name  string
		value float64
	}{{"w1", w1}, {"w2", w2}, {"w3", w3}, {"w4", w4}} {
		if err := inRange(w.name, w.value, -1000, 1000); err != nil {
			return err
		}
	}
	return c.doOK("chassis", "wheel", "w1", w1, "w2", w2, "w3", w3, "w4", w4)
}

// ChassisMove commands a relative displacement: x, y in meters, z in
// degrees. speedXY and speedZ are optional velocity magnitudes; zero means
// unset, and speedZ requires speedXY.
func (c *Commander) ChassisMove(x, y, z, speedXY, speedZ float64) error {
	if err := inRange("x", x, -5, 5); err != nil {
		return err
	}
	if err := inRange("y", y, -5, 5); err != nil {
		return err
	}
	if err := inRange("z", z, -1800, 1800); err != nil {
		return err
	}
	args := []interface{}{"chassis", "move", "x", x, "y", y, "z", z}
	if speedXY != 0 {
		if speedXY < 0 || speedXY > 3.5 {
			return errors.Errorf("vxy %v is out of range (0, 3.5]", speedXY)
		}
		args = append(args, "vxy", speedXY)
	}
	if speedZ != 0 {
		if speedXY == 0 {
			return errors.New("vz requires vxy")
		}
		if speedZ < 0 || speedZ > 600 {
			return errors.Errorf("vz %v is out of range (0, 600]", speedZ)
		}
		args = append(args, "vz", speedZ)
	}
	return c.doOK(args...)
}

// GetChassisSpeed queries chassis and wheel speeds.
func (c *Commander) GetChassisSpeed() (ChassisSpeed, error) {
	resp, err := c.do("chassis", "speed", "?")
	if err != nil {
		return ChassisSpeed{}, err
	}
	return parseChassisSpeed(resp)
}

// GetChassisPosition queries the chassis position relative to power-on.
func (c *Commander) GetChassisPosition() (ChassisPosition, error) {
	resp, err := c.do("chassis", "position", "?")
	if err != nil {
		return ChassisPosition{}, err
	}
	return parseChassisPosition(resp, 3)
}

// GetChassisAttitude queries chassis pitch, roll and yaw.
func (c *Commander) GetChassisAttitude() (ChassisAttitude, error) {
	resp, err := c.do("chassis", "attitude", "?")
	if err != nil {
		return ChassisAttitude{}, err
	}
	return parseChassisAttitude(resp)
}

// GetChassisStatus queries the chassis status flags.
func (c *Commander) GetChassisStatus() (ChassisStatus, error) {
	resp, err := c.do("chassis", "status", "?")
	if err != nil {
		return ChassisStatus{}, err
	}
	return parseChassisStatus(resp)
}

// ChassisPushOn subscribes to chassis pushes. allFreq covers every channel
// at once; otherwise any subset of position/attitude/status may be
// selected with per-channel frequencies. Zero means unselected; selecting
// nothing is an error.
func (c *Commander) ChassisPushOn(allFreq, positionFreq, attitudeFreq, statusFreq int) error {
	args := []interface{}{"chassis", "push"}
	if allFreq != 0 {
		if allFreq < 0 {
			return errors.Errorf("freq %d is out of range", allFreq)
		}
		args = append(args, "freq", allFreq)
		return c.doOK(args...)
	}
	selected := false
	for _, ch := range []struct {
		name, freqName string
		freq           int
	}{
		{"position", "pfreq", positionFreq},
		{"attitude", "afreq", attitudeFreq},
		{"status", "sfreq", statusFreq},
	} {
		if ch.freq == 0 {
			continue
		}
		if ch.freq < 0 {
			return errors.Errorf("%s %d is out of range", ch.freqName, ch.freq)
		}
		selected = true
		args = append(args, ch.name, SwitchOn, ch.freqName, ch.freq)
	}
	if !selected {
		return errors.New("at least one push channel must be selected")
	}
	return c.doOK(args...)
}

// ChassisPushOff cancels chassis push subscriptions: either everything, or
// any subset. Selecting nothing is an error.
func (c *Commander) ChassisPushOff(all, position, attitude, status bool) error {
	if all {
		position, attitude, status = true, true, true
	}
	if !position && !attitude && !status {
		return errors.New("at least one push channel must be selected")
	}
	args := []interface{}{"chassis", "push"}
	if position {
		args = append(args, "position", SwitchOff)
	}
	if attitude {
		args = append(args, "attitude", SwitchOff)
	}
	if status {
		args = append(args, "status", SwitchOff)
	}
	return c.doOK(args...)
}

// GimbalSpeed commands gimbal pitch/yaw velocity in deg/s.
func (c *Commander) GimbalSpeed(pitch, yaw float64) error {
	if err := inRange("pitch", pitch, -450, 450); err != nil {
		return err
	}
	if err := inRange("yaw", yaw, -450, 450); err != nil {
		return err
	}
	return c.doOK("gimbal", "speed", "p", pitch, "y", yaw)
}

func gimbalMoveArgs(verb string, pitch, yaw, speedPitch, speedYaw float64) ([]interface{}, error) {
	if err := inRange("pitch", pitch, -55, 55); err != nil {
		return nil, err
	}
	if err := inRange("yaw", yaw, -55, 55); err != nil {
		return nil, err
	}
	args := []interface{}{"gimbal", verb, "p", pitch, "y", yaw}
	if speedPitch != 0 {
		if speedPitch < 0 || speedPitch > 540 {
			return nil, errors.Errorf("vp %v is out of range (0, 540]", speedPitch)
		}
		args = append(args, "vp", speedPitch)
	}
	if speedYaw != 0 {
		if speedPitch == 0 {
			return nil, errors.New("vy requires vp")
		}
		if speedYaw < 0 || speedYaw > 540 {
			return nil, errors.Errorf("vy %v is out of range (0, 540]", speedYaw)
		}
		args = append(args, "vy", speedYaw)
	}
	return args, nil
}

// GimbalMove commands a relative gimbal rotation in degrees with optional
// velocity magnitudes (zero means unset, vy requires vp).
func (c *Commander) GimbalMove(pitch, yaw, speedPitch, speedYaw float64) error {
	args, err := gimbalMoveArgs("move", pitch, yaw, speedPitch, speedYaw)
	if err != nil {
		return err
	}
	return c.doOK(args...)
}

// GimbalMoveTo commands an absolute gimbal rotation in degrees with
// optional velocity magnitudes.
func (c *Commander) GimbalMoveTo(pitch, yaw, speedPitch, speedYaw float64) error {
	args, err := gimbalMoveArgs("moveto", pitch, yaw, speedPitch, speedYaw)
	if err != nil {
		return err
	}
	return c.doOK(args...)
}

// GimbalSuspend puts the gimbal to sleep.
func (c *Commander) GimbalSuspend() error {
	return c.doOK("gimbal", "suspend")
}

// GimbalResume wakes the gimbal up.
func (c *Commander) GimbalResume() error {
	return c.doOK("gimbal", "resume")
}

// GimbalRecenter recenters the gimbal.
func (c *Commander) GimbalRecenter() error {
	return c.doOK("gimbal", "recenter")
}

// GetGimbalAttitude queries gimbal pitch and yaw.
func (c *Commander) GetGimbalAttitude() (GimbalAttitude, error) {
	resp, err := c.do("gimbal", "attitude", "?")
	if err != nil {
		return GimbalAttitude{}, err
	}
	return parseGimbalAttitude(resp)
}

// GimbalPushOn subscribes to gimbal attitude pushes. The frequency must be
// explicitly selected.
func (c *Commander) GimbalPushOn(attitudeFreq int) error {
	if attitudeFreq <= 0 {
		return errors.New("attitude push frequency must be selected")
	}
	return c.doOK("gimbal", "push", "attitude", SwitchOn, "afreq", attitudeFreq)
}

// GimbalPushOff cancels the gimbal attitude push subscription. The channel
// must be explicitly selected.
func (c *Commander) GimbalPushOff(attitude bool) error {
	if !attitude {
		return errors.New("attitude push channel must be selected")
	}
	return c.doOK("gimbal", "push", "attitude", SwitchOff)
}

// ArmorSensitivity sets the hit detection sensitivity, 1 to 10.
func (c *Commander) ArmorSensitivity(value int) error {
	if value < 1 || value > 10 {
		return errors.Errorf("sensitivity %d is out of range [1, 10]", value)
	}
	return c.doOK("armor", "sensitivity", value)
}

// GetArmorSensitivity queries the hit detection sensitivity.
func (c *Commander) GetArmorSensitivity() (int, error) {
	resp, err := c.do("armor", "sensitivity", "?")
	if err != nil {
		return 0, err
	}
	v, err := parseFloats(resp, 1)
	if err != nil {
		return 0, err
	}
	return int(v[0]), nil
}

// ArmorEvent toggles armor event reporting for the given attribute.
func (c *Commander) ArmorEvent(attr string, on bool) error {
	if err := oneOf("armor event attr", attr, []string{ArmorHit}); err != nil {
		return err
	}
	return c.doOK("armor", "event", attr, onOff(on))
}

// SoundEvent toggles sound event recognition for the given attribute.
func (c *Commander) SoundEvent(attr string, on bool) error {
	if err := oneOf("sound event attr", attr, []string{SoundApplause}); err != nil {
		return err
	}
	return c.doOK("sound", "event", attr, onOff(on))
}

// LEDControl sets an LED effect. r, g, b are 0 to 255.
func (c *Commander) LEDControl(comp, effect string, r, g, b int) error {
	if err := oneOf("led comp", comp, ledComps); err != nil {
		return err
	}
	if err := oneOf("led effect", effect, ledEffects); err != nil {
		return err
	}
	for _, ch := range []struct {
		name  string
		value int
	}{{"r", r}, {"g", g}, {"b", b}} {
		if ch.value < 0 || ch.value > 255 {
			return errors.Errorf("%s %d is out of range [0, 255]", ch.name, ch.value)
		}
	}
	return c.doOK("led", "control", "comp", comp, "r", r, "g", g, "b", b, "effect", effect)
}

// Stream turns the video stream on or off.
func (c *Commander) Stream(on bool) error {
	return c.doOK("stream", onOff(on))
}

// BlasterFire fires the blaster once.
func (c *Commander) BlasterFire() error {
	return c.doOK("blaster", "fire")
}

func onOff(on bool) string {
	if on {
		return SwitchOn
	}
	return SwitchOff
}
