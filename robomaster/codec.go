// Package robomaster speaks the RoboMaster EP plain-text SDK protocol:
// request/response commands over TCP plus unsolicited push and event
// datagrams over UDP.
package robomaster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Well-known SDK ports.
const (
	VideoPort = 40921
	AudioPort = 40922
	CtrlPort  = 40923
	PushPort  = 40924
	EventPort = 40925
	IPPort    = 40926
)

const defaultBufSize = 512

// Switch values accepted by toggle commands.
const (
	SwitchOn  = "on"
	SwitchOff = "off"
)

// Robot motion modes.
const (
	ModeChassisLead = "chassis_lead"
	ModeGimbalLead  = "gimbal_lead"
	ModeFree        = "free"
)

var modeEnums = []string{ModeChassisLead, ModeGimbalLead, ModeFree}

// LED components.
const (
	LEDAll         = "all"
	LEDTopAll      = "top_all"
	LEDTopRight    = "top_right"
	LEDTopLeft     = "top_left"
	LEDBottomAll   = "bottom_all"
	LEDBottomFront = "bottom_front"
	LEDBottomBack  = "bottom_back"
	LEDBottomLeft  = "bottom_left"
	LEDBottomRight = "bottom_right"
)

var ledComps = []string{
	LEDAll, LEDTopAll, LEDTopRight, LEDTopLeft,
	LEDBottomAll, LEDBottomFront, LEDBottomBack, LEDBottomLeft, LEDBottomRight,
}

// LED effects.
const (
	LEDEffectSolid     = "solid"
	LEDEffectOff       = "off"
	LEDEffectPulse     = "pulse"
	LEDEffectBlink     = "blink"
	LEDEffectScrolling = "scrolling"
)

var ledEffects = []string{LEDEffectSolid, LEDEffectOff, LEDEffectPulse, LEDEffectBlink, LEDEffectScrolling}

// Event attributes.
const (
	ArmorHit      = "hit"
	SoundApplause = "applause"
)

// ChassisSpeed is the chassis speed query result: three linear components
// plus the four wheel speeds.
type ChassisSpeed struct {
	X, Y, Z        float64 // m/s, m/s, deg/s
	W1, W2, W3, W4 float64 // rpm
}

// ChassisPosition is a chassis position record. Z doubles as the tracked
// yaw when the record is used as a pose accumulator.
type ChassisPosition struct {
	X, Y, Z float64
}

// ChassisAttitude is a chassis attitude record in degrees.
type ChassisAttitude struct {
	Pitch, Roll, Yaw float64
}

// ChassisStatus is the chassis status flag set.
type ChassisStatus struct {
	Static     bool
	UpHill     bool
	DownHill   bool
	OnSlope    bool
	PickUp     bool
	Slip       bool
	ImpactX    bool
	ImpactY    bool
	ImpactZ    bool
	RollOver   bool
	HillStatic bool
}

// GimbalAttitude is a gimbal attitude record in degrees.
type GimbalAttitude struct {
	Pitch, Yaw float64
}

// Push is implemented by every record the robot delivers on the push channel.
type Push interface {
	pushMessage()
}

func (ChassisPosition) pushMessage() {}
func (ChassisAttitude) pushMessage() {}
func (ChassisStatus) pushMessage()   {}
func (GimbalAttitude) pushMessage()  {}

// Event is implemented by every record the robot delivers on the event channel.
type Event interface {
	eventMessage()
}

// ArmorHitEvent reports which armor panel was struck.
type ArmorHitEvent struct {
	Index int
}

// SoundApplauseEvent reports a recognized clap count.
type SoundApplauseEvent struct {
	Count int
}

func (ArmorHitEvent) eventMessage()      {}
func (SoundApplauseEvent) eventMessage() {}

const terminator = ";"

// render joins command tokens with single spaces and appends the terminator.
func render(args ...interface{}) string {
	tokens := make([]string, 0, len(args))
	for _, arg := range args {
		tokens = append(tokens, formatToken(arg))
	}
	return strings.Join(tokens, " ") + terminator
}

func formatToken(arg interface{}) string {
	switch v := arg.(type) {
	case float64:
		if v == 0 {
			// avoid "-0" from negated zero values
			return "0"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// isOK reports whether resp is the success sentinel. Exact match only;
// "ok." or "okay" are failures.
func isOK(resp string) bool {
	return resp == "ok"
}

// parseFloats splits resp on whitespace and converts every token, requiring
// exactly want tokens.
func parseFloats(resp string, want int) ([]float64, error) {
	tokens := strings.Fields(resp)
	if len(tokens) != want {
		return nil, errors.Errorf("expected %d fields, got %d in %q", want, len(tokens), resp)
	}
	out := make([]float64, want)
	for i, token := range tokens {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, errors.Errorf("bad field %d in %q: %s", i, resp, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseBools is parseFloats for the 0/1 flag responses.
func parseBools(resp string, want int) ([]bool, error) {
	values, err := parseFloats(resp, want)
	if err != nil {
		return nil, err
	}
	out := make([]bool, want)
	for i, v := range values {
		switch v {
		case 0:
			out[i] = false
		case 1:
			out[i] = true
		default:
			return nil, errors.Errorf("bad flag %v in %q", v, resp)
		}
	}
	return out, nil
}

func parseChassisSpeed(resp string) (ChassisSpeed, error) {
	v, err := parseFloats(resp, 7)
	if err != nil {
		return ChassisSpeed{}, err
	}
	return ChassisSpeed{X: v[0], Y: v[1], Z: v[2], W1: v[3], W2: v[4], W3: v[5], W4: v[6]}, nil
}

func parseChassisPosition(resp string, want int) (ChassisPosition, error) {
	v, err := parseFloats(resp, want)
	if err != nil {
		return ChassisPosition{}, err
	}
	pos := ChassisPosition{X: v[0], Y: v[1]}
	if want == 3 {
		pos.Z = v[2]
	}
	return pos, nil
}

func parseChassisAttitude(resp string) (ChassisAttitude, error) {
	v, err := parseFloats(resp, 3)
	if err != nil {
		return ChassisAttitude{}, err
	}
	return ChassisAttitude{Pitch: v[0], Roll: v[1], Yaw: v[2]}, nil
}

func parseChassisStatus(resp string) (ChassisStatus, error) {
	v, err := parseBools(resp, 11)
	if err != nil {
		return ChassisStatus{}, err
	}
	return ChassisStatus{
		Static:     v[0],
		UpHill:     v[1],
		DownHill:   v[2],
		OnSlope:    v[3],
		PickUp:     v[4],
		Slip:       v[5],
		ImpactX:    v[6],
		ImpactY:    v[7],
		ImpactZ:    v[8],
		RollOver:   v[9],
		HillStatic: v[10],
	}, nil
}

func parseGimbalAttitude(resp string) (GimbalAttitude, error) {
	v, err := parseFloats(resp, 2)
	if err != nil {
		return GimbalAttitude{}, err
	}
	return GimbalAttitude{Pitch: v[0], Yaw: v[1]}, nil
}

func inRange(name string, v, min, max float64) error {
	if v < min || v > max {
		return errors.Errorf("%s %v is out of range [%v, %v]", name, v, min, max)
	}
	return nil
}

func oneOf(name, v string, enums []string) error {
	for _, e := range enums {
		if v == e {
			return nil
		}
	}
	return errors.Errorf("unknown %s %q", name, v)
}
