package robomaster

import (
	"testing"

	"go.viam.com/test"
)

func TestRender(t *testing.T) {
	test.That(t, render("command"), test.ShouldEqual, "command;")
	test.That(t, render("chassis", "speed", "x", 1.1, "y", 1.2, "z", 1.3), test.ShouldEqual,
		"chassis speed x 1.1 y 1.2 z 1.3;")
	test.That(t, render("chassis", "wheel", "w1", -1.0, "w2", -2.0, "w3", -3.0, "w4", -4.0), test.ShouldEqual,
		"chassis wheel w1 -1 w2 -2 w3 -3 w4 -4;")
	test.That(t, render("armor", "sensitivity", 10), test.ShouldEqual, "armor sensitivity 10;")
}

func TestRenderNegativeZero(t *testing.T) {
	x := 0.0
	test.That(t, render("chassis", "move", "x", -x), test.ShouldEqual, "chassis move x 0;")
}

func TestIsOK(t *testing.T) {
	test.That(t, isOK("ok"), test.ShouldBeTrue)
	test.That(t, isOK("fail"), test.ShouldBeFalse)
	test.That(t, isOK(""), test.ShouldBeFalse)
	test.That(t, isOK("ok."), test.ShouldBeFalse)
	test.That(t, isOK("okay"), test.ShouldBeFalse)
	test.That(t, isOK(" ok"), test.ShouldBeFalse)
}

func TestParseChassisSpeed(t *testing.T) {
	speed, err := parseChassisSpeed("1 2 30 100 150 200 250")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, speed, test.ShouldResemble, ChassisSpeed{X: 1, Y: 2, Z: 30, W1: 100, W2: 150, W3: 200, W4: 250})

	_, err = parseChassisSpeed("fail")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = parseChassisSpeed("1 2 30 100 150 200")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = parseChassisSpeed("1 2 30 100 150 200 250 300")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseChassisPosition(t *testing.T) {
	pos, err := parseChassisPosition("1 1.5 20", 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldResemble, ChassisPosition{X: 1, Y: 1.5, Z: 20})

	pos, err = parseChassisPosition("0.1 0.2", 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldResemble, ChassisPosition{X: 0.1, Y: 0.2})

	_, err = parseChassisPosition("fail", 3)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseChassisAttitude(t *testing.T) {
	att, err := parseChassisAttitude("-20 -50.5 -70")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, att, test.ShouldResemble, ChassisAttitude{Pitch: -20, Roll: -50.5, Yaw: -70})

	_, err = parseChassisAttitude("fail")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseChassisStatus(t *testing.T) {
	status, err := parseChassisStatus("1 1 1 1 1 1 1 1 1 1 1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldResemble, ChassisStatus{
		Static: true, UpHill: true, DownHill: true, OnSlope: true, PickUp: true,
		Slip: true, ImpactX: true, ImpactY: true, ImpactZ: true, RollOver: true, HillStatic: true,
	})

	status, err = parseChassisStatus("0 0 0 0 0 0 0 0 0 0 0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldResemble, ChassisStatus{})

	_, err = parseChassisStatus("0 0 0 0 0 0 0 0 0 0 2")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = parseChassisStatus("0 0 0 0 0 0 0 0 0 0")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseGimbalAttitude(t *testing.T) {
	att, err := parseGimbalAttitude("-10 20")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, att, test.ShouldResemble, GimbalAttitude{Pitch: -10, Yaw: 20})

	_, err = parseGimbalAttitude("fail")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseAnnouncement(t *testing.T) {
	addr, err := parseAnnouncement("robot ip 192.168.42.42", "192.168.42.42")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, addr, test.ShouldEqual, "192.168.42.42")

	_, err = parseAnnouncement("robot ip 192.168.42.42", "192.168.42.1")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = parseAnnouncement("robot ip ", "192.168.42.42")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = parseAnnouncement("hello", "192.168.42.42")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParsePush(t *testing.T) {
	pushes, err := ParsePush("chassis push attitude -0.33 0.032 28.8")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pushes, test.ShouldResemble, []Push{ChassisAttitude{Pitch: -0.33, Roll: 0.032, Yaw: 28.8}})

	pushes, err = ParsePush("chassis push position 0.1 0.2 ;attitude 1 2 3 ;status 0 0 0 0 0 0 0 0 0 0 0 ;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pushes, test.ShouldResemble, []Push{
		ChassisPosition{X: 0.1, Y: 0.2},
		ChassisAttitude{Pitch: 1, Roll: 2, Yaw: 3},
		ChassisStatus{},
	})

	pushes, err = ParsePush("gimbal push attitude -10 20 ;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pushes, test.ShouldResemble, []Push{GimbalAttitude{Pitch: -10, Yaw: 20}})

	// wrong field count for the record is an error, not a partial record
	pushes, err = ParsePush("chassis push position 0.1 0.2 0.3")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, pushes, test.ShouldBeNil)

	// a bad segment is dropped without losing its neighbors
	pushes, err = ParsePush("chassis push position 0.1 0.2 ;attitude nope ;")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, pushes, test.ShouldResemble, []Push{ChassisPosition{X: 0.1, Y: 0.2}})

	// a continuation with no module context is an error
	_, err = ParsePush("attitude 1 2 3")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseEvent(t *testing.T) {
	events, err := ParseEvent("armor event hit 2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, events, test.ShouldResemble, []Event{ArmorHitEvent{Index: 2}})

	events, err = ParseEvent("sound event applause 3 ;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, events, test.ShouldResemble, []Event{SoundApplauseEvent{Count: 3}})

	_, err = ParseEvent("armor event hit two")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseEvent("armor event pierced 2")
	test.That(t, err, test.ShouldNotBeNil)
}
