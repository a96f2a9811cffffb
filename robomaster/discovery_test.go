package robomaster_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/fieldkeeper/keeper/robomaster"
)

func announce(t *testing.T, to net.Addr, msg string) {
	t.Helper()
	conn, err := net.Dial("udp", to.String())
	test.That(t, err, test.ShouldBeNil)
	defer conn.Close()
	_, err = conn.Write([]byte(msg))
	test.That(t, err, test.ShouldBeNil)
}

func TestDiscoveryFind(t *testing.T) {
	logger := golog.NewTestLogger(t)
	d, err := robomaster.NewDiscovery("127.0.0.1:0", logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, d.Close(), test.ShouldBeNil)
	}()

	go func() {
		time.Sleep(50 * time.Millisecond)
		announce(t, d.Addr(), "robot ip 127.0.0.1")
	}()

	addr, err := d.Find(context.Background(), time.Second, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, addr, test.ShouldEqual, "127.0.0.1")
}

func TestDiscoverySourceMismatch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	d, err := robomaster.NewDiscovery("127.0.0.1:0", logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, d.Close(), test.ShouldBeNil)
	}()

	go func() {
		time.Sleep(50 * time.Millisecond)
		announce(t, d.Addr(), "robot ip 192.168.42.42")
	}()

	_, err = d.Find(context.Background(), 300*time.Millisecond, 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDiscoveryTimesOut(t *testing.T) {
	logger := golog.NewTestLogger(t)
	d, err := robomaster.NewDiscovery("127.0.0.1:0", logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, d.Close(), test.ShouldBeNil)
	}()

	start := time.Now()
	_, err = d.Find(context.Background(), 50*time.Millisecond, 2)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, time.Since(start), test.ShouldBeGreaterThanOrEqualTo, 100*time.Millisecond)
}
