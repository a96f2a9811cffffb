package robomaster

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

const broadcastPrefix = "robot ip "

// Discovery listens for the robot's UDP broadcast announcement to learn
// its address.
type Discovery struct {
	conn   *net.UDPConn
	logger golog.Logger
}

// NewDiscovery binds a broadcast-reception socket. An empty addr listens
// on the well-known announcement port on all interfaces.
func NewDiscovery(addr string, logger golog.Logger) (*Discovery, error) {
	if addr == "" {
		addr = net.JoinHostPort("", strconv.Itoa(IPPort))
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.Wrap(err, "binding announcement socket")
	}
	return &Discovery{conn: conn, logger: logger}, nil
}

// Addr returns the bound socket address.
func (d *Discovery) Addr() net.Addr {
	return d.conn.LocalAddr()
}

// Close releases the socket.
func (d *Discovery) Close() error {
	return d.conn.Close()
}

// Find waits up to timeout per attempt for an announcement datagram and
// returns the robot's address from it.
func (d *Discovery) Find(ctx context.Context, timeout time.Duration, attempts int) (string, error) {
	buf := make([]byte, defaultBufSize)
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := d.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return "", err
		}
		n, src, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			lastErr = err
			continue
		}
		addr, err := parseAnnouncement(string(buf[:n]), src.IP.String())
		if err != nil {
			d.logger.Warnw("ignoring broken announcement", "error", err)
			lastErr = err
			continue
		}
		return addr, nil
	}
	return "", errors.Wrapf(lastErr, "no announcement after %d attempts", attempts)
}

// parseAnnouncement extracts the robot address from an announcement
// datagram and checks it against the datagram's source.
func parseAnnouncement(msg, src string) (string, error) {
	if !strings.HasPrefix(msg, broadcastPrefix) || len(msg) == len(broadcastPrefix) {
		return "", errors.Errorf("broken announcement from %s: %q", src, msg)
	}
	addr := msg[len(broadcastPrefix):]
	if addr != src {
		return "", errors.Errorf("announcement source %s does not match reported address %s", src, addr)
	}
	return addr, nil
}

// FindRobotIP listens on the well-known announcement port and returns the
// robot's address.
func FindRobotIP(ctx context.Context, addr string, timeout time.Duration, attempts int, logger golog.Logger) (string, error) {
	d, err := NewDiscovery(addr, logger)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Errorw("error closing announcement socket", "error", err)
		}
	}()
	return d.Find(ctx, timeout, attempts)
}
