package vision

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/fieldkeeper/keeper/work"
)

// DefaultPort is the local port the collaborator posts measurements to.
const DefaultPort = 40930

const readTimeout = time.Second

// Listener receives measurement datagrams ("<forward> <lateral>
// <bearing>") from the external vision collaborator and feeds them into
// the vision queue. It is a work.Worker.
type Listener struct {
	name   string
	conn   *net.UDPConn
	out    *work.Queue[Measurement]
	buf    []byte
	logger golog.Logger
}

// NewListener binds the measurement-reception socket.
func NewListener(name, addr string, out *work.Queue[Measurement], logger golog.Logger) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", addr)
	}
	return &Listener{
		name:   name,
		conn:   conn,
		out:    out,
		buf:    make([]byte, 128),
		logger: logger,
	}, nil
}

// Addr returns the bound socket address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Name implements work.Worker.
func (l *Listener) Name() string { return l.name }

// Frequency implements work.Worker. Receives pace themselves.
func (l *Listener) Frequency() float64 { return 0 }

// Work performs one bounded receive and enqueues the measurement if it
// decodes.
func (l *Listener) Work(ctx context.Context) error {
	if err := l.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return err
	}
	n, _, err := l.conn.ReadFromUDP(l.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	m, err := ParseMeasurement(string(l.buf[:n]))
	if err != nil {
		l.logger.Warnw("skipping undecodable measurement", "error", err)
		return nil
	}
	l.out.Put(m)
	return nil
}

// Close releases the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// ParseMeasurement decodes a "<forward> <lateral> <bearing>" datagram.
func ParseMeasurement(data string) (Measurement, error) {
	tokens := strings.Fields(data)
	if len(tokens) != 3 {
		return Measurement{}, errors.Errorf("expected 3 fields, got %d in %q", len(tokens), data)
	}
	var v [3]float64
	for i, token := range tokens {
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return Measurement{}, errors.Errorf("bad field %d in %q: %s", i, data, err)
		}
		v[i] = f
	}
	return Measurement{Forward: v[0], Lateral: v[1], Bearing: v[2]}, nil
}
