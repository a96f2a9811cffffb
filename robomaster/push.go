package robomaster

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

// listenerReadTimeout bounds one receive so the worker loop stays
// responsive to shutdown.
const listenerReadTimeout = time.Second

// PushListener receives unsolicited telemetry datagrams on the push port
// and feeds decoded records into its queue. It is a work.Worker; one bad
// datagram is logged and skipped, never fatal.
type PushListener struct {
	name   string
	conn   *net.UDPConn
	out    *work.Queue[Push]
	buf    []byte
	logger golog.Logger
}

// NewPushListener binds the push-reception socket. An empty addr listens
// on the well-known push port.
func NewPushListener(name, addr string, out *work.Queue[Push], logger golog.Logger) (*PushListener, error) {
	conn, err := bindListener(addr, PushPort)
	if err != nil {
		return nil, err
	}
	return &PushListener{
		name:   name,
		conn:   conn,
		out:    out,
		buf:    make([]byte, defaultBufSize),
		logger: logger,
	}, nil
}

// Addr returns the bound socket address.
func (l *PushListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Name implements work.Worker.
func (l *PushListener) Name() string { return l.name }

// Frequency implements work.Worker. Receives pace themselves.
func (l *PushListener) Frequency() float64 { return 0 }

// Work performs one bounded receive and enqueues whatever decodes.
func (l *PushListener) Work(ctx context.Context) error {
	if err := l.conn.SetReadDeadline(time.Now().Add(listenerReadTimeout)); err != nil {
		return err
	}
	n, _, err := l.conn.ReadFromUDP(l.buf)
	if err != nil {
		if isTimeout(err) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	pushes, err := ParsePush(string(l.buf[:n]))
	if err != nil {
		l.logger.Warnw("skipping undecodable push datagram", "error", err)
	}
	for _, p := range pushes {
		l.out.Put(p)
	}
	return nil
}

// Close releases the socket.
func (l *PushListener) Close() error {
	return l.conn.Close()
}

// ParsePush decodes one push datagram. A datagram carries one or more
// segments separated by ";"; a segment either names its module
// ("chassis push attitude ...") or continues the previous one
// ("position ..."). Records whose payload does not tokenize to the exact
// expected field count are dropped with an error covering the datagram.
func ParsePush(data string) ([]Push, error) {
	var out []Push
	var badSegments []string
	module := ""
	for _, segment := range strings.Split(data, terminator) {
		tokens := strings.Fields(segment)
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "chassis", "gimbal":
			if len(tokens) < 3 || tokens[1] != "push" {
				badSegments = append(badSegments, segment)
				continue
			}
			module = tokens[0]
			tokens = tokens[2:]
		default:
			if module == "" {
				badSegments = append(badSegments, segment)
				continue
			}
		}
		subject, payload := tokens[0], strings.Join(tokens[1:], " ")
		p, err := parsePushRecord(module, subject, payload)
		if err != nil {
			badSegments = append(badSegments, segment)
			continue
		}
		out = append(out, p)
	}
	if len(badSegments) > 0 {
		return out, errors.Errorf("unparseable push segments %q in %q", badSegments, data)
	}
	return out, nil
}

func parsePushRecord(module, subject, payload string) (Push, error) {
	switch module + " " + subject {
	case "chassis position":
		p, err := parseChassisPosition(payload, 2)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "chassis attitude":
		p, err := parseChassisAttitude(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "chassis status":
		p, err := parseChassisStatus(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "gimbal attitude":
		p, err := parseGimbalAttitude(payload)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errors.Errorf("unknown push subject %q of module %q", subject, module)
	}
}

func bindListener(addr string, defaultPort int) (*net.UDPConn, error) {
	if addr == "" {
		addr = net.JoinHostPort("", strconv.Itoa(defaultPort))
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", addr)
	}
	return conn, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
