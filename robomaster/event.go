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

// EventListener receives asynchronous event datagrams (armor hits, sound
// recognition) on the event port and feeds decoded events into its queue.
type EventListener struct {
	name   string
	conn   *net.UDPConn
	out    *work.Queue[Event]
	buf    []byte
	logger golog.Logger
}

// NewEventListener binds the event-reception socket. An empty addr listens
// on the well-known event port.
func NewEventListener(name, addr string, out *work.Queue[Event], logger golog.Logger) (*EventListener, error) {
	conn, err := bindListener(addr, EventPort)
	if err != nil {
		return nil, err
	}
	return &EventListener{
		name:   name,
		conn:   conn,
		out:    out,
		buf:    make([]byte, defaultBufSize),
		logger: logger,
	}, nil
}

// Addr returns the bound socket address.
func (l *EventListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Name implements work.Worker.
func (l *EventListener) Name() string { return l.name }

// Frequency implements work.Worker. Receives pace themselves.
func (l *EventListener) Frequency() float64 { return 0 }

// Work performs one bounded receive and enqueues whatever decodes.
func (l *EventListener) Work(ctx context.Context) error {
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
	events, err := ParseEvent(string(l.buf[:n]))
	if err != nil {
		l.logger.Warnw("skipping undecodable event datagram", "error", err)
	}
	for _, e := range events {
		l.out.Put(e)
	}
	return nil
}

// Close releases the socket.
func (l *EventListener) Close() error {
	return l.conn.Close()
}

// ParseEvent decodes one event datagram, which may carry several
// ";"-separated events.
func ParseEvent(data string) ([]Event, error) {
	var out []Event
	var badSegments []string
	for _, segment := range strings.Split(data, terminator) {
		tokens := strings.Fields(segment)
		if len(tokens) == 0 {
			continue
		}
		e, err := parseEventRecord(tokens)
		if err != nil {
			badSegments = append(badSegments, segment)
			continue
		}
		out = append(out, e)
	}
	if len(badSegments) > 0 {
		return out, errors.Errorf("unparseable event segments %q in %q", badSegments, data)
	}
	return out, nil
}

func parseEventRecord(tokens []string) (Event, error) {
	if len(tokens) != 4 || tokens[1] != "event" {
		return nil, errors.Errorf("unknown event form %q", strings.Join(tokens, " "))
	}
	value, err := strconv.Atoi(tokens[3])
	if err != nil {
		return nil, errors.Errorf("bad event value %q: %s", tokens[3], err)
	}
	switch tokens[0] + " " + tokens[2] {
	case "armor " + ArmorHit:
		return ArmorHitEvent{Index: value}, nil
	case "sound " + SoundApplause:
		return SoundApplauseEvent{Count: value}, nil
	default:
		return nil, errors.Errorf("unknown event %q %q", tokens[0], tokens[2])
	}
}
