package control

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"codeberg.org/mutker/viturectl/internal/calibration"
	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/orientation"
)

const (
	// DefaultAddr is the loopback port the relay listens on for commands.
	DefaultAddr = "127.0.0.1:4244"

	recordSeparator = ';'
	readTimeout     = 5 * time.Second
	maxMessageSize  = 64 << 10
)

// Stats counts control traffic. It is optional.
type Stats interface {
	CommandsApplied(n int)
	RecordsSkipped(n int)
}

// Listener applies calibration commands received over TCP. Connections are
// handled one at a time, each carrying one batch.
type Listener struct {
	ln     net.Listener
	state  *calibration.State
	latest *orientation.Latest
	stats  Stats

	closeOnce sync.Once
}

type Option func(*Listener)

func WithStats(s Stats) Option {
	return func(l *Listener) {
		l.stats = s
	}
}

// Listen binds addr. A bind failure is fatal for the relay.
func Listen(addr string, state *calibration.State, latest *orientation.Latest, opts ...Option) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.New().Wrap(ErrListenFailed, err)
	}

	l := &Listener{ln: ln, state: state, latest: latest}
	for _, opt := range opts {
		opt(l)
	}

	logger.Debug().Str("addr", ln.Addr().String()).Msg("Control listener bound")

	return l, nil
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until ctx is cancelled. Per-connection errors are
// logged and do not stop the loop.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Debug().Err(err).Msg("Control accept failed")
			continue
		}

		if err := l.handle(conn); err != nil {
			logger.Debug().Err(err).Msg("Control connection failed")
		}
	}
}

func (l *Listener) handle(conn net.Conn) error {
	errFactory := errors.New()
	defer conn.Close()

	logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Incoming control connection")

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return errFactory.Wrap(ErrReadFailed, err)
	}

	payload, err := io.ReadAll(io.LimitReader(conn, maxMessageSize))
	if err != nil {
		return errFactory.Wrap(ErrReadFailed, err)
	}

	if len(payload) == 0 {
		logger.Debug().Msg("Received empty control message")
		return nil
	}
	logger.Debug().Str("message", string(payload)).Msg("Received control message")

	batch, skipped := DecodeBatch(payload)
	if l.stats != nil {
		l.stats.RecordsSkipped(skipped)
	}
	if len(batch) == 0 {
		return nil
	}

	current, ok := l.latest.Load()
	l.state.Apply(batch, current, ok)
	if l.stats != nil {
		l.stats.CommandsApplied(len(batch))
	}

	settings := l.state.Settings()
	logger.Info().
		Int("commands", len(batch)).
		Floats32("scale", settings.Scale[:]).
		Bools("invert", settings.Invert[:]).
		Bool("recentered", settings.Reference != nil).
		Msg("Calibration updated")

	return nil
}

// Close stops accepting connections.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.ln.Close()
	})

	return err
}

// DecodeBatch splits a control message into records and decodes each one.
// Records that fail to decode are skipped and counted.
func DecodeBatch(payload []byte) (batch []calibration.Command, skipped int) {
	for _, record := range bytes.Split(payload, []byte{recordSeparator}) {
		if len(bytes.TrimSpace(record)) == 0 {
			continue
		}

		cmd, err := calibration.ParseCommand(record)
		if err != nil {
			logger.Debug().Err(err).Str("record", string(record)).Msg("Skipping control record")
			skipped++
			continue
		}
		batch = append(batch, cmd)
	}

	return batch, skipped
}

// EncodeBatch serializes cmds in order, each record terminated by ';'.
func EncodeBatch(cmds []calibration.Command) ([]byte, error) {
	var buf bytes.Buffer
	for _, cmd := range cmds {
		record, err := calibration.MarshalCommand(cmd)
		if err != nil {
			return nil, errors.New().Wrap(ErrEncodeFailed, err)
		}
		buf.Write(record)
		buf.WriteByte(recordSeparator)
	}

	return buf.Bytes(), nil
}

// Send delivers cmds to a running relay listening on addr.
func Send(ctx context.Context, addr string, cmds []calibration.Command) error {
	errFactory := errors.New()

	payload, err := EncodeBatch(cmds)
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errFactory.Wrap(ErrDialFailed, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return errFactory.Wrap(ErrWriteFailed, err)
		}
	}

	if _, err := conn.Write(payload); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	logger.Debug().Str("addr", addr).Int("commands", len(cmds)).Msg("Calibration commands sent")

	return nil
}
