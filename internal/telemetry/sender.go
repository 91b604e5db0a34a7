package telemetry

import (
	"net"
	"strconv"

	"codeberg.org/mutker/viturectl/internal/errors"
)

// UDPSender writes records to a connected UDP socket.
type UDPSender struct {
	conn *net.UDPConn
	buf  []byte
}

// Dial connects a UDP socket to host:port. Nothing is sent, so an absent
// consumer only shows up later as failed sends.
func Dial(host string, port int) (*UDPSender, error) {
	errFactory := errors.New()

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, errFactory.Wrap(ErrResolveFailed, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errFactory.Wrap(ErrDialFailed, err)
	}

	return &UDPSender{conn: conn, buf: make([]byte, 0, RecordSize)}, nil
}

// Send transmits one record. It is not safe for concurrent use.
func (s *UDPSender) Send(rec Record) error {
	errFactory := errors.New()

	b, _ := rec.AppendBinary(s.buf[:0])
	n, err := s.conn.Write(b)
	if err != nil {
		return errFactory.Wrap(ErrSendFailed, err)
	}
	if n != len(b) {
		return errFactory.WithData(ErrShortWrite, n)
	}

	return nil
}

func (s *UDPSender) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *UDPSender) Close() error {
	if err := s.conn.Close(); err != nil {
		return errors.New().Wrap(ErrCloseFailed, err)
	}

	return nil
}
