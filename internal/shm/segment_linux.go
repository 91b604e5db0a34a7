//go:build linux

package shm

import (
	"sync"

	"codeberg.org/mutker/viturectl/internal/errors"
	"golang.org/x/sys/unix"
)

// Segment is an attached read-only SysV shared memory segment.
type Segment struct {
	data      []byte
	closeOnce sync.Once
}

// Key derives the System V IPC key for path the way ftok(3) does.
func Key(path string, proj byte) (int, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, errors.New().Wrap(ErrKeyFailed, err)
	}

	return int(uint32(st.Ino&0xffff) | uint32(st.Dev&0xff)<<16 | uint32(proj)<<24), nil
}

// Attach maps the segment keyed by path. The segment must already exist.
func Attach(path string) (*Segment, error) {
	errFactory := errors.New()

	key, err := Key(path, 0)
	if err != nil {
		return nil, err
	}

	id, err := unix.SysvShmGet(key, QuaternionSize, 0)
	if err != nil {
		return nil, errFactory.Wrap(ErrSegmentGet, err)
	}

	data, err := unix.SysvShmAttach(id, 0, unix.SHM_RDONLY)
	if err != nil {
		return nil, errFactory.Wrap(ErrAttachFailed, err)
	}
	if len(data) < QuaternionSize {
		_ = unix.SysvShmDetach(data)
		return nil, errFactory.WithData(ErrShortSegment, len(data))
	}

	return &Segment{data: data}, nil
}

func (s *Segment) Read() (Quaternion, bool) {
	var buf [QuaternionSize]byte
	copy(buf[:], s.data)

	return DecodeQuaternion(buf[:])
}

// Close detaches the segment. A failed detach leaves the mapping in an
// unknown state and panics.
func (s *Segment) Close() {
	s.closeOnce.Do(func() {
		if err := unix.SysvShmDetach(s.data); err != nil {
			panic("shm: failed to detach shared memory: " + err.Error())
		}
		s.data = nil
	})
}
