package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/viturectl/internal/errors"
)

const (
	defaultName = "viturectl.pid"
	filePerm    = 0o600
)

// File guards against a second relay process holding the device and the
// control port.
type File struct {
	path string
}

// New returns a guard for path. An empty path falls back to the temp dir.
func New(path string) *File {
	if path == "" {
		path = filepath.Join(os.TempDir(), defaultName)
	}

	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Write writes the current process ID to the PID file. A file left behind by
// a process that is no longer running is replaced.
func (f *File) Write() error {
	errFactory := errors.New()

	if running, err := f.owner(); err != nil {
		return err
	} else if running != 0 {
		return errFactory.WithData(errors.ErrAlreadyRunning, running)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	err := os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), filePerm)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// owner returns the PID recorded in the file if that process is alive.
func (f *File) owner() (int, error) {
	errFactory := errors.New()

	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrInternal, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		// Garbage is treated as stale.
		return 0, nil
	}
	if pid == os.Getpid() {
		return 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, nil
	}

	// EPERM still means the process exists.
	if err := process.Signal(syscall.Signal(0)); err != nil && !errors.Is(err, syscall.EPERM) {
		return 0, nil
	}

	return pid, nil
}

// Remove removes the PID file.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
