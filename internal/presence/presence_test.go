package presence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/viturectl/internal/device"
	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/hotplug"
	"codeberg.org/mutker/viturectl/internal/logger"
	"codeberg.org/mutker/viturectl/internal/orientation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var glasses = hotplug.ID{Vendor: 0x35ca, Product: 0x1011}

type fakeWatcher struct {
	events    chan hotplug.Event
	handleErr error
	handled   int
	closed    bool
	mu        sync.Mutex
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan hotplug.Event, 16)}
}

func (w *fakeWatcher) Events() <-chan hotplug.Event { return w.events }

func (w *fakeWatcher) HandleEvents(time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handled++
	return w.handleErr
}

func (w *fakeWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// fakeSDK records the order of init/deinit calls and fails if two
// initializations ever overlap.
type fakeSDK struct {
	mu       sync.Mutex
	log      []string
	live     int
	overlap  bool
	failInit int
	handler  func([]byte)
}

func (f *fakeSDK) Init(h func([]byte)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInit > 0 {
		f.failInit--
		f.log = append(f.log, "init-failed")
		return false
	}
	f.live++
	if f.live > 1 {
		f.overlap = true
	}
	f.handler = h
	f.log = append(f.log, "init")
	return true
}

func (f *fakeSDK) SetIMU(bool) device.Result { return device.ResultSuccess }

func (f *fakeSDK) Deinit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live--
	f.handler = nil
	f.log = append(f.log, "deinit")
}

func (f *fakeSDK) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

type countingObserver struct {
	opened, closed, failed int
}

func (o *countingObserver) SessionOpened()      { o.opened++ }
func (o *countingObserver) SessionClosed()      { o.closed++ }
func (o *countingObserver) SessionFailed(error) { o.failed++ }

func newController(t *testing.T) (*Controller, *fakeWatcher, *fakeSDK, *orientation.Stream) {
	t.Helper()
	w := newFakeWatcher()
	sdk := &fakeSDK{}
	out := orientation.NewStream(4)
	c := NewWithWatcher(w, sdk, out)
	t.Cleanup(func() { _ = c.Close() })
	return c, w, sdk, out
}

func TestArrivalStartsSessionAndForwardsSamples(t *testing.T) {
	c, _, sdk, out := newController(t)

	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: glasses})
	require.True(t, c.Active())

	sdk.handler([]byte{0x3f, 0x80, 0, 0, 0x40, 0, 0, 0, 0x40, 0x40, 0, 0})
	select {
	case s := <-out.C():
		assert.Equal(t, orientation.Sample{Roll: 1, Pitch: 2, Yaw: 3}, s)
	default:
		t.Fatal("sample was not forwarded")
	}
}

func TestRepeatedArrivalIsIdempotent(t *testing.T) {
	c, _, sdk, _ := newController(t)

	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: glasses})
	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: glasses})

	assert.Equal(t, []string{"init"}, sdk.calls())
	assert.False(t, sdk.overlap)
}

func TestLeftThenArrivedReplacesSession(t *testing.T) {
	c, _, sdk, _ := newController(t)

	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: glasses})
	c.HandleEvent(hotplug.Event{Kind: hotplug.Left, Device: glasses})
	assert.False(t, c.Active())
	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: glasses})

	assert.True(t, c.Active())
	assert.Equal(t, []string{"init", "deinit", "init"}, sdk.calls())
	assert.False(t, sdk.overlap)
}

func TestLeftWithoutSessionIsIgnored(t *testing.T) {
	c, _, sdk, _ := newController(t)

	c.HandleEvent(hotplug.Event{Kind: hotplug.Left, Device: glasses})
	assert.Empty(t, sdk.calls())
	assert.False(t, c.Active())
}

func TestInitFailureKeepsWatching(t *testing.T) {
	w := newFakeWatcher()
	sdk := &fakeSDK{failInit: 1}
	obs := &countingObserver{}
	c := NewWithWatcher(w, sdk, orientation.NewStream(1), WithObserver(obs))
	t.Cleanup(func() { _ = c.Close() })

	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: glasses})
	assert.False(t, c.Active())

	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: glasses})
	assert.True(t, c.Active())

	c.HandleEvent(hotplug.Event{Kind: hotplug.Left, Device: glasses})
	assert.Equal(t, []string{"init-failed", "init", "deinit"}, sdk.calls())
	assert.Equal(t, countingObserver{opened: 1, closed: 1, failed: 1}, *obs)
}

func TestRunProcessesQueuedEvents(t *testing.T) {
	c, w, sdk, _ := newController(t)

	w.events <- hotplug.Event{Kind: hotplug.Arrived, Device: glasses}
	w.events <- hotplug.Event{Kind: hotplug.Left, Device: glasses}
	w.events <- hotplug.Event{Kind: hotplug.Arrived, Device: glasses}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(sdk.calls()) == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	assert.True(t, c.Active())
	require.NoError(t, c.Close())
	assert.False(t, c.Active())
	assert.Equal(t, []string{"init", "deinit", "init", "deinit"}, sdk.calls())
	assert.True(t, w.closed)
}

func TestRunStopsOnWatcherError(t *testing.T) {
	c, w, _, _ := newController(t)
	w.handleErr = fmt.Errorf("netlink socket gone")

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrWatcherFailed))
}

func TestCloseReleasesSessionAndWatcher(t *testing.T) {
	w := newFakeWatcher()
	sdk := &fakeSDK{}
	c := NewWithWatcher(w, sdk, orientation.NewStream(1))

	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: glasses})
	require.NoError(t, c.Close())

	assert.Equal(t, []string{"init", "deinit"}, sdk.calls())
	assert.True(t, w.closed)
}

func TestSessionRemembersDevice(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLogLevel(logger.InfoLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.WarnLevel) })

	other := hotplug.ID{Vendor: 0x35ca, Product: 0x101b}
	c := NewWithWatcher(newFakeWatcher(), &fakeSDK{}, orientation.NewStream(1))

	c.HandleEvent(hotplug.Event{Kind: hotplug.Arrived, Device: other})
	assert.Equal(t, other, c.device)

	buf.Reset()
	require.NoError(t, c.Close())
	assert.Equal(t, hotplug.ID{}, c.device)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Device session closed on shutdown", entry["message"])
	assert.Equal(t, "35ca:101b", entry["device"])
}
