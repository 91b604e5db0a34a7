package metrics

import (
	"context"
	"time"
)

// HistoryRecorder persists relay statistics snapshots.
type HistoryRecorder interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository defines the interface for snapshot storage
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}

// Snapshot is a point-in-time copy of the relay counters.
type Snapshot struct {
	Timestamp       time.Time
	FramesSent      uint64
	SendErrors      uint64
	CommandsApplied uint64
	RecordsSkipped  uint64
	SessionsOpened  uint64
	SessionFailures uint64
	DeviceActive    bool
}
