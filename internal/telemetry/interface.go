package telemetry

// Sender transmits telemetry records to the head-tracking consumer.
type Sender interface {
	Send(rec Record) error
	Close() error
}
