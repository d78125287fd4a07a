package bus

import (
	"context"
	"sync"
)

// MemorySource is an in-process Source backed by a bounded channel,
// letting pipeline tests drive records through without a broker. Records
// sharing a key are delivered in submission order, matching the
// same-partition ordering guarantee the real Kafka source provides.
type MemorySource struct {
	records chan Record
	closed  chan struct{}
	once    sync.Once
}

// NewMemorySource creates a MemorySource with the given buffer size.
func NewMemorySource(buffer int) *MemorySource {
	return &MemorySource{
		records: make(chan Record, buffer),
		closed:  make(chan struct{}),
	}
}

// Push enqueues a record for the next Run call to dispatch. It blocks if
// the buffer is full.
func (s *MemorySource) Push(rec Record) {
	select {
	case s.records <- rec:
	case <-s.closed:
	}
}

func (s *MemorySource) Run(ctx context.Context, handle func(ctx context.Context, rec Record) error) error {
	for {
		select {
		case rec := <-s.records:
			_ = handle(ctx, rec)
		case <-s.closed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *MemorySource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// MemorySink is an in-process Sink that retains every published record,
// used by tests to assert on emitted output.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Publish(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{Key: key, Value: value})
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Records returns a snapshot of everything published so far, in
// publication order.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
