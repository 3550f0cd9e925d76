// internal/meter/sampler.go
package meter

import (
	"context"
	"errors"
	"time"
)

// FlowSource abstracts the measurement hardware. The sampler depends on the
// reading only; the TOF driver stands behind this interface.
type FlowSource interface {
	// ReadFlow returns the instantaneous flow rate in m3/h. Negative means
	// reverse flow.
	ReadFlow() (float32, error)
}

// Sample is one flow reading with its wall-clock time.
type Sample struct {
	FlowRate float32
	At       time.Time
	Err      error // non-nil means the reading failed
}

// Sampler is a dumb, clock-driven reader.
type Sampler struct {
	interval time.Duration
	source   FlowSource
}

// NewSampler creates a sampler with immutable config.
func NewSampler(interval time.Duration, source FlowSource) (*Sampler, error) {
	if interval <= 0 {
		return nil, errors.New("meter: sample interval must be > 0")
	}
	if source == nil {
		return nil, errors.New("meter: flow source required")
	}
	return &Sampler{interval: interval, source: source}, nil
}

// SampleOnce performs exactly one reading.
func (s *Sampler) SampleOnce() Sample {
	rate, err := s.source.ReadFlow()
	return Sample{FlowRate: rate, At: time.Now(), Err: err}
}

// Run starts the ticker loop and emits samples on the provided channel.
// One goroutine per meter. No overlap. No retries.
func (s *Sampler) Run(ctx context.Context, out chan<- Sample) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out <- s.SampleOnce()
		}
	}
}
