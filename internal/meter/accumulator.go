// internal/meter/accumulator.go
package meter

import (
	"fmt"
	"math"
	"time"

	"github.com/aquametrics/flowmeter/internal/history"
	"github.com/aquametrics/flowmeter/internal/options"
	"github.com/aquametrics/flowmeter/internal/storage"
	"github.com/aquametrics/flowmeter/internal/telemetry"
)

// Accumulation windows, Unix-time truncations matching the ring bucket
// widths. The month window is the fixed 31-day span of the month ring, not
// a calendar month.
var (
	hourWindow  = int64(history.HourParams.BucketSeconds)
	dayWindow   = int64(history.DayParams.BucketSeconds)
	monthWindow = int64(history.MonthParams.BucketSeconds)
)

// Rings bundles the three archive rings the accumulator commits into.
type Rings struct {
	Hour  *history.Ring
	Day   *history.Ring
	Month *history.Ring
}

// Accumulator integrates flow samples into the record's usage counters and
// commits finished window totals into the archive rings.
//
// Counters hold whole litres; the sub-litre remainder carries between
// samples and is mirrored into the record's rest field so it survives a
// restart. Callers are expected to run Ingest from a single goroutine and
// persist the record separately (the daemon's periodic save).
type Accumulator struct {
	dev   storage.Device
	rec   *options.Record
	rings Rings

	lastAt   time.Time
	lastRate float32
	rest     float64
	upFrac   float64
}

func NewAccumulator(dev storage.Device, rec *options.Record, rings Rings) *Accumulator {
	return &Accumulator{
		dev:   dev,
		rec:   rec,
		rings: rings,
		rest:  float64(math.Float32frombits(rec.Rest())),
	}
}

// Snapshot returns the live telemetry for the register map.
func (a *Accumulator) Snapshot() telemetry.Snapshot {
	return telemetry.Snapshot{
		FlowRate:  a.lastRate,
		HourFlow:  float32(a.rec.HourTotal()),
		DayFlow:   float32(a.rec.DayTotal()),
		MonthFlow: float32(a.rec.MonthTotal()),
	}
}

// Ingest processes one successful sample: closes any accumulation window
// the sample time has moved past, then integrates the flow over the elapsed
// interval. The first sample only anchors the clock.
func (a *Accumulator) Ingest(s Sample) error {
	rate := s.FlowRate
	if rate < 0 && a.rec.EnableNegative() == 0 {
		rate = 0
	}

	if a.lastAt.IsZero() {
		a.lastAt = s.At
		a.lastRate = rate
		return nil
	}

	prev := a.lastAt.Unix()
	now := s.At.Unix()

	if err := a.commitWindows(prev, now); err != nil {
		return err
	}

	elapsed := s.At.Sub(a.lastAt).Seconds()
	if elapsed > 0 {
		// m3/h over elapsed seconds, in litres.
		a.rest += float64(rate) * elapsed * 1000 / 3600
		a.drainRest()

		a.upFrac += elapsed
		if sec := math.Floor(a.upFrac); sec > 0 {
			a.rec.SetUptime(a.rec.Uptime() + uint32(sec))
			a.upFrac -= sec
		}
	}

	a.rec.SetRest(math.Float32bits(float32(a.rest)))
	a.lastAt = s.At
	a.lastRate = rate
	return nil
}

// drainRest moves whole litres from the remainder into the counters.
// Counters never go below zero.
func (a *Accumulator) drainRest() {
	whole := math.Trunc(a.rest)
	if whole == 0 {
		return
	}
	a.rest -= whole

	d := int64(whole)
	a.rec.SetTotal(clampAdd(a.rec.Total(), d))
	a.rec.SetHourTotal(clampAdd(a.rec.HourTotal(), d))
	a.rec.SetDayTotal(clampAdd(a.rec.DayTotal(), d))
	a.rec.SetMonthTotal(clampAdd(a.rec.MonthTotal(), d))
}

func clampAdd(v uint32, d int64) uint32 {
	sum := int64(v) + d
	switch {
	case sum < 0:
		return 0
	case sum > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(sum)
	}
}

// commitWindows archives every counter whose window ended between the
// previous and the current sample, stamping the entry with the finished
// window's start time, then resets the counter for the new window.
func (a *Accumulator) commitWindows(prev, now int64) error {
	if err := a.commitWindow(a.rings.Hour, hourWindow, prev, now, a.rec.HourTotal, a.rec.SetHourTotal); err != nil {
		return err
	}
	if err := a.commitWindow(a.rings.Day, dayWindow, prev, now, a.rec.DayTotal, a.rec.SetDayTotal); err != nil {
		return err
	}
	return a.commitWindow(a.rings.Month, monthWindow, prev, now, a.rec.MonthTotal, a.rec.SetMonthTotal)
}

func (a *Accumulator) commitWindow(ring *history.Ring, width, prev, now int64, get func() uint32, set func(uint32)) error {
	prevStart := prev - prev%width
	nowStart := now - now%width
	if nowStart == prevStart {
		return nil
	}

	if err := ring.Add(a.dev, int32(get()), uint32(prevStart)); err != nil {
		return fmt.Errorf("meter: archive %s window: %w", ring.Name(), err)
	}
	set(0)
	return nil
}
