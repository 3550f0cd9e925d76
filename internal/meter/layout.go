// internal/meter/layout.go

// Package meter holds the metering core: the device layout, the flow
// sampler and the accumulator that turns flow-rate samples into persistent
// usage counters and archive entries.
package meter

import (
	"github.com/aquametrics/flowmeter/internal/history"
	"github.com/aquametrics/flowmeter/internal/options"
	"github.com/aquametrics/flowmeter/internal/storage"
)

// Layout is the placement of every persistent structure on the device: the
// two redundant record pages, then the three archive rings chained one
// after another from the stat page.
type Layout struct {
	OptionsPrimary   storage.Region
	OptionsSecondary storage.Region
	Hour             storage.Region
	Day              storage.Region
	Month            storage.Region
}

// DeviceLayout returns the fixed on-device layout.
func DeviceLayout() Layout {
	hourSize := history.SizeOnFlash(history.HourParams.Capacity)
	daySize := history.SizeOnFlash(history.DayParams.Capacity)
	monthSize := history.SizeOnFlash(history.MonthParams.Capacity)

	hourOff := uint32(history.StatPageOffset)
	dayOff := hourOff + hourSize
	monthOff := dayOff + daySize

	return Layout{
		OptionsPrimary:   storage.Region{Name: "options-primary", Offset: options.OffsetPrimary, Size: options.PageSize},
		OptionsSecondary: storage.Region{Name: "options-secondary", Offset: options.OffsetSecondary, Size: options.PageSize},
		Hour:             storage.Region{Name: "history-hour", Offset: hourOff, Size: hourSize},
		Day:              storage.Region{Name: "history-day", Offset: dayOff, Size: daySize},
		Month:            storage.Region{Name: "history-month", Offset: monthOff, Size: monthSize},
	}
}

// Table returns the layout as a validatable region table.
func (l Layout) Table() storage.Table {
	return storage.Table{
		l.OptionsPrimary,
		l.OptionsSecondary,
		l.Hour,
		l.Day,
		l.Month,
	}
}
