// cmd/flowmeterd/main.go
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goburrow/serial"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aquametrics/flowmeter/internal/config"
	"github.com/aquametrics/flowmeter/internal/history"
	"github.com/aquametrics/flowmeter/internal/meter"
	"github.com/aquametrics/flowmeter/internal/options"
	"github.com/aquametrics/flowmeter/internal/rtu"
	"github.com/aquametrics/flowmeter/internal/slave"
	"github.com/aquametrics/flowmeter/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: flowmeterd <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	m := cfg.Meter

	if m.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   m.Log.File,
			MaxSize:    m.Log.MaxSizeMB,
			MaxBackups: m.Log.MaxBackups,
			MaxAge:     m.Log.MaxAgeDays,
		})
	}

	// --------------------
	// Storage: layout, image, record, rings
	// --------------------

	layout := meter.DeviceLayout()
	table := layout.Table()
	if err := table.Validate(); err != nil {
		log.Fatalf("device layout invalid: %v", err)
	}

	dev, err := storage.OpenFileDevice(m.Storage.Image, int(table.Capacity()))
	if err != nil {
		log.Fatalf("storage open failed: %v", err)
	}
	defer dev.Close()

	guard := storage.NewGuard(dev)

	var rec *options.Record
	err = guard.With(func(d storage.Device) error {
		var lerr error
		rec, lerr = options.Load(d)
		if errors.Is(lerr, options.ErrWrongCRC) {
			// Never-configured (or doubly corrupted) device: seed a
			// default record and persist it.
			log.Printf("no valid record on device, writing defaults")
			rec = options.New()
			rec.SetSlaveAddress(m.Defaults.SlaveAddress)
			rec.SetSerialNumber(m.Defaults.SerialNumber)
			return options.Save(d, rec)
		}
		return lerr
	})
	if err != nil {
		log.Fatalf("record load failed: %v", err)
	}

	rings := meter.Rings{}
	err = guard.With(func(d storage.Device) error {
		var oerr error
		if rings.Hour, oerr = openRing(d, layout.Hour, history.HourParams); oerr != nil {
			return oerr
		}
		if rings.Day, oerr = openRing(d, layout.Day, history.DayParams); oerr != nil {
			return oerr
		}
		rings.Month, oerr = openRing(d, layout.Month, history.MonthParams)
		return oerr
	})
	if err != nil {
		log.Fatalf("history open failed: %v", err)
	}

	// --------------------
	// Serial line
	// --------------------

	timeout := time.Duration(m.Serial.TimeoutMs) * time.Millisecond
	port, err := serial.Open(&serial.Config{
		Address:  m.Serial.Port,
		BaudRate: m.Serial.BaudRate,
		DataBits: m.Serial.DataBits,
		Parity:   m.Serial.Parity,
		StopBits: m.Serial.StopBits,
		Timeout:  timeout,
	})
	if err != nil {
		log.Fatalf("serial open failed: %v", err)
	}
	defer port.Close()

	// --------------------
	// Metering pipeline
	// --------------------

	acc := meter.NewAccumulator(dev, rec, rings)

	// TODO: wire the TDC1000/TDC7200 time-of-flight driver behind
	// meter.FlowSource using the register presets from the record.
	sampler, err := meter.NewSampler(
		time.Duration(m.Sampling.IntervalMs)*time.Millisecond,
		zeroFlow{},
	)
	if err != nil {
		log.Fatalf("sampler build failed: %v", err)
	}

	slaveAddr := rec.SlaveAddress()
	if slaveAddr == 0 {
		slaveAddr = m.Defaults.SlaveAddress
	}
	handler := slave.NewHandler(slaveAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	samples := make(chan meter.Sample)
	go sampler.Run(ctx, samples)

	frames := make(chan []byte)
	go readFrames(ctx, port, frames)

	saveTicker := time.NewTicker(time.Duration(m.Save.IntervalS) * time.Second)
	defer saveTicker.Stop()

	log.Printf("flowmeterd up: slave=%d port=%s image=%s", slaveAddr, m.Serial.Port, m.Storage.Image)

	// --------------------
	// Orchestrator: single goroutine owns the record
	// --------------------

	for {
		select {
		case <-ctx.Done():
			// Final save so counters survive the restart.
			err := guard.With(func(d storage.Device) error {
				return options.Save(d, rec)
			})
			if err != nil {
				log.Printf("final save failed: %v", err)
			}
			log.Printf("flowmeterd down")
			return

		case s := <-samples:
			if s.Err != nil {
				log.Printf("flow sample failed: %v", s.Err)
				continue
			}
			err := guard.With(func(d storage.Device) error {
				return acc.Ingest(s)
			})
			if err != nil {
				log.Printf("sample ingest failed: %v", err)
			}

		case f := <-frames:
			var reply []byte
			var herr error
			guard.With(func(d storage.Device) error {
				reply, herr = handler.Handle(d, rec, acc.Snapshot(), f)
				return nil
			})
			if herr != nil {
				// Not addressed to us, or noise on the wire.
				continue
			}
			if _, werr := port.Write(reply); werr != nil {
				log.Printf("serial write failed: %v", werr)
			}
			// The record's slave address may just have been written.
			if a := rec.SlaveAddress(); a != 0 && a != handler.Codec().SlaveAddress() {
				log.Printf("slave address changed: %d -> %d", handler.Codec().SlaveAddress(), a)
				handler.Codec().SetSlaveAddress(a)
			}

		case <-saveTicker.C:
			err := guard.With(func(d storage.Device) error {
				return options.Save(d, rec)
			})
			if err != nil {
				log.Printf("periodic save failed: %v", err)
			}
		}
	}
}

// openRing opens one archive ring and logs its header state. A corrupt
// header is worth a line; a never-written one is just a fresh device.
func openRing(d storage.Device, region storage.Region, p history.Params) (*history.Ring, error) {
	ring, state, err := history.Open(d, region, p)
	if err != nil {
		return nil, err
	}
	if state == history.Corrupt {
		log.Printf("%s history header corrupt, starting empty", p.Name)
	}
	return ring, nil
}

// zeroFlow is the stand-in flow source until the TOF driver lands.
type zeroFlow struct{}

func (zeroFlow) ReadFlow() (float32, error) { return 0, nil }

// readFrames assembles request frames off the serial line. RTU frames are
// delimited by silence: bytes are collected until a read times out with
// data in hand.
func readFrames(ctx context.Context, port io.Reader, out chan<- []byte) {
	buf := make([]byte, rtu.MaxFrameSize)
	n := 0

	for {
		if ctx.Err() != nil {
			return
		}

		m, err := port.Read(buf[n:])
		n += m

		switch {
		case err == nil:
			if n < len(buf) {
				continue
			}
			// Buffer full: the frame cannot get any longer.
		case errors.Is(err, serial.ErrTimeout):
			if n == 0 {
				continue // idle line
			}
		default:
			log.Printf("serial read failed: %v", err)
			return
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])
		n = 0

		select {
		case out <- frame:
		case <-ctx.Done():
			return
		}
	}
}
