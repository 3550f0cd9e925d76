// internal/master/client.go

// Package master is the RTU master side: a serial Modbus client aimed at a
// running meter, used by the meterctl tool.
package master

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/aquametrics/flowmeter/internal/slave"
	"github.com/aquametrics/flowmeter/internal/telemetry"
)

// Config is the serial line plus the target slave.
type Config struct {
	Port         string
	BaudRate     int
	DataBits     int
	Parity       string // N, E, O
	StopBits     int
	SlaveAddress uint8
	Timeout      time.Duration
}

// Client is a single serial connection to one meter.
// It serializes requests: RS-485 is one transaction at a time.
type Client struct {
	mu      sync.Mutex
	handler *modbus.RTUClientHandler
	client  modbus.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.Port == "" {
		return nil, errors.New("master: serial port required")
	}
	if cfg.SlaveAddress == 0 {
		return nil, errors.New("master: slave address required")
	}

	h := modbus.NewRTUClientHandler(cfg.Port)
	h.BaudRate = cfg.BaudRate
	h.DataBits = cfg.DataBits
	h.Parity = cfg.Parity
	h.StopBits = cfg.StopBits
	h.SlaveId = cfg.SlaveAddress
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ReadHoldingRegisters returns qty registers as raw big-endian bytes.
func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.ReadHoldingRegisters(addr, qty)
}

// ReadInputRegisters returns qty registers as raw big-endian bytes.
func (c *Client) ReadInputRegisters(addr, qty uint16) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.ReadInputRegisters(addr, qty)
}

func (c *Client) WriteSingleRegister(addr, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.client.WriteSingleRegister(addr, value)
	return err
}

func (c *Client) WriteMultipleRegisters(addr uint16, data []byte) error {
	if len(data)%2 != 0 {
		return errors.New("master: write payload must be whole registers")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(data)/2), data)
	return err
}

// ---- REGISTER MAP SHORTCUTS ----

// ReadTelemetry reads the live flow block from the input register space.
func (c *Client) ReadTelemetry() (telemetry.Snapshot, error) {
	raw, err := c.ReadInputRegisters(slave.InputFlowStart, telemetry.RegisterCount)
	if err != nil {
		return telemetry.Snapshot{}, fmt.Errorf("master: read flow block: %w", err)
	}
	if len(raw) != telemetry.ValueCount*4 {
		return telemetry.Snapshot{}, fmt.Errorf("master: flow block is %d bytes, want %d", len(raw), telemetry.ValueCount*4)
	}

	f := func(i int) float32 {
		return math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:]))
	}
	return telemetry.Snapshot{
		FlowRate:  f(0),
		HourFlow:  f(1),
		DayFlow:   f(2),
		MonthFlow: f(3),
	}, nil
}

// ReadRecordMirror reads the exposed span of the configuration record:
// registers 0x0000-0x001F, i.e. the first 64 record bytes.
func (c *Client) ReadRecordMirror() ([]byte, error) {
	qty := slave.OptionsEnd - slave.OptionsStart + 1
	raw, err := c.ReadHoldingRegisters(slave.OptionsStart, qty)
	if err != nil {
		return nil, fmt.Errorf("master: read record mirror: %w", err)
	}
	if len(raw) != int(qty)*2 {
		return nil, fmt.Errorf("master: record mirror is %d bytes, want %d", len(raw), qty*2)
	}
	return raw, nil
}

// SerialNumber extracts the meter serial from a record mirror. The record
// is little-endian with the serial at bytes 2-5.
func SerialNumber(mirror []byte) (uint32, error) {
	if len(mirror) < 6 {
		return 0, errors.New("master: mirror too short for serial number")
	}
	return binary.LittleEndian.Uint32(mirror[2:]), nil
}

// SetSerialNumber writes the meter serial: registers 1-2 mirror record
// bytes 2-5, which hold the serial little-endian.
func (c *Client) SetSerialNumber(sn uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], sn)
	if err := c.WriteMultipleRegisters(1, b[:]); err != nil {
		return fmt.Errorf("master: set serial number: %w", err)
	}
	return nil
}
