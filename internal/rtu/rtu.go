// internal/rtu/rtu.go

// Package rtu is a state-free Modbus RTU frame codec: it parses request
// frames and builds response and exception frames over byte slices. It has
// no storage or transport dependency; register semantics live in the slave
// handler.
package rtu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aquametrics/flowmeter/internal/crc16"
)

// FunctionCode identifies a Modbus operation.
type FunctionCode uint8

const (
	ReadCoils              FunctionCode = 0x01
	ReadDiscreteInputs     FunctionCode = 0x02
	ReadHoldingRegisters   FunctionCode = 0x03
	ReadInputRegisters     FunctionCode = 0x04
	WriteSingleCoil        FunctionCode = 0x05
	WriteSingleRegister    FunctionCode = 0x06
	WriteMultipleCoils     FunctionCode = 0x0F
	WriteMultipleRegisters FunctionCode = 0x10
	ReadWriteMultipleRegs  FunctionCode = 0x17
)

func functionCodeFromByte(b uint8) (FunctionCode, bool) {
	switch FunctionCode(b) {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters,
		WriteSingleCoil, WriteSingleRegister, WriteMultipleCoils,
		WriteMultipleRegisters, ReadWriteMultipleRegs:
		return FunctionCode(b), true
	}
	return 0, false
}

// ExceptionCode is a Modbus protocol exception.
type ExceptionCode uint8

const (
	IllegalFunction     ExceptionCode = 0x01
	IllegalDataAddress  ExceptionCode = 0x02
	IllegalDataValue    ExceptionCode = 0x03
	ServerDeviceFailure ExceptionCode = 0x04
)

func (c ExceptionCode) String() string {
	switch c {
	case IllegalFunction:
		return "illegal function"
	case IllegalDataAddress:
		return "illegal data address"
	case IllegalDataValue:
		return "illegal data value"
	case ServerDeviceFailure:
		return "server device failure"
	default:
		return fmt.Sprintf("exception 0x%02X", uint8(c))
	}
}

// ExceptionError marks a request that must be answered with a Modbus
// exception frame rather than dropped.
type ExceptionError struct {
	Code ExceptionCode
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("rtu: exception: %s", e.Code)
}

// Transport-level errors. A frame failing one of these gets no response at
// all; the master recovers by timeout.
var (
	ErrInvalidLength       = errors.New("rtu: invalid frame length")
	ErrInvalidSlaveAddress = errors.New("rtu: frame addressed to another slave")
	ErrInvalidCRC          = errors.New("rtu: crc mismatch")
	ErrBufferTooSmall      = errors.New("rtu: frame exceeds maximum size")
)

// MaxFrameSize is the largest RTU frame on the wire.
const MaxFrameSize = 256

// minRequestSize: slave(1) + function(1) + data(4) + crc(2).
const minRequestSize = 8

// Request is one decoded master request.
type Request struct {
	SlaveAddress uint8
	Function     FunctionCode
	StartAddress uint16
	Quantity     uint16
	WriteData    []byte // payload of 0x06/0x10, nil otherwise
}

// Response carries the PDU data for a normal (non-exception) reply.
type Response struct {
	SlaveAddress uint8
	Function     uint8
	Data         []byte
}

// Codec parses and builds RTU frames for one configured slave address.
type Codec struct {
	slaveAddress uint8
}

func NewCodec(slaveAddress uint8) *Codec {
	return &Codec{slaveAddress: slaveAddress}
}

func (c *Codec) SlaveAddress() uint8 { return c.slaveAddress }

func (c *Codec) SetSlaveAddress(a uint8) { c.slaveAddress = a }

// ParseRequest validates framing (length, addressing, CRC) and decodes the
// PDU of the supported function codes. Unsupported codes decode far enough
// to answer with an IllegalFunction exception.
func (c *Codec) ParseRequest(frame []byte) (*Request, error) {
	if len(frame) < minRequestSize {
		return nil, ErrInvalidLength
	}

	slave := frame[0]
	if slave != c.slaveAddress && slave != 0 {
		return nil, ErrInvalidSlaveAddress
	}

	received := binary.LittleEndian.Uint16(frame[len(frame)-2:])
	if received != crc16.Modbus(frame[:len(frame)-2]) {
		return nil, ErrInvalidCRC
	}

	fc, ok := functionCodeFromByte(frame[1])
	if !ok {
		return nil, &ExceptionError{Code: IllegalFunction}
	}

	switch fc {
	case ReadHoldingRegisters, ReadInputRegisters:
		return &Request{
			SlaveAddress: slave,
			Function:     fc,
			StartAddress: binary.BigEndian.Uint16(frame[2:]),
			Quantity:     binary.BigEndian.Uint16(frame[4:]),
		}, nil

	case WriteSingleRegister:
		data := make([]byte, 2)
		copy(data, frame[4:6])
		return &Request{
			SlaveAddress: slave,
			Function:     fc,
			StartAddress: binary.BigEndian.Uint16(frame[2:]),
			Quantity:     1,
			WriteData:    data,
		}, nil

	case WriteMultipleRegisters:
		byteCount := int(frame[6])
		if len(frame) < 7+byteCount+2 {
			return nil, ErrInvalidLength
		}
		data := make([]byte, byteCount)
		copy(data, frame[7:7+byteCount])
		return &Request{
			SlaveAddress: slave,
			Function:     fc,
			StartAddress: binary.BigEndian.Uint16(frame[2:]),
			Quantity:     binary.BigEndian.Uint16(frame[4:]),
			WriteData:    data,
		}, nil

	default:
		return nil, &ExceptionError{Code: IllegalFunction}
	}
}

// BuildResponse frames a normal reply: slave + function + data + CRC,
// CRC appended LSB-first.
func (c *Codec) BuildResponse(resp *Response) ([]byte, error) {
	n := 2 + len(resp.Data) + 2
	if n > MaxFrameSize {
		return nil, ErrBufferTooSmall
	}

	frame := make([]byte, 0, n)
	frame = append(frame, resp.SlaveAddress, resp.Function)
	frame = append(frame, resp.Data...)
	return appendCRC(frame), nil
}

// BuildException frames an exception reply: slave + (function|0x80) +
// exception code + CRC.
func (c *Codec) BuildException(slave uint8, function uint8, code ExceptionCode) []byte {
	frame := make([]byte, 0, 5)
	frame = append(frame, slave, function|0x80, uint8(code))
	return appendCRC(frame)
}

func appendCRC(frame []byte) []byte {
	crc := crc16.Modbus(frame)
	return append(frame, byte(crc), byte(crc>>8))
}
