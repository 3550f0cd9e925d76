// internal/slave/handler.go

// Package slave bridges parsed Modbus requests to the configuration record
// and the live flow telemetry, and frames the replies. A master always gets
// a well-formed response or exception; only frames that are not addressed
// to us (or are unreadable on the wire) go unanswered.
package slave

import (
	"encoding/binary"
	"errors"
	"log"

	"github.com/aquametrics/flowmeter/internal/options"
	"github.com/aquametrics/flowmeter/internal/rtu"
	"github.com/aquametrics/flowmeter/internal/storage"
	"github.com/aquametrics/flowmeter/internal/telemetry"
)

// Handler serves the register map for one slave address.
type Handler struct {
	codec *rtu.Codec
}

func NewHandler(slaveAddress uint8) *Handler {
	return &Handler{codec: rtu.NewCodec(slaveAddress)}
}

// Codec exposes the underlying frame codec (the daemon re-addresses it when
// the record's slave address changes).
func (h *Handler) Codec() *rtu.Codec { return h.codec }

// Handle processes one request frame and returns the reply frame.
//
// A nil reply with a non-nil error means the frame gets no answer at all:
// it was addressed to another slave or failed wire-level validation
// (length, CRC). Register-level problems and local storage failures are
// answered with Modbus exception frames, never surfaced as errors — the
// bus stays responsive.
func (h *Handler) Handle(dev storage.Device, rec *options.Record, snap telemetry.Snapshot, frame []byte) ([]byte, error) {
	req, err := h.codec.ParseRequest(frame)
	if err != nil {
		var exc *rtu.ExceptionError
		if errors.As(err, &exc) && len(frame) >= 2 {
			// Parsed far enough to know who asked for what.
			return h.codec.BuildException(frame[0], frame[1], exc.Code), nil
		}
		return nil, err
	}

	switch req.Function {
	case rtu.ReadHoldingRegisters:
		return h.readHoldingRegisters(req, rec, snap)
	case rtu.ReadInputRegisters:
		return h.readInputRegisters(req, snap)
	case rtu.WriteSingleRegister:
		return h.writeSingleRegister(req, dev, rec)
	case rtu.WriteMultipleRegisters:
		return h.writeMultipleRegisters(req, dev, rec)
	default:
		return h.exception(req, rtu.IllegalFunction), nil
	}
}

func (h *Handler) exception(req *rtu.Request, code rtu.ExceptionCode) []byte {
	return h.codec.BuildException(req.SlaveAddress, uint8(req.Function), code)
}

func (h *Handler) respond(req *rtu.Request, data []byte) ([]byte, error) {
	return h.codec.BuildResponse(&rtu.Response{
		SlaveAddress: req.SlaveAddress,
		Function:     uint8(req.Function),
		Data:         data,
	})
}

// ---- READS ----

func (h *Handler) readHoldingRegisters(req *rtu.Request, rec *options.Record, snap telemetry.Snapshot) ([]byte, error) {
	start, qty := req.StartAddress, req.Quantity

	if qty == 0 || qty > MaxReadQuantity {
		return h.exception(req, rtu.IllegalDataValue), nil
	}

	var payload []byte

	switch {
	case start <= OptionsEnd:
		// Byte mirror of the record: register n covers record bytes
		// 2n and 2n+1.
		startByte := int(start-OptionsStart) * 2
		endByte := startByte + int(qty)*2
		if endByte > options.Size {
			return h.exception(req, rtu.IllegalDataAddress), nil
		}
		payload = rec.Bytes()[startByte:endByte]

	case start >= FlowRateReg && start < flowBlockEnd:
		if start+qty > flowBlockEnd {
			return h.exception(req, rtu.IllegalDataAddress), nil
		}
		block := telemetry.Encode(snap)
		startByte := int(start-FlowRateReg) * 2
		payload = block[startByte : startByte+int(qty)*2]

	default:
		return h.exception(req, rtu.IllegalDataAddress), nil
	}

	data := make([]byte, 0, 1+len(payload))
	data = append(data, byte(qty*2))
	data = append(data, payload...)
	return h.respond(req, data)
}

func (h *Handler) readInputRegisters(req *rtu.Request, snap telemetry.Snapshot) ([]byte, error) {
	start, qty := req.StartAddress, req.Quantity

	if qty == 0 || qty > MaxReadQuantity {
		return h.exception(req, rtu.IllegalDataValue), nil
	}
	if start < InputFlowStart || start+qty > inputFlowEnd {
		return h.exception(req, rtu.IllegalDataAddress), nil
	}

	block := telemetry.Encode(snap)
	startByte := int(start-InputFlowStart) * 2

	data := make([]byte, 0, 1+int(qty)*2)
	data = append(data, byte(qty*2))
	data = append(data, block[startByte:startByte+int(qty)*2]...)
	return h.respond(req, data)
}

// ---- WRITES ----

// patchAndSave applies a byte-range patch to a copy of the record,
// reconstructs it and persists it. The caller's record is updated only on
// success.
func patchAndSave(dev storage.Device, rec *options.Record, startByte int, patch []byte) error {
	bytes := rec.Bytes()
	copy(bytes[startByte:], patch)

	updated, err := options.FromBytes(bytes)
	if err != nil {
		return err
	}
	if err := options.Save(dev, updated); err != nil {
		return err
	}

	*rec = *updated
	return nil
}

func (h *Handler) writeSingleRegister(req *rtu.Request, dev storage.Device, rec *options.Record) ([]byte, error) {
	if req.StartAddress > OptionsEnd {
		return h.exception(req, rtu.IllegalDataAddress), nil
	}
	if len(req.WriteData) != 2 {
		return h.exception(req, rtu.IllegalDataValue), nil
	}

	startByte := int(req.StartAddress-OptionsStart) * 2
	if err := patchAndSave(dev, rec, startByte, req.WriteData); err != nil {
		log.Printf("slave: register write save failed: %v", err)
		return h.exception(req, rtu.ServerDeviceFailure), nil
	}

	// Echo the request back.
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:], req.StartAddress)
	copy(data[2:], req.WriteData)
	return h.respond(req, data)
}

func (h *Handler) writeMultipleRegisters(req *rtu.Request, dev storage.Device, rec *options.Record) ([]byte, error) {
	start, qty := req.StartAddress, req.Quantity

	if start+qty-1 > OptionsEnd {
		return h.exception(req, rtu.IllegalDataAddress), nil
	}
	if len(req.WriteData) != int(qty)*2 {
		return h.exception(req, rtu.IllegalDataValue), nil
	}

	startByte := int(start-OptionsStart) * 2
	if err := patchAndSave(dev, rec, startByte, req.WriteData); err != nil {
		log.Printf("slave: register write save failed: %v", err)
		return h.exception(req, rtu.ServerDeviceFailure), nil
	}

	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:], start)
	binary.BigEndian.PutUint16(data[2:], qty)
	return h.respond(req, data)
}
