// internal/slave/registers.go
package slave

import "github.com/aquametrics/flowmeter/internal/telemetry"

// Register map. These values define the protocol and MUST NOT be
// configurable.

// ---- HOLDING REGISTERS (FC 0x03, writable via 0x06/0x10) ----

// OptionsStart..OptionsEnd mirror the configuration record byte-for-byte,
// two record bytes per register, register order matching record byte order.
const (
	OptionsStart uint16 = 0x0000
	OptionsEnd   uint16 = 0x001F
)

// Read-only telemetry block inside the holding space: four float32 values
// (flow rate, hour flow, day flow, month flow), two registers each.
const (
	FlowRateReg  uint16 = 0x0064
	HourFlowReg  uint16 = 0x0066
	DayFlowReg   uint16 = 0x0068
	MonthFlowReg uint16 = 0x006A

	flowBlockEnd = FlowRateReg + telemetry.RegisterCount // exclusive
)

// ---- INPUT REGISTERS (FC 0x04) ----

// The same telemetry block, based at zero.
const (
	InputFlowStart uint16 = 0x0000

	inputFlowEnd = InputFlowStart + telemetry.RegisterCount // exclusive
)

// ---- LIMITS ----

// MaxReadQuantity is the Modbus bound on registers per read request.
const MaxReadQuantity = 125
