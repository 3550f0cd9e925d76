// internal/storage/guard.go
package storage

import "sync"

// Guard is the single owner of a shared Device. Options, the three history
// rings and the Modbus handler all address the same physical device, so
// every logical operation (a load, a save, an add, a find, one Modbus
// transaction) runs under With, which holds the device for its duration.
type Guard struct {
	mu  sync.Mutex
	dev Device
}

func NewGuard(dev Device) *Guard {
	return &Guard{dev: dev}
}

// With runs fn with exclusive access to the underlying device.
func (g *Guard) With(fn func(Device) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.dev)
}
