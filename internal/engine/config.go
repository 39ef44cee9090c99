package engine

import "time"

// defaultTXChannels and defaultRXChannels mirror the reference link's own
// defaults: a single TX channel and a five-channel RX hop list.
var (
	defaultTXChannels = []int{40}
	defaultRXChannels = []int{3, 23, 61, 75, 83}
)

const defaultDTUSerial = "99978563412"
const defaultMinRefreshInterval = 30 * time.Second

// Config is everything the engine needs to run a polling cycle apart from
// its sinks: which inverters to talk to, how often, and over which
// channels.
type Config struct {
	// DTUSerial is the master's own synthesized serial, used as the
	// source address on every request frame.
	DTUSerial string
	// InverterSerials lists every inverter to poll, in schedule order.
	InverterSerials []string
	// MinRefreshInterval is the minimum time between polls of the same
	// inverter.
	MinRefreshInterval time.Duration
	// TXChannels and RXChannels are rotated round-robin across polls.
	TXChannels []int
	RXChannels []int
	// EndTime, if non-empty, is a "HH:MM" wall-clock string at which the
	// engine shuts down cleanly.
	EndTime string
	Debug   bool
}

func (c Config) withDefaults() Config {
	if c.DTUSerial == "" {
		c.DTUSerial = defaultDTUSerial
	}
	if c.MinRefreshInterval <= 0 {
		c.MinRefreshInterval = defaultMinRefreshInterval
	}
	if len(c.TXChannels) == 0 {
		c.TXChannels = defaultTXChannels
	}
	if len(c.RXChannels) == 0 {
		c.RXChannels = defaultRXChannels
	}
	return c
}
