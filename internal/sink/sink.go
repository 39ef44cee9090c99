// Package sink delivers decoded measurement records to a downstream
// consumer. The engine treats every sink identically through this single
// interface and never blocks a poll cycle on a slow or failing one.
package sink

import "github.com/vbragin/hoymiles-dtu/internal/decode"

// Sink is a one-way publisher of decoded records.
type Sink interface {
	Publish(rec decode.Record) error
}
