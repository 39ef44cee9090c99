// Package engine implements the polling scheduler and per-inverter state
// machine: selecting the next due inverter, issuing a request, sweeping
// RX channels for fragments, retrying missing ones by index, assembling
// a complete Measurement Record, and handing it to every sink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/vbragin/hoymiles-dtu/internal/addr"
	"github.com/vbragin/hoymiles-dtu/internal/decode"
	"github.com/vbragin/hoymiles-dtu/internal/frame"
	"github.com/vbragin/hoymiles-dtu/internal/model"
	"github.com/vbragin/hoymiles-dtu/internal/radio"
	"github.com/vbragin/hoymiles-dtu/internal/sink"
)

// ErrPollTimeout is logged (never returned to callers of Run) when a poll
// cycle's RX window closes without the model's full fragment set.
var ErrPollTimeout = errors.New("engine: poll timed out waiting for fragments")

const (
	rxWindow      = 1 * time.Second
	rxHopInterval = 5 * time.Millisecond
	refetchTries  = 10
	maxSleepChunk = 30 * time.Second
)

// Engine is the single-threaded cooperative scheduler. All radio I/O,
// decoding, and sink publishing happen on the goroutine that calls Run.
type Engine struct {
	cfg   Config
	tc    radio.Transceiver
	sinks []sink.Sink

	states []*inverterState
	idx    int
	txIdx  int
	rxIdx  int

	loggedUnknownCmd map[string]bool

	now   func() time.Time
	sleep func(time.Duration)
}

// New builds an Engine over tc, configuring it per radio.DefaultConfig
// and resolving every configured serial's Model Descriptor. An unknown
// prefix is not fatal: the inverter is kept in the schedule under a
// pass-through descriptor so it can still be polled for raw debugging,
// but no decoded record is ever emitted for it.
func New(tc radio.Transceiver, cfg Config, sinks []sink.Sink) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := tc.Configure(radio.DefaultConfig()); err != nil {
		return nil, fmt.Errorf("%w: %v", radio.ErrRadioInit, err)
	}
	if len(sinks) == 0 {
		sinks = []sink.Sink{sink.Null{}}
	}

	e := &Engine{
		cfg:              cfg,
		tc:               tc,
		sinks:            sinks,
		loggedUnknownCmd: make(map[string]bool),
		now:              time.Now,
		sleep:            time.Sleep,
	}

	for _, serial := range cfg.InverterSerials {
		d, err := model.Lookup(serial)
		st := &inverterState{serial: serial, descriptor: d, known: err == nil}
		if err != nil {
			log.Printf("engine: %v", err)
		}
		e.states = append(e.states, st)
	}
	return e, nil
}

// Run drives the scheduler until ctx is cancelled or the configured
// shutdown time is reached, powering the transceiver down before
// returning either way.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		if err := e.tc.PowerDown(); err != nil {
			log.Printf("engine: power down: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if e.shutdownDue() {
			return nil
		}

		st, ok := e.nextEligible()
		if !ok {
			if e.sleepUntilEligible(ctx) {
				return nil
			}
			continue
		}
		e.pollOnce(st)
	}
}

func (e *Engine) shutdownDue() bool {
	if e.cfg.EndTime == "" {
		return false
	}
	return e.now().Format("15:04") == e.cfg.EndTime
}

// nextEligible advances the circular schedule index and returns the next
// inverter whose minimum refresh interval has elapsed.
func (e *Engine) nextEligible() (*inverterState, bool) {
	n := len(e.states)
	for i := 0; i < n; i++ {
		st := e.states[e.idx%n]
		e.idx++
		if st.eligible(e.now(), e.cfg.MinRefreshInterval) {
			return st, true
		}
	}
	return nil, false
}

// sleepUntilEligible waits, in chunks of at most maxSleepChunk so the
// shutdown deadline keeps getting checked, until the soonest inverter
// becomes eligible. It returns true if ctx was cancelled while waiting.
func (e *Engine) sleepUntilEligible(ctx context.Context) bool {
	wait := e.cfg.MinRefreshInterval
	now := e.now()
	for _, st := range e.states {
		remain := e.cfg.MinRefreshInterval - now.Sub(st.lastPoll)
		if remain < wait {
			wait = remain
		}
	}
	if wait < 0 {
		wait = 0
	}
	chunk := wait
	if chunk > maxSleepChunk {
		chunk = maxSleepChunk
	}

	select {
	case <-ctx.Done():
		return true
	case <-time.After(chunk):
		return false
	}
}

// pollOnce runs the TX → RX_SWEEP → (REFETCH → RX_SWEEP)* → COMPLETE |
// TIMEOUT state machine for a single inverter.
func (e *Engine) pollOnce(st *inverterState) {
	pipe, err := addr.SerialToPipeAddr(st.serial)
	if err != nil {
		log.Printf("engine: skip %s: %v", st.serial, err)
		st.lastPoll = e.now()
		return
	}

	txChannel := e.cfg.TXChannels[e.txIdx%len(e.cfg.TXChannels)]
	e.txIdx++

	if err := e.tc.FlushRX(); err != nil {
		log.Printf("engine: flush rx: %v", err)
	}
	if err := e.tc.FlushTX(); err != nil {
		log.Printf("engine: flush tx: %v", err)
	}
	if err := e.tc.EndReceive(); err != nil {
		log.Printf("engine: end receive: %v", err)
	}
	if err := e.tc.SetTXChannel(txChannel); err != nil {
		log.Printf("engine: set tx channel: %v", err)
	}
	if err := e.tc.OpenWritePipe(pipe); err != nil {
		log.Printf("engine: open write pipe: %v", err)
	}

	tLastTx := e.now()
	req, err := frame.EncodePollRequest(st.serial, e.cfg.DTUSerial, tLastTx)
	if err != nil {
		log.Printf("engine: encode poll for %s: %v", st.serial, err)
		st.lastPoll = e.now()
		return
	}
	e.tc.Send(req)

	rxChannel := e.cfg.RXChannels[e.rxIdx%len(e.cfg.RXChannels)]
	e.rxIdx++
	if err := e.tc.SetRXChannel(rxChannel); err != nil {
		log.Printf("engine: set rx channel: %v", err)
	}
	if err := e.tc.BeginReceive(); err != nil {
		log.Printf("engine: begin receive: %v", err)
	}

	fragments := make(map[int]frame.Response)
	var metas []decode.FragmentMeta
	var highestRawCmd byte
	triesRemaining := 0

	deadline := tLastTx.Add(rxWindow)
	for e.now().Before(deadline) {
		buf, ok := e.tc.TryReceive()
		if !ok {
			e.sleep(rxHopInterval)
			rxChannel = e.cfg.RXChannels[e.rxIdx%len(e.cfg.RXChannels)]
			e.rxIdx++
			if err := e.tc.SetRXChannel(rxChannel); err != nil {
				log.Printf("engine: set rx channel: %v", err)
			}
			if triesRemaining > 0 {
				triesRemaining--
			}
			continue
		}
		if len(buf) < 10 {
			continue
		}
		resp, err := frame.Decode(buf)
		if err != nil || resp.Marker != frame.ResponseMarker {
			continue
		}
		if resp.Command > highestRawCmd {
			highestRawCmd = resp.Command
		}
		fragIdx := resp.FragmentIndex()
		fragments[fragIdx] = resp
		metas = append(metas, decode.FragmentMeta{
			Command:   resp.Command,
			RXChannel: rxChannel,
			Latency:   e.now().Sub(tLastTx),
			IsRefetch: resp.IsRefetchReply(),
		})

		if len(fragments) == st.descriptor.Fragments {
			break
		}

		if triesRemaining == 0 && highestRawCmd > 0x81 {
			if hole, found := firstHole(fragments, int(highestRawCmd)-0x80); found {
				refetch, err := frame.EncodeRefetchRequest(st.serial, e.cfg.DTUSerial, hole)
				if err != nil {
					log.Printf("engine: encode refetch for %s: %v", st.serial, err)
				} else {
					e.tc.Send(refetch)
					tLastTx = e.now()
					triesRemaining = refetchTries
				}
			}
		}
	}
	if err := e.tc.EndReceive(); err != nil {
		log.Printf("engine: end receive: %v", err)
	}

	if len(fragments) != st.descriptor.Fragments {
		log.Printf("engine: %v for %s (%d/%d fragments)", ErrPollTimeout, st.serial, len(fragments), st.descriptor.Fragments)
		st.lastPoll = e.now().Add(-e.cfg.MinRefreshInterval / 2)
		return
	}
	st.lastPoll = e.now()

	rec := e.aggregate(st, fragments, metas, txChannel)
	if !st.known {
		// Per the unknown-model policy, keep polling for diagnostics but
		// never hand an unattested decode to a sink.
		return
	}
	e.publish(rec)
}

// firstHole returns the lowest fragment index in [1, highestIdx) not yet
// present in fragments.
func firstHole(fragments map[int]frame.Response, highestIdx int) (int, bool) {
	for i := 1; i < highestIdx; i++ {
		if _, ok := fragments[i]; !ok {
			return i, true
		}
	}
	return 0, false
}

func (e *Engine) aggregate(st *inverterState, fragments map[int]frame.Response, metas []decode.FragmentMeta, txChannel int) decode.Record {
	rec := decode.Record{
		InverterSerial: st.serial,
		Timestamp:      e.now(),
		TXChannel:      txChannel,
		Fragments:      metas,
		Valid:          true,
	}

	idxs := make([]int, 0, len(fragments))
	for i := range fragments {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	scratch := decode.NewScratch()
	for _, i := range idxs {
		resp := fragments[i]
		if !resp.CRCValid {
			rec.Valid = false
			log.Printf("engine: %v for %s cmd 0x%02x", frame.ErrCRCMismatch, st.serial, resp.Command)
		}
		frag, err := decode.Decode(st.descriptor.Name, st.descriptor.Decoder, resp.Command, resp.Payload)
		if err != nil {
			key := fmt.Sprintf("%s/0x%02x", st.descriptor.Name, resp.Command)
			if !e.loggedUnknownCmd[key] {
				e.loggedUnknownCmd[key] = true
				log.Printf("engine: %v (%s)", decode.ErrUnknownCommand, key)
			}
		}
		decode.Apply(scratch, &rec, frag)
	}
	return rec
}

// publish hands rec to every configured sink in sequence, recovering from
// a panic in any one of them so it cannot take down the poll loop.
func (e *Engine) publish(rec decode.Record) {
	for _, s := range e.sinks {
		e.publishOne(s, rec)
	}
}

func (e *Engine) publishOne(s sink.Sink, rec decode.Record) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: sink panicked: %v", r)
		}
	}()
	if err := s.Publish(rec); err != nil {
		log.Printf("engine: sink publish: %v", err)
	}
}
