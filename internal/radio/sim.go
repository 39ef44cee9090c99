package radio

import "sync"

// scriptedFrame is one canned response queued for later delivery.
type scriptedFrame struct {
	channel int // RX channel this frame is visible on; -1 means any channel
	payload []byte
	drop    bool // consumed from the queue but never actually delivered
}

// Simulated is a scripted in-memory Transceiver. Tests queue up responses
// (optionally restricted to a channel, optionally marked as a simulated
// loss) with ScriptFrame/ScriptDrop, then drive the engine against it
// exactly as a real radio would be driven. `cmd/dtu -sim` runs the engine
// against an empty script, so no response ever arrives there.
type Simulated struct {
	mu sync.Mutex

	cfg       Config
	configured bool
	txChannel int
	rxChannel int
	writePipe [5]byte
	readPipe  [5]byte
	listening bool
	poweredDown bool

	queue []scriptedFrame
	sent  [][]byte
}

// NewSimulated returns a Simulated transceiver with an empty script.
func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Configure(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.configured = true
	return nil
}

func (s *Simulated) SetTXChannel(ch int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txChannel = ch
	return nil
}

func (s *Simulated) SetRXChannel(ch int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rxChannel = ch
	return nil
}

func (s *Simulated) OpenWritePipe(pipe [5]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writePipe = pipe
	return nil
}

func (s *Simulated) OpenReadPipe(pipe [5]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readPipe = pipe
	return nil
}

func (s *Simulated) BeginReceive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = true
	return nil
}

func (s *Simulated) EndReceive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = false
	return nil
}

func (s *Simulated) Send(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, append([]byte(nil), b...))
	return true
}

// TryReceive returns the first queued frame visible on the current RX
// channel, consuming it from the script. A frame scripted via ScriptDrop
// is consumed but never actually returned, simulating a lost packet.
func (s *Simulated) TryReceive() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.queue {
		if f.channel != -1 && f.channel != s.rxChannel {
			continue
		}
		s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
		if f.drop {
			return nil, false
		}
		return f.payload, true
	}
	return nil, false
}

func (s *Simulated) FlushRX() error { return nil }
func (s *Simulated) FlushTX() error { return nil }

func (s *Simulated) PowerDown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poweredDown = true
	return nil
}

// ScriptFrame queues payload for delivery the next time TryReceive is
// called while tuned to channel (or any channel, if channel is -1).
func (s *Simulated) ScriptFrame(channel int, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptedFrame{channel: channel, payload: payload})
}

// ScriptDrop queues a simulated loss: the next matching TryReceive call
// consumes this entry from the script but returns nothing, as if the
// frame never made it across the air.
func (s *Simulated) ScriptDrop(channel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptedFrame{channel: channel, drop: true})
}

// Sent returns every buffer handed to Send so far, in order.
func (s *Simulated) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

// PoweredDown reports whether PowerDown has been called.
func (s *Simulated) PoweredDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poweredDown
}

// Configured reports whether Configure has been called, and with what.
func (s *Simulated) Configured() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.configured
}

// RXChannel reports the channel TryReceive currently filters against, for
// assertions that the engine is hopping as scheduled.
func (s *Simulated) RXChannel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rxChannel
}
