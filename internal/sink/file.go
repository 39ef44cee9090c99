package sink

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vbragin/hoymiles-dtu/internal/decode"
)

// FileAppender writes one human-readable line per record to an
// append-only file, opened once and flushed after every write. It is the
// only on-disk persistence this module performs.
type FileAppender struct {
	f *os.File
}

// NewFileAppender opens (creating if necessary) path in append mode.
func NewFileAppender(path string) (*FileAppender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	return &FileAppender{f: f}, nil
}

// Close closes the underlying file.
func (a *FileAppender) Close() error { return a.f.Close() }

func (a *FileAppender) Publish(rec decode.Record) error {
	if !rec.Valid {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "serial=%s tx_channel=%d", rec.InverterSerial, rec.TXChannel)
	for _, fr := range rec.Fragments {
		fmt.Fprintf(&b, " frag[cmd=0x%02x rx=%d refetch=%t latency=%s]", fr.Command, fr.RXChannel, fr.IsRefetch, fr.Latency)
	}

	writeACField(&b, "ac/voltage", rec.AC.Voltage)
	writeACField(&b, "ac/current", rec.AC.Current)
	writeACField(&b, "ac/frequency", rec.AC.Frequency)
	writeACField(&b, "ac/power", rec.AC.Power)
	writeACField(&b, "ac/temperature", rec.AC.Temperature)
	writeACField(&b, "ac/load_percent", rec.AC.LoadPercent)

	idxs := make([]int, 0, len(rec.Strings))
	for idx := range rec.Strings {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	for _, idx := range idxs {
		sm := rec.Strings[idx]
		writeACField(&b, fmt.Sprintf("string/%d/voltage", idx), sm.Voltage)
		writeACField(&b, fmt.Sprintf("string/%d/current", idx), sm.Current)
		writeACField(&b, fmt.Sprintf("string/%d/power", idx), sm.Power)
		writeACField(&b, fmt.Sprintf("string/%d/energy_today", idx), sm.EnergyToday)
		writeACField(&b, fmt.Sprintf("string/%d/energy_total", idx), sm.EnergyTotal)
	}

	b.WriteByte('\n')
	if _, err := a.f.WriteString(b.String()); err != nil {
		return fmt.Errorf("sink: file append: %w", err)
	}
	return a.f.Sync()
}

func writeACField(b *strings.Builder, key string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, " %s: %g", key, *v)
}
