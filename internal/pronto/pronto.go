// Package pronto writes rendered messages as Pronto hex, the learned
// modulated ("0000") form.
package pronto

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pborges/irp/internal/irp"
)

// DefaultTrailingGap closes an odd-length waveform, in microseconds.
const DefaultTrailingGap = 100000

// Pronto clock period in microseconds per frequency-word unit.
const clock = 0.241246

var (
	ErrNoCarrier = errors.New("pronto needs a modulated signal")
	ErrTooLong   = errors.New("duration does not fit in a pronto word")
)

type Config struct {
	// TrailingGap is appended when the waveform ends in a flash. Zero
	// means DefaultTrailingGap.
	TrailingGap uint32
}

// Make encodes msg as a once-sequence with an empty repeat sequence.
func Make(cfg Config, msg irp.Message) (string, error) {
	if msg.Carrier <= 0 {
		return "", ErrNoCarrier
	}
	gap := cfg.TrailingGap
	if gap == 0 {
		gap = DefaultTrailingGap
	}
	raw := msg.Raw
	if len(raw)%2 != 0 {
		raw = append(raw[:len(raw):len(raw)], gap)
	}

	freq := math.Round(1e6 / (float64(msg.Carrier) * clock))
	if freq < 1 || freq > 0xFFFF {
		return "", fmt.Errorf("carrier %d Hz: %w", msg.Carrier, ErrTooLong)
	}
	period := freq * clock

	w := &wordWriter{}
	w.add(0x0000)
	w.add(uint16(freq))
	w.add(uint16(len(raw) / 2))
	w.add(0x0000)
	for i, d := range raw {
		cycles := math.Round(float64(d) / period)
		if cycles > 0xFFFF {
			return "", fmt.Errorf("entry %d (%dus): %w", i, d, ErrTooLong)
		}
		w.add(uint16(cycles))
	}
	return w.String(), nil
}

type wordWriter struct {
	buf strings.Builder
}

func (w *wordWriter) add(v uint16) {
	if w.buf.Len() > 0 {
		w.buf.WriteByte(' ')
	}
	fmt.Fprintf(&w.buf, "%04X", v)
}

func (w *wordWriter) String() string { return w.buf.String() }
