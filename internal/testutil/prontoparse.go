package testutil

import (
	"fmt"
	"strconv"
	"strings"
)

// Pronto is a decoded learned-form Pronto code.
type Pronto struct {
	Freq   uint16
	Intro  []uint16
	Repeat []uint16
}

func ParsePronto(s string) (Pronto, error) {
	var p Pronto
	fields := strings.Fields(s)
	if len(fields) < 4 {
		return p, fmt.Errorf("short pronto code: %d words", len(fields))
	}
	words := make([]uint16, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 16)
		if err != nil {
			return p, fmt.Errorf("word %d: %w", i, err)
		}
		words[i] = uint16(v)
	}
	if words[0] != 0 {
		return p, fmt.Errorf("unsupported pronto type %04X", words[0])
	}
	p.Freq = words[1]
	intro, repeat := int(words[2])*2, int(words[3])*2
	if len(words)-4 != intro+repeat {
		return p, fmt.Errorf("expected %d durations, got %d", intro+repeat, len(words)-4)
	}
	p.Intro = words[4 : 4+intro]
	p.Repeat = words[4+intro:]
	return p, nil
}

// Microseconds converts a duration word back using the code's frequency.
func (p Pronto) Microseconds(word uint16) float64 {
	return float64(word) * float64(p.Freq) * 0.241246
}
