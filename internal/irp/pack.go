package irp

import (
	"fmt"
	"math"
)

// waveform packs signed durations into alternating flash/gap magnitudes,
// starting with a flash. Zero durations are dropped and neighbours of
// the same polarity are merged.
func waveform(signed []int64) ([]uint32, error) {
	var mags []int64
	lastFlash := false
	for _, v := range signed {
		if v == 0 {
			continue
		}
		flash := v > 0
		mag := v
		if !flash {
			mag = -v
		}
		if len(mags) == 0 {
			if !flash {
				continue
			}
			mags = append(mags, mag)
			lastFlash = true
			continue
		}
		if flash == lastFlash {
			mags[len(mags)-1] += mag
			continue
		}
		mags = append(mags, mag)
		lastFlash = flash
	}

	out := make([]uint32, len(mags))
	for i, m := range mags {
		if m > math.MaxUint32 {
			return nil, fmt.Errorf("%d us at position %d: %w", m, i, ErrDurationRange)
		}
		out[i] = uint32(m)
	}
	return out, nil
}
