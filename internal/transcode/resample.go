package transcode

import (
	"fmt"
	"strconv"

	"autotrans/internal/services"
)

// Resample is a per-track or release-wide resampling decision. The value of
// a concrete decision is its target sample rate.
type Resample int

const (
	// Keep leaves 16-bit tracks at 48kHz or below untouched.
	Keep Resample = 0
	// To44100 downsamples to 16-bit 44.1kHz.
	To44100 Resample = 44100
	// To48000 downsamples to 16-bit 48kHz.
	To48000 Resample = 48000
	// Mixed is the release-wide decision when tracks disagree.
	Mixed Resample = -1
)

func (r Resample) String() string {
	switch r {
	case Keep:
		return "KEEP"
	case To44100:
		return "KHZ_44_1"
	case To48000:
		return "KHZ_48"
	case Mixed:
		return "MIXED"
	default:
		return "Resample(" + strconv.Itoa(int(r)) + ")"
	}
}

// Rate returns the target sample rate, or 0 for Keep and Mixed.
func (r Resample) Rate() int {
	if r == To44100 || r == To48000 {
		return int(r)
	}
	return 0
}

// DecideResample classifies a track by its bit depth and sample rate.
func DecideResample(bits, rate int) (Resample, error) {
	if bits <= 16 && rate <= 48000 {
		return Keep, nil
	}
	switch {
	case rate > 0 && rate%44100 == 0:
		return To44100, nil
	case rate > 0 && rate%48000 == 0:
		return To48000, nil
	default:
		return Keep, services.Wrap(services.ErrValidation, "discover", "resample",
			fmt.Sprintf("file has unsupported sample rate: %d", rate), nil)
	}
}

// GlobalDecision returns the shared decision of every track, or Mixed when
// any two tracks disagree.
func GlobalDecision(decisions []Resample) Resample {
	if len(decisions) == 0 {
		return Keep
	}
	first := decisions[0]
	for _, d := range decisions[1:] {
		if d != first {
			return Mixed
		}
	}
	return first
}
