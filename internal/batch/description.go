package batch

import (
	"fmt"
	"strings"

	"autotrans/internal/transcode"
)

// Description builds the publication text for a prepared transcode. It
// names the source item, states how tracks were resampled and whether the
// rip log checksum was valid.
func Description(sourceURL string, tc *transcode.Transcode) string {
	var b strings.Builder
	b.WriteString("Transcoded from " + sourceURL)

	switch tc.Global {
	case transcode.Keep:
	case transcode.Mixed:
		b.WriteString("\nSource files have varying sampling rate")
		order, groups, someKept := tc.ResampledGroups()
		for _, decision := range order {
			fmt.Fprintf(&b, "\n\n[b]Resampled to 16-bit (%d Hz)[/b]", decision.Rate())
			for _, track := range groups[decision] {
				b.WriteString("\n  " + track.Name())
			}
		}
		if someKept {
			b.WriteString("\n\nOther tracks were not resampled")
		}
	default:
		fmt.Fprintf(&b, "\nAll tracks were resampled to 16-bit (%d Hz)", tc.Global.Rate())
	}

	if tc.ValidLogs > 0 {
		b.WriteString("\nLog checksum was valid")
	}
	return b.String()
}
