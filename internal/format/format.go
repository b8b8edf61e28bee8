// Package format enumerates the audio encodings the catalog understands and
// the media labels releases are grouped by.
package format

import (
	"fmt"
	"sort"
	"strings"
)

// Format describes one catalog encoding target.
type Format struct {
	// Name is the stable identifier used in config and output directory names.
	Name string
	// Base is the container/codec family reported to the catalog.
	Base string
	// Encoding is the catalog's bitrate/encoding label.
	Encoding string
	// Ext is the output file extension including the leading dot.
	Ext      string
	Lossless bool
	order    int
}

func (f Format) String() string { return f.Name }

// Rank is the format's position in catalog order; lower ranks are preferred.
func (f Format) Rank() int { return f.order }

// IsZero reports whether f is the zero Format.
func (f Format) IsZero() bool { return f.Name == "" }

var (
	FLAC24 = Format{Name: "FLAC_24", Base: "FLAC", Encoding: "24bit Lossless", Ext: ".flac", Lossless: true, order: 0}
	FLAC16 = Format{Name: "FLAC_16", Base: "FLAC", Encoding: "Lossless", Ext: ".flac", Lossless: true, order: 1}
	MP3320 = Format{Name: "MP3_320", Base: "MP3", Encoding: "320", Ext: ".mp3", order: 2}
	MP3V0  = Format{Name: "MP3_V0", Base: "MP3", Encoding: "V0 (VBR)", Ext: ".mp3", order: 3}
	MP3V1  = Format{Name: "MP3_V1", Base: "MP3", Encoding: "V1 (VBR)", Ext: ".mp3", order: 4}
	MP3V2  = Format{Name: "MP3_V2", Base: "MP3", Encoding: "V2 (VBR)", Ext: ".mp3", order: 5}
	MP3256 = Format{Name: "MP3_256", Base: "MP3", Encoding: "256", Ext: ".mp3", order: 6}
	MP3192 = Format{Name: "MP3_192", Base: "MP3", Encoding: "192", Ext: ".mp3", order: 7}
	MP396  = Format{Name: "MP3_96", Base: "MP3", Encoding: "96", Ext: ".mp3", order: 8}
)

// All lists every known format in catalog order.
func All() []Format {
	return []Format{FLAC24, FLAC16, MP3320, MP3V0, MP3V1, MP3V2, MP3256, MP3192, MP396}
}

// Parse resolves a format by name, case-insensitively.
func Parse(name string) (Format, error) {
	needle := strings.ToUpper(strings.TrimSpace(name))
	for _, f := range All() {
		if f.Name == needle {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("unknown format %q", name)
}

// FromEncoding resolves a format from the catalog's encoding label.
func FromEncoding(encoding string) (Format, error) {
	for _, f := range All() {
		if f.Encoding == encoding {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("invalid encoding: %q", encoding)
}

// Set is an unordered collection of formats.
type Set map[string]Format

// NewSet builds a set from the provided formats.
func NewSet(formats ...Format) Set {
	set := make(Set, len(formats))
	for _, f := range formats {
		set.Add(f)
	}
	return set
}

// Add inserts f into the set.
func (s Set) Add(f Format) { s[f.Name] = f }

// Has reports membership.
func (s Set) Has(f Format) bool {
	_, ok := s[f.Name]
	return ok
}

// Difference returns the formats in s that are absent from other.
func (s Set) Difference(other Set) Set {
	out := make(Set, len(s))
	for name, f := range s {
		if _, ok := other[name]; !ok {
			out[name] = f
		}
	}
	return out
}

// Sorted returns the members in catalog order.
func (s Set) Sorted() []Format {
	out := make([]Format, 0, len(s))
	for _, f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// Names returns the member names in catalog order.
func (s Set) Names() []string {
	sorted := s.Sorted()
	names := make([]string, len(sorted))
	for i, f := range sorted {
		names[i] = f.Name
	}
	return names
}
