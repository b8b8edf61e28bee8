package audio

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"autotrans/internal/logging"
	"autotrans/internal/services"
)

// RequiredTags must be present and non-blank on every source and output track.
var RequiredTags = []string{"artist", "album", "title", "tracknumber"}

var (
	fractionalTag  = regexp.MustCompile(`^[A-Z]?\d+(/(\d+))?$`)
	trailingTotal  = regexp.MustCompile(`/(0+)?$`)
	zeroNumericTag = regexp.MustCompile(`^0+(/.*)?$`)
)

var numericTags = map[string]bool{
	"tracknumber": true,
	"discnumber":  true,
	"tracktotal":  true,
	"totaltracks": true,
	"disctotal":   true,
	"totaldiscs":  true,
}

// tagAliases maps the keys ffprobe reports onto Vorbis comment names.
var tagAliases = map[string]string{
	"track":        "tracknumber",
	"disc":         "discnumber",
	"album_artist": "albumartist",
}

// Tags is a case-insensitive tag map keyed by lower-case Vorbis comment names.
type Tags map[string][]string

// CanonicalKey lower-cases key and resolves ffprobe aliases.
func CanonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if alias, ok := tagAliases[key]; ok {
		return alias
	}
	return key
}

// Set replaces the values stored for key.
func (t Tags) Set(key string, values ...string) {
	t[CanonicalKey(key)] = append([]string(nil), values...)
}

// Has reports whether key is present.
func (t Tags) Has(key string) bool {
	_, ok := t[CanonicalKey(key)]
	return ok
}

// Get returns the first value stored for key.
func (t Tags) Get(key string) string {
	values := t[CanonicalKey(key)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Keys returns the tag names in sorted order.
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Check validates the required tags and rejects MQA encodes. A malformed
// tracknumber is an error when strictTrackNumber is set and a warning
// otherwise.
func (t Tags) Check(strictTrackNumber bool, logger *slog.Logger) error {
	for _, name := range RequiredTags {
		values, ok := t[name]
		switch {
		case !ok:
			return services.Wrap(services.ErrValidation, "tags", "check", fmt.Sprintf("file has no %s tag", name), nil)
		case len(values) == 0:
			return services.Wrap(services.ErrValidation, "tags", "check", fmt.Sprintf("file has an empty %s tag", name), nil)
		}
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				return services.Wrap(services.ErrValidation, "tags", "check", fmt.Sprintf("file has a blank %s tag: %q", name, values), nil)
			}
		}
	}

	if t.Has("mqaencoder") || strings.Contains(strings.Join(t["comment"], " "), "MQA") {
		return services.Wrap(services.ErrValidation, "tags", "check",
			fmt.Sprintf("MQA encoded: %s %s", t.Get("mqaencoder"), t.Get("comment")), nil)
	}

	tracknumber := t.Get("tracknumber")
	if !fractionalTag.MatchString(tracknumber) {
		if strictTrackNumber {
			return services.Wrap(services.ErrValidation, "tags", "check", fmt.Sprintf("file has a malformed tracknumber tag %q", tracknumber), nil)
		}
		if logger != nil {
			logger.Warn("file has a malformed tracknumber tag",
				logging.String("tracknumber", tracknumber),
				logging.String(logging.FieldEventType, "tag_tracknumber_malformed"),
			)
		}
	}
	return nil
}

// ScrubTag strips whitespace and NUL bytes and normalises numeric tags.
// The result may be empty, meaning the tag should be dropped.
func ScrubTag(name, value string) string {
	name = CanonicalKey(name)
	scrubbed := strings.Trim(strings.TrimSpace(value), "\x00")
	if !numericTags[name] {
		return scrubbed
	}
	scrubbed = trailingTotal.ReplaceAllString(scrubbed, "")
	scrubbed = strings.TrimLeft(scrubbed, "/")
	if name != "tracknumber" && zeroNumericTag.MatchString(scrubbed) {
		return ""
	}
	return scrubbed
}

// Scrubbed returns a copy of t with every value scrubbed and empty values
// dropped.
func (t Tags) Scrubbed() Tags {
	out := Tags{}
	for key, values := range t {
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if s := ScrubTag(key, v); s != "" {
				kept = append(kept, s)
			}
		}
		if len(kept) > 0 {
			out[key] = kept
		}
	}
	return out
}

// total returns the first non-empty scrubbed value of the given total keys.
func (t Tags) total(keys ...string) string {
	for _, key := range keys {
		if t.Has(key) {
			return ScrubTag(key, t.Get(key))
		}
	}
	return ""
}
