package format

import "strings"

// Media maps lower-case config keys to the catalog's media labels.
var Media = map[string]string{
	"cd":         "CD",
	"dvd":        "DVD",
	"vinyl":      "Vinyl",
	"soundboard": "Soundboard",
	"sacd":       "SACD",
	"dat":        "DAT",
	"web":        "WEB",
	"blu-ray":    "Blu-ray",
}

// MediaLabel returns the catalog label for a config media key.
func MediaLabel(key string) (string, bool) {
	label, ok := Media[strings.ToLower(strings.TrimSpace(key))]
	return label, ok
}

// AllMediaLabels returns every catalog media label.
func AllMediaLabels() []string {
	labels := make([]string, 0, len(Media))
	for _, key := range []string{"cd", "dvd", "vinyl", "soundboard", "sacd", "dat", "web", "blu-ray"} {
		labels = append(labels, Media[key])
	}
	return labels
}
