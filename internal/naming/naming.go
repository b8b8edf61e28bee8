// Package naming computes output directory names for a release and
// validates every output path against the catalog's naming rules.
//
// A path must stay within MaxPathLength characters, counted from the output
// root's parent, and must not contain residual HTML entities. Violations are
// reported as *Conflict errors; Resolver drives an OverrideProvider to
// shorten names until the release plans cleanly or the provider gives up.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"autotrans/internal/catalog"
	"autotrans/internal/format"
	"autotrans/internal/services"
)

// MaxPathLength is the longest relative path the catalog accepts.
const MaxPathLength = 180

const minYear = 1900

var (
	htmlEntity   = regexp.MustCompile(`&[a-z0-9]+;`)
	invalidChars = regexp.MustCompile(`[\./:\*\?"<>\|\\]`)
)

// Conflict describes an output path that violates the naming rules.
type Conflict struct {
	Path   string
	Length int
	Reason string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("path %q %s", c.Path, c.Reason)
}

// Unwrap marks conflicts as services.ErrNaming.
func (c *Conflict) Unwrap() error { return services.ErrNaming }

// Excess returns how many characters the path is over the limit.
func (c *Conflict) Excess() int {
	if c.Length <= MaxPathLength {
		return 0
	}
	return c.Length - MaxPathLength
}

// HasEntity reports whether the conflict is caused by an HTML entity.
func (c *Conflict) HasEntity() bool {
	return htmlEntity.MatchString(c.Path)
}

// Overrides replaces parts of the computed directory name.
type Overrides struct {
	Title    string
	Remaster string
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool { return o.Title == "" && o.Remaster == "" }

// Target pairs an output format with its planned directory.
type Target struct {
	Format format.Format
	Dir    string
}

// Artists renders the artist credit used in directory names.
func Artists(group catalog.Group) string {
	artists := group.MusicInfo.Artists
	composers := group.MusicInfo.Composers
	switch {
	case len(artists) > 2:
		return "Various Artists"
	case len(artists) == 0 && len(composers) > 2:
		return "Various Artists"
	case len(artists) == 2:
		return artists[0].Name + " & " + artists[1].Name
	case len(artists) == 0 && len(composers) == 2:
		return composers[0].Name + " & " + composers[1].Name
	case len(artists) == 0 && len(composers) == 1:
		return composers[0].Name
	case len(artists) == 0:
		return ""
	default:
		return artists[0].Name
	}
}

// Year returns the edition year, preferring the item's remaster year over
// the group year. Years outside 1900..current year are ignored.
func Year(group catalog.Group, item catalog.Item) (int, error) {
	maxYear := time.Now().Year()
	valid := func(y int) bool { return y >= minYear && y <= maxYear }
	if item.RemasterYear != nil && valid(*item.RemasterYear) {
		return *item.RemasterYear, nil
	}
	if valid(group.Year) {
		return group.Year, nil
	}
	return 0, services.Wrap(services.ErrValidation, "naming", "year",
		fmt.Sprintf("item %d has no valid release year", item.ID), nil)
}

// DirName composes "Artists - Title (Remaster - Year) [Media - FORMAT]",
// dropping characters that are invalid in paths.
func DirName(group catalog.Group, item catalog.Item, f format.Format, o Overrides) (string, error) {
	year, err := Year(group, item)
	if err != nil {
		return "", err
	}
	title := group.Name
	if o.Title != "" {
		title = o.Title
	}
	var b strings.Builder
	b.WriteString(Artists(group))
	b.WriteString(" - ")
	b.WriteString(title)
	if item.RemasterTitle != "" {
		remaster := item.RemasterTitle
		if o.Remaster != "" {
			remaster = o.Remaster
		}
		fmt.Fprintf(&b, " (%s - %d)", remaster, year)
	} else {
		fmt.Fprintf(&b, " (%d)", year)
	}
	fmt.Fprintf(&b, " [%s - %s]", item.Media, f.Name)
	return norm.NFC.String(invalidChars.ReplaceAllString(b.String(), "")), nil
}

// Targets computes one output directory under root for every format.
func Targets(root string, group catalog.Group, item catalog.Item, formats format.Set, o Overrides) ([]Target, error) {
	sorted := formats.Sorted()
	targets := make([]Target, 0, len(sorted))
	for _, f := range sorted {
		name, err := DirName(group, item, f, o)
		if err != nil {
			return nil, err
		}
		targets = append(targets, Target{Format: f, Dir: filepath.Join(root, name)})
	}
	return targets, nil
}

// CheckPath validates file, which lives under outputDir. The length is
// measured from outputDir's parent so the directory name counts.
func CheckPath(outputDir, file string) error {
	rel, err := filepath.Rel(filepath.Dir(outputDir), file)
	if err != nil {
		return fmt.Errorf("relative path for %s: %w", file, err)
	}
	length := utf8.RuneCountInString(rel)
	if length > MaxPathLength {
		return &Conflict{
			Path:   rel,
			Length: length,
			Reason: fmt.Sprintf("has %d characters and exceeds maximum (%d)", length, MaxPathLength),
		}
	}
	if htmlEntity.MatchString(rel) {
		return &Conflict{Path: rel, Length: length, Reason: "has invalid characters"}
	}
	return nil
}
