package catalog

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"autotrans/internal/format"
	"autotrans/internal/logging"
)

var preEmphasis = regexp.MustCompile(`(?i)pre[- ]?emphasi(s(ed)?|zed)`)

// GroupingKey returns the attributes identifying equivalent editions:
// media, remaster year, remaster title, record label and catalogue number.
func GroupingKey(item Item) []string {
	year := "None"
	if item.RemasterYear != nil {
		year = strconv.Itoa(*item.RemasterYear)
	}
	return []string{item.Media, year, item.RemasterTitle, item.RemasterRecordLabel, item.RemasterCatalogueNumber}
}

// DedupKey identifies an edition within a group for in-run deduplication.
func DedupKey(groupID int64, item Item) string {
	return strings.Join(append([]string{strconv.FormatInt(groupID, 10)}, GroupingKey(item)...), "##")
}

// SameEdition reports whether two items share every grouping attribute.
func SameEdition(a, b Item) bool {
	ka, kb := GroupingKey(a), GroupingKey(b)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

// IsPreEmphasized reports whether the item's edition title or description
// mentions a pre-emphasized transfer. Such items must not be transcoded.
func IsPreEmphasized(item Item) bool {
	return preEmphasis.MatchString(item.RemasterTitle + item.Description)
}

// PossibleFormats returns the wanted formats that the item's edition does not
// already offer. Trumpable or reported siblings do not count as present.
func PossibleFormats(group Group, item Item, siblings []Item, wanted format.Set, logger *slog.Logger) format.Set {
	if IsPreEmphasized(item) {
		return format.Set{}
	}

	present := format.Set{}
	flagged := false
	for _, sibling := range siblings {
		if !SameEdition(item, sibling) {
			continue
		}
		if sibling.Trumpable || sibling.Reported {
			flagged = true
			continue
		}
		if f, err := format.FromEncoding(sibling.Encoding); err == nil {
			present.Add(f)
		}
	}
	if flagged && logger != nil {
		logging.WarnWithContext(logger, "group has reported or trumpable formats", "catalog_flagged_siblings",
			logging.Int64(logging.FieldGroupID, group.ID),
			logging.String(logging.FieldErrorHint, "review the group on the catalog before publishing"),
			logging.String(logging.FieldImpact, "flagged formats are treated as missing"),
		)
	}
	return wanted.Difference(present)
}

// Describe renders a short human label for log lines and prompts.
func Describe(group Group, item Item, url string) string {
	if url == "" {
		return group.Name
	}
	return fmt.Sprintf("%s (%s)", group.Name, url)
}
