package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"autotrans/internal/services"
)

var (
	groupIDParam = regexp.MustCompile(`[?&]id=(\d+)`)
	itemIDParam  = regexp.MustCompile(`[?&]torrentid=(\d+)`)
)

// ParseURL extracts the group id (zero when absent) and item id from a
// catalog permalink.
func ParseURL(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	itemMatch := itemIDParam.FindStringSubmatch(raw)
	if itemMatch == nil {
		return Ref{}, services.Wrap(services.ErrNotFound, "catalog", "parse url", fmt.Sprintf("missing item id in %q", raw), nil)
	}
	itemID, err := strconv.ParseInt(itemMatch[1], 10, 64)
	if err != nil {
		return Ref{}, services.Wrap(services.ErrNotFound, "catalog", "parse url", "invalid item id", err)
	}
	ref := Ref{ItemID: itemID}
	if groupMatch := groupIDParam.FindStringSubmatch(raw); groupMatch != nil {
		if groupID, err := strconv.ParseInt(groupMatch[1], 10, 64); err == nil {
			ref.GroupID = groupID
		}
	}
	return ref, nil
}

// ItemURL builds the permalink for an item.
func ItemURL(endpoint string, groupID, itemID int64) string {
	base := strings.TrimRight(endpoint, "/")
	if groupID == 0 {
		return fmt.Sprintf("%s/torrents.php?torrentid=%d", base, itemID)
	}
	return fmt.Sprintf("%s/torrents.php?id=%d&torrentid=%d#torrent%d", base, groupID, itemID, itemID)
}

// ParseCollageID accepts a bare collage id or a collage URL.
func ParseCollageID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	if match := groupIDParam.FindStringSubmatch(raw); match != nil {
		return strconv.ParseInt(match[1], 10, 64)
	}
	return 0, fmt.Errorf("invalid collage: %q", raw)
}
