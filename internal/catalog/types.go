package catalog

import (
	"strings"
	"time"
)

// Artist is a credited artist entry.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MusicInfo lists credited artists by role.
type MusicInfo struct {
	Artists   []Artist `json:"artists"`
	With      []Artist `json:"with"`
	RemixedBy []Artist `json:"remixedBy"`
	Composers []Artist `json:"composers"`
	Conductor []Artist `json:"conductor"`
	DJ        []Artist `json:"dj"`
	Producer  []Artist `json:"producer"`
}

// Group is the parent release group metadata.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	ReleaseType int       `json:"releaseType"`
	MusicInfo   MusicInfo `json:"musicInfo"`
}

// Item is one concrete release (a specific encoding of a specific edition).
type Item struct {
	ID                      int64  `json:"id"`
	Media                   string `json:"media"`
	Format                  string `json:"format"`
	Encoding                string `json:"encoding"`
	Remastered              bool   `json:"remastered"`
	RemasterYear            *int   `json:"remasterYear"`
	RemasterTitle           string `json:"remasterTitle"`
	RemasterRecordLabel     string `json:"remasterRecordLabel"`
	RemasterCatalogueNumber string `json:"remasterCatalogueNumber"`
	Description             string `json:"description"`
	Time                    string `json:"time"`
	HasLog                  bool   `json:"hasLog"`
	LogScore                int    `json:"logScore"`
	HasCue                  bool   `json:"hasCue"`
	Reported                bool   `json:"reported"`
	Trumpable               bool   `json:"trumpable"`
	LossyMasterApproved     bool   `json:"lossyMasterApproved"`
	LossyWebApproved        bool   `json:"lossyWebApproved"`
	FilePath                string `json:"filePath"`
	Size                    int64  `json:"size"`
	FreeTorrent             bool   `json:"freeTorrent"`
	HasSnatched             bool   `json:"has_snatched"`
	CanUseToken             *bool  `json:"canUseToken"`
	// TorrentID carries the item id in listings that name it "torrentid".
	TorrentID int64 `json:"torrentid,omitempty"`
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CreatedAt parses the item's upload time, interpreted as UTC when no zone
// is given.
func (i Item) CreatedAt() (time.Time, bool) {
	value := strings.TrimSpace(i.Time)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// TokenAllowed reports whether a freeleech token may be spent on the item.
func (i Item) TokenAllowed() bool {
	return i.CanUseToken == nil || *i.CanUseToken
}

// Release bundles fetched group metadata, the item and every item in its group.
type Release struct {
	Group    Group
	Item     Item
	Siblings []Item
}

// Ref identifies an item, optionally with its group. GroupID is zero when unknown.
type Ref struct {
	GroupID int64
	ItemID  int64
}

// CollageGroup is one group listed in a collage with its items.
type CollageGroup struct {
	Group
	Items []Item `json:"torrents"`
}

// Collage is a curated list of release groups.
type Collage struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Groups []CollageGroup `json:"torrentgroups"`
}
