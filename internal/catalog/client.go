package catalog

import (
	"context"
	"iter"

	"autotrans/internal/format"
)

// Client is the catalog surface consumed by the batch controller.
type Client interface {
	// FetchRelease loads an item with its group and sibling items. groupID
	// may be zero when unknown.
	FetchRelease(ctx context.Context, groupID, itemID int64) (*Release, error)
	// CrawlFeed lazily lists the account's items of the given kind (for
	// example "seeding").
	CrawlFeed(ctx context.Context, kind string) iter.Seq2[Ref, error]
	// Download returns the bundle file for an item.
	Download(ctx context.Context, itemID int64, freeleech bool) ([]byte, error)
	// Publish uploads a bundle file for a new format of an existing release.
	Publish(ctx context.Context, upload Upload) error
	// Collage loads a curated list of groups.
	Collage(ctx context.Context, id int64) (*Collage, error)
	// URL returns the permalink for an item.
	URL(groupID, itemID int64) string
	// AnnounceURL returns the account's tracker announce URL.
	AnnounceURL() string
}

// Upload carries one publication request.
type Upload struct {
	Group       Group
	Item        Item
	BundlePath  string
	Format      format.Format
	Description string
}
