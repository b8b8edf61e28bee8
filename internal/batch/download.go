package batch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"autotrans/internal/catalog"
	"autotrans/internal/eligibility"
	"autotrans/internal/format"
	"autotrans/internal/logging"
	"autotrans/internal/services"
)

// FreeleechCutoff is the item size above which a freeleech token is spent.
const FreeleechCutoff = 450 << 20

// bundleNameLength is the length of the random name of downloaded bundles.
const bundleNameLength = 32

// mediaOrder ranks media when choosing one item per collage edition.
var mediaOrder = []string{"CD", "Vinyl", "SACD", "WEB"}

// Pick is an item selected for download.
type Pick struct {
	Group catalog.Group
	Item  catalog.Item
}

// Flagged reports whether the item is reported, trumpable or has a bad log.
func (p Pick) Flagged() bool {
	return p.Item.Trumpable || p.Item.Reported || (p.Item.HasLog && p.Item.LogScore < eligibility.MinLogScore)
}

// DownloadPlan splits picks by whether a freeleech token is spent on them.
type DownloadPlan struct {
	Regular   []Pick
	Freeleech []Pick
}

// RegularSize is the total size of downloads that count against ratio.
func (p DownloadPlan) RegularSize() int64 {
	var total int64
	for _, pick := range p.Regular {
		total += pick.Item.Size
	}
	return total
}

// PlanDownloads spends up to tokens freeleech tokens, in input order, on
// items above FreeleechCutoff that are not already free and allow tokens.
func PlanDownloads(picks []Pick, tokens int) DownloadPlan {
	var plan DownloadPlan
	for _, pick := range picks {
		item := pick.Item
		if item.TokenAllowed() && !item.FreeTorrent && item.Size > FreeleechCutoff && len(plan.Freeleech) < tokens {
			plan.Freeleech = append(plan.Freeleech, pick)
			continue
		}
		plan.Regular = append(plan.Regular, pick)
	}
	return plan
}

// ListPicks resolves catalog references, one per line. Blank lines and
// lines starting with '#' are skipped.
func (c *Controller) ListPicks(ctx context.Context, lines []string) ([]Pick, error) {
	if c.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "download", "list", "catalog client is not configured", nil)
	}
	var picks []Pick
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ref, err := catalog.ParseURL(line)
		if err != nil {
			return nil, err
		}
		release, err := c.client.FetchRelease(ctx, ref.GroupID, ref.ItemID)
		if err != nil {
			return nil, err
		}
		picks = append(picks, Pick{Group: release.Group, Item: release.Item})
	}
	return picks, nil
}

// CollagePicks loads collages (ids or URLs, one per line) and picks the
// preferred item of every edition: best format first, then media in
// CD, Vinyl, SACD, WEB order.
func (c *Controller) CollagePicks(ctx context.Context, lines []string) ([]Pick, error) {
	if c.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "download", "collage", "catalog client is not configured", nil)
	}
	var picks []Pick
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := catalog.ParseCollageID(line)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "download", "collage", line, err)
		}
		collage, err := c.client.Collage(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, cg := range collage.Groups {
			for _, item := range PreferredItems(cg.Items) {
				picks = append(picks, Pick{Group: cg.Group, Item: item})
			}
		}
	}
	return picks, nil
}

// PreferredItems groups items by edition (ignoring items without media) and
// returns the preferred item of each edition in first-seen order.
func PreferredItems(items []catalog.Item) []catalog.Item {
	var order []string
	editions := map[string][]catalog.Item{}
	for _, item := range items {
		if item.Media == "" {
			continue
		}
		key := strings.Join(catalog.GroupingKey(item)[1:], "##")
		if _, ok := editions[key]; !ok {
			order = append(order, key)
		}
		editions[key] = append(editions[key], item)
	}
	preferred := make([]catalog.Item, 0, len(order))
	for _, key := range order {
		candidates := editions[key]
		slices.SortStableFunc(candidates, func(a, b catalog.Item) int {
			if d := formatRank(a) - formatRank(b); d != 0 {
				return d
			}
			return mediaRank(a) - mediaRank(b)
		})
		preferred = append(preferred, candidates[0])
	}
	return preferred
}

func formatRank(item catalog.Item) int {
	f, err := format.FromEncoding(item.Encoding)
	if err != nil {
		return len(format.All())
	}
	return f.Rank()
}

func mediaRank(item catalog.Item) int {
	if i := slices.Index(mediaOrder, item.Media); i >= 0 {
		return i
	}
	return len(mediaOrder)
}

// Download writes the bundle files of picks into dir, skipping items
// already downloaded. With a console the operator may remove picks and must
// confirm before anything is fetched. It returns the written paths.
func (c *Controller) Download(ctx context.Context, picks []Pick, tokens int, dir string) ([]string, error) {
	var good, bad []Pick
	for _, pick := range picks {
		if pick.Item.HasSnatched {
			continue
		}
		if pick.Flagged() {
			bad = append(bad, pick)
		} else {
			good = append(good, pick)
		}
	}
	if len(good) == 0 && len(bad) == 0 {
		c.logger.Info("nothing to download")
		return nil, nil
	}

	var err error
	if good, err = c.filterPicks("Good items", good); err != nil {
		return nil, err
	}
	if bad, err = c.filterPicks("Bad items", bad); err != nil {
		return nil, err
	}

	plan := PlanDownloads(append(good, bad...), tokens)
	c.logger.Info("download plan",
		logging.Int("freeleech_tokens", len(plan.Freeleech)),
		logging.Int("downloads", len(plan.Regular)),
		logging.String("total_size", humanize.IBytes(uint64(plan.RegularSize()))),
	)
	if c.console != nil {
		proceed, err := c.console.Confirm("Continue? (y/n) ")
		if err != nil {
			return nil, err
		}
		if !proceed {
			return nil, nil
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "prepare", dir, err)
	}
	var written []string
	fetch := func(picks []Pick, freeleech bool) error {
		for _, pick := range picks {
			data, err := c.client.Download(ctx, pick.Item.ID, freeleech)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, randomName(bundleNameLength)+bundleExt)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return services.Wrap(services.ErrTransient, "download", "write", path, err)
			}
			written = append(written, path)
		}
		return nil
	}
	if err := fetch(plan.Regular, false); err != nil {
		return written, err
	}
	if err := fetch(plan.Freeleech, true); err != nil {
		return written, err
	}
	return written, nil
}

// filterPicks lets the operator delete picks by position until an empty
// answer.
func (c *Controller) filterPicks(title string, picks []Pick) ([]Pick, error) {
	if c.console == nil || len(picks) == 0 {
		return picks, nil
	}
	for len(picks) > 0 {
		var b strings.Builder
		b.WriteString(title + "\n\n")
		for i, pick := range picks {
			fmt.Fprintf(&b, "\t- #%d > %s\n", i+1, c.describePick(pick))
		}
		b.WriteString("\nDelete any? ")
		answer, err := c.console.Ask(b.String())
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		pos, err := strconv.Atoi(answer)
		if err != nil || pos < 1 || pos > len(picks) {
			continue
		}
		picks = slices.Delete(picks, pos-1, pos)
	}
	return picks, nil
}

func (c *Controller) describePick(pick Pick) string {
	item := pick.Item
	year := "None"
	if item.RemasterYear != nil {
		year = strconv.Itoa(*item.RemasterYear)
	}
	return fmt.Sprintf("%s - (%s / %s / %s / %s) - %s %s %s %s",
		pick.Group.Name, year, item.RemasterTitle, item.RemasterRecordLabel, item.RemasterCatalogueNumber,
		item.Encoding, item.Media, humanize.IBytes(uint64(item.Size)), c.client.URL(pick.Group.ID, item.ID))
}

func randomName(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.IntN(len(letters))]
	}
	return string(b)
}
