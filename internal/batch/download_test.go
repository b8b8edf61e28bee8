package batch

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"autotrans/internal/catalog"
	"autotrans/internal/prompt"
)

func boolPtr(v bool) *bool { return &v }

func TestPlanDownloadsSpendsTokens(t *testing.T) {
	big := int64(FreeleechCutoff + 1)
	picks := []Pick{
		{Item: catalog.Item{ID: 1, Size: big}},
		{Item: catalog.Item{ID: 2, Size: big, FreeTorrent: true}},
		{Item: catalog.Item{ID: 3, Size: 10}},
		{Item: catalog.Item{ID: 4, Size: big, CanUseToken: boolPtr(false)}},
		{Item: catalog.Item{ID: 5, Size: big}},
		{Item: catalog.Item{ID: 6, Size: big}},
	}
	plan := PlanDownloads(picks, 2)
	if len(plan.Freeleech) != 2 || plan.Freeleech[0].Item.ID != 1 || plan.Freeleech[1].Item.ID != 5 {
		t.Fatalf("unexpected freeleech picks %+v", plan.Freeleech)
	}
	if len(plan.Regular) != 4 {
		t.Fatalf("expected 4 regular downloads, got %d", len(plan.Regular))
	}
	if want := 3*big + 10; plan.RegularSize() != want {
		t.Fatalf("expected regular size %d, got %d", want, plan.RegularSize())
	}
}

func TestPreferredItemsPicksBestPerEdition(t *testing.T) {
	year := 1999
	items := []catalog.Item{
		{ID: 1, Media: "WEB", Encoding: "Lossless"},
		{ID: 2, Media: "CD", Encoding: "Lossless"},
		{ID: 3, Media: "CD", Encoding: "320"},
		{ID: 4, Media: "Vinyl", Encoding: "24bit Lossless", RemasterYear: &year},
		{ID: 5, Media: "", Encoding: "24bit Lossless"},
	}
	got := PreferredItems(items)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 4 {
		t.Fatalf("unexpected preferred items %+v", got)
	}
}

func TestDownloadWritesBundles(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	picks := []Pick{
		{Group: group(1, "A"), Item: catalog.Item{ID: 1, Size: FreeleechCutoff + 1}},
		{Group: group(2, "B"), Item: catalog.Item{ID: 2, Size: 10, Reported: true}},
		{Group: group(3, "C"), Item: catalog.Item{ID: 3, HasSnatched: true}},
	}
	written, err := h.controller.Download(context.Background(), picks, 1, dir)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 bundles, got %v", written)
	}
	for _, path := range written {
		base := strings.TrimSuffix(path[len(dir)+1:], ".torrent")
		if len(base) != bundleNameLength || strings.ToLower(base) != base {
			t.Fatalf("unexpected bundle name %s", path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("bundle not written: %v", err)
		}
	}
	if fl, ok := h.client.downloads[1]; !ok || !fl {
		t.Fatal("expected token spent on the large item")
	}
	if fl, ok := h.client.downloads[2]; !ok || fl {
		t.Fatal("expected regular download for the small item")
	}
	if _, ok := h.client.downloads[3]; ok {
		t.Fatal("snatched item must be skipped")
	}
}

func TestDownloadOperatorFiltersAndDeclines(t *testing.T) {
	var out bytes.Buffer
	console := prompt.New(strings.NewReader("1\n\nn\n"), &out)
	h := newHarness(t, WithConsole(console))
	picks := []Pick{
		{Group: group(1, "A"), Item: catalog.Item{ID: 1}},
		{Group: group(2, "B"), Item: catalog.Item{ID: 2}},
	}
	written, err := h.controller.Download(context.Background(), picks, 0, t.TempDir())
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if len(written) != 0 || len(h.client.downloads) != 0 {
		t.Fatalf("declined download must fetch nothing, got %v", written)
	}
	if !strings.Contains(out.String(), "Good items") || !strings.Contains(out.String(), "#1 > B - (None") {
		t.Fatalf("unexpected prompts %q", out.String())
	}
}

func TestListAndCollagePicks(t *testing.T) {
	h := newHarness(t)
	h.client.add(group(5, "Listed"), catalog.Item{ID: 50, Media: "CD", Encoding: "Lossless"})
	h.client.collages[7] = &catalog.Collage{ID: 7, Groups: []catalog.CollageGroup{{
		Group: group(8, "Collected"),
		Items: []catalog.Item{
			{ID: 80, Media: "WEB", Encoding: "Lossless"},
			{ID: 81, Media: "CD", Encoding: "Lossless"},
		},
	}}}

	picks, err := h.controller.ListPicks(context.Background(), []string{"# comment", "", catalog.ItemURL(testEndpoint, 5, 50)})
	if err != nil || len(picks) != 1 || picks[0].Item.ID != 50 {
		t.Fatalf("unexpected list picks %+v (%v)", picks, err)
	}
	picks, err = h.controller.CollagePicks(context.Background(), []string{testEndpoint + "/collages.php?id=7"})
	if err != nil || len(picks) != 1 || picks[0].Item.ID != 81 || picks[0].Group.ID != 8 {
		t.Fatalf("unexpected collage picks %+v (%v)", picks, err)
	}
	if _, err := h.controller.CollagePicks(context.Background(), []string{"not a collage"}); err == nil {
		t.Fatal("expected invalid collage error")
	}
}
