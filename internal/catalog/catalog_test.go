package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"autotrans/internal/catalog"
	"autotrans/internal/format"
	"autotrans/internal/services"
)

func intPtr(v int) *int { return &v }

func TestParseURL(t *testing.T) {
	ref, err := catalog.ParseURL("https://example.test/torrents.php?id=12&torrentid=345#torrent345")
	if err != nil {
		t.Fatalf("ParseURL returned error: %v", err)
	}
	if ref.GroupID != 12 || ref.ItemID != 345 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	ref, err = catalog.ParseURL("https://example.test/torrents.php?torrentid=9")
	if err != nil || ref.GroupID != 0 || ref.ItemID != 9 {
		t.Fatalf("unexpected ref without group: %+v (%v)", ref, err)
	}
	if _, err := catalog.ParseURL("https://example.test/torrents.php?id=12"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing item id, got %v", err)
	}
}

func TestItemURL(t *testing.T) {
	got := catalog.ItemURL("https://example.test/", 1, 2)
	if got != "https://example.test/torrents.php?id=1&torrentid=2#torrent2" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestDedupKeyIncludesGroupingAttributes(t *testing.T) {
	a := catalog.Item{Media: "CD", RemasterYear: intPtr(2001), RemasterTitle: "Deluxe"}
	b := a
	b.ID = 99
	if catalog.DedupKey(1, a) != catalog.DedupKey(1, b) {
		t.Fatal("expected identical editions to share a key")
	}
	c := a
	c.Media = "Vinyl"
	if catalog.DedupKey(1, a) == catalog.DedupKey(1, c) {
		t.Fatal("expected media to change the key")
	}
	if !strings.HasPrefix(catalog.DedupKey(1, catalog.Item{}), "1##") {
		t.Fatalf("unexpected key %q", catalog.DedupKey(1, catalog.Item{}))
	}
}

func TestPossibleFormats(t *testing.T) {
	item := catalog.Item{ID: 1, Media: "CD", Encoding: "Lossless", RemasterYear: intPtr(1999)}
	siblings := []catalog.Item{
		item,
		{ID: 2, Media: "CD", Encoding: "320", RemasterYear: intPtr(1999)},
		{ID: 3, Media: "CD", Encoding: "V0 (VBR)", RemasterYear: intPtr(1999), Trumpable: true},
		{ID: 4, Media: "Vinyl", Encoding: "V2 (VBR)", RemasterYear: intPtr(1999)},
	}
	wanted := format.NewSet(format.MP3320, format.MP3V0, format.MP3V2)

	got := catalog.PossibleFormats(catalog.Group{ID: 5}, item, siblings, wanted, nil).Names()
	if strings.Join(got, ",") != "MP3_V0,MP3_V2" {
		t.Fatalf("unexpected formats: %v", got)
	}
}

func TestPossibleFormatsSkipsPreEmphasis(t *testing.T) {
	item := catalog.Item{Media: "CD", Encoding: "Lossless", Description: "Ripped from a Pre-Emphasized disc"}
	got := catalog.PossibleFormats(catalog.Group{}, item, nil, format.NewSet(format.MP3V0), nil)
	if len(got) != 0 {
		t.Fatalf("expected no formats for pre-emphasis, got %v", got.Names())
	}
	if !catalog.IsPreEmphasized(catalog.Item{RemasterTitle: "preemphasis"}) {
		t.Fatal("expected pre-emphasis match without separator")
	}
}

func TestItemCreatedAt(t *testing.T) {
	ts, ok := catalog.Item{Time: "2020-01-02 03:04:05"}.CreatedAt()
	if !ok || ts.Year() != 2020 || ts.Hour() != 3 {
		t.Fatalf("unexpected time: %v %v", ts, ok)
	}
	if _, ok := (catalog.Item{Time: "yesterday"}).CreatedAt(); ok {
		t.Fatal("expected unparseable time")
	}
}

type recordingExecutor struct {
	binary string
	args   []string
	err    error
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	r.binary = binary
	r.args = args
	return nil, r.err
}

func TestCommandBundlerArgs(t *testing.T) {
	exec := &recordingExecutor{}
	bundler := catalog.NewCommandBundler("mktorrent", "https://tracker.test/pk/announce", "RED", 18, catalog.WithBundleExecutor(exec))
	dest := t.TempDir() + "/out/release.torrent"
	got, err := bundler.Build(context.Background(), "/music/release", dest)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if got != dest {
		t.Fatalf("unexpected bundle path %q", got)
	}
	want := "-p -s RED -a https://tracker.test/pk/announce -o " + dest + " -l 18 /music/release"
	if exec.binary != "mktorrent" || strings.Join(exec.args, " ") != want {
		t.Fatalf("unexpected command: %s %v", exec.binary, exec.args)
	}

	exec.err = errors.New("boom")
	if _, err := bundler.Build(context.Background(), "/music/release", dest); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
