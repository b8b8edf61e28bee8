package batch

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"autotrans/internal/audio"
	"autotrans/internal/catalog"
	"autotrans/internal/config"
	"autotrans/internal/ledger"
	"autotrans/internal/naming"
	"autotrans/internal/services"
	"autotrans/internal/transcode"
)

const testEndpoint = "https://catalog.test"

type fakeClient struct {
	mu         sync.Mutex
	releases   map[int64]*catalog.Release
	fetchErr   map[int64]error
	feed       []catalog.Ref
	collages   map[int64]*catalog.Collage
	published  []catalog.Upload
	bundles    []string
	publishErr error
	downloads  map[int64]bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		releases:  map[int64]*catalog.Release{},
		fetchErr:  map[int64]error{},
		collages:  map[int64]*catalog.Collage{},
		downloads: map[int64]bool{},
	}
}

func (f *fakeClient) add(group catalog.Group, items ...catalog.Item) {
	for _, item := range items {
		f.releases[item.ID] = &catalog.Release{Group: group, Item: item, Siblings: items}
	}
}

func (f *fakeClient) FetchRelease(_ context.Context, _, itemID int64) (*catalog.Release, error) {
	if err := f.fetchErr[itemID]; err != nil {
		return nil, err
	}
	release, ok := f.releases[itemID]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "fetch", "bad id parameter", nil)
	}
	return release, nil
}

func (f *fakeClient) CrawlFeed(_ context.Context, kind string) iter.Seq2[catalog.Ref, error] {
	return func(yield func(catalog.Ref, error) bool) {
		if kind != SeedingFeed {
			yield(catalog.Ref{}, errors.New("unexpected feed "+kind))
			return
		}
		for _, ref := range f.feed {
			if !yield(ref, nil) {
				return
			}
		}
	}
}

func (f *fakeClient) Download(_ context.Context, itemID int64, freeleech bool) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads[itemID] = freeleech
	return []byte("bundle-" + time.Now().String()), nil
}

func (f *fakeClient) Publish(_ context.Context, upload catalog.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	data, err := os.ReadFile(upload.BundlePath)
	if err != nil {
		return err
	}
	f.bundles = append(f.bundles, string(data))
	f.published = append(f.published, upload)
	return nil
}

func (f *fakeClient) Collage(_ context.Context, id int64) (*catalog.Collage, error) {
	collage, ok := f.collages[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "collage", "unknown collage", nil)
	}
	return collage, nil
}

func (f *fakeClient) URL(groupID, itemID int64) string {
	return catalog.ItemURL(testEndpoint, groupID, itemID)
}

func (f *fakeClient) AnnounceURL() string { return "https://tracker.test/announce" }

type fakeBundler struct{}

func (fakeBundler) Build(_ context.Context, sourceDir, dest string) (string, error) {
	return dest, os.WriteFile(dest, []byte(filepath.Base(sourceDir)), 0o644)
}

type fakeTools struct {
	infos map[string]audio.Info
}

func tags() audio.Tags {
	t := audio.Tags{}
	t.Set("artist", "Band")
	t.Set("album", "Record")
	t.Set("title", "Song")
	t.Set("tracknumber", "1")
	return t
}

func hiRes() audio.Info {
	return audio.Info{Codec: "flac", Channels: 2, SampleRate: 96000, BitDepth: 24, Tags: tags()}
}

func cdQuality() audio.Info {
	return audio.Info{Codec: "flac", Channels: 2, SampleRate: 44100, BitDepth: 16, Tags: tags()}
}

func (f *fakeTools) Probe(_ context.Context, path string) (audio.Info, error) {
	// Outputs live under the output root; only sources carry configured infos.
	for prefix, info := range f.infos {
		if strings.HasPrefix(path, prefix) {
			return info, nil
		}
	}
	return cdQuality(), nil
}

func (f *fakeTools) CheckIntegrity(context.Context, string) error { return nil }

func (f *fakeTools) RenderSpectrograms(_ context.Context, dir, track string) ([]string, error) {
	return []string{audio.SpectrogramPath(dir, track, false), audio.SpectrogramPath(dir, track, true)}, nil
}

func (f *fakeTools) CopyTags(context.Context, string, string) error { return nil }

type converter struct {
	mu       sync.Mutex
	calls    [][]string
	fail     bool
	inFlight int
	peak     int
}

func (c *converter) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	c.mu.Lock()
	c.calls = append(c.calls, args)
	c.inFlight++
	c.peak = max(c.peak, c.inFlight)
	c.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	if c.fail {
		return nil, errors.New("exit status 1")
	}
	return nil, os.WriteFile(args[1], []byte("converted"), 0o644)
}

type verifier struct{}

func (verifier) Verify(context.Context, string) bool { return true }

type harness struct {
	cfg        *config.Config
	client     *fakeClient
	tools      *fakeTools
	conv       *converter
	ledger     *ledger.Ledger
	controller *Controller
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarnessWith(t, nil, opts...)
}

func newHarnessWith(t *testing.T, mutate func(*config.Config), opts ...Option) *harness {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(root, "in")
	cfg.Paths.OutputDir = filepath.Join(root, "out")
	cfg.Paths.BundleDir = filepath.Join(root, "bundles")
	cfg.Transcode.Transcoder = "transcoder"
	cfg.Transcode.Formats = []string{"FLAC_16", "MP3_V0"}
	cfg.Transcode.Media = []string{"cd", "web"}
	cfg.Transcode.MinDays = 0
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		cfg:    &cfg,
		client: newFakeClient(),
		tools:  &fakeTools{infos: map[string]audio.Info{}},
		conv:   &converter{},
		ledger: ledger.NewMemory(nil),
	}
	engine := transcode.New(h.cfg,
		transcode.WithTools(h.tools),
		transcode.WithExecutor(h.conv),
		transcode.WithVerifier(verifier{}),
		transcode.WithWorkers(2),
		transcode.WithSpectrogramDir(cfg.Paths.SpectrogramDir),
	)
	base := []Option{
		WithClient(h.client),
		WithLedger(h.ledger),
		WithEngine(engine),
		WithResolver(naming.NewResolver(naming.None{}, 1, nil)),
		WithBundler(fakeBundler{}),
		WithRetryPolicy(ledger.AlwaysRetry{}),
	}
	h.controller = New(h.cfg, append(base, opts...)...)
	return h
}

// source writes a release folder under the input dir and returns its
// relative file path.
func (h *harness) source(t *testing.T, name string, info *audio.Info, files ...string) string {
	t.Helper()
	dir := filepath.Join(h.cfg.Paths.InputDir, name)
	for _, file := range files {
		path := filepath.Join(dir, file)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(file), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if info != nil {
		h.tools.infos[dir+string(filepath.Separator)] = *info
	}
	return name
}

func group(id int64, name string) catalog.Group {
	return catalog.Group{
		ID:        id,
		Name:      name,
		Year:      2001,
		MusicInfo: catalog.MusicInfo{Artists: []catalog.Artist{{ID: 1, Name: "Band"}}},
	}
}

func lossless(id int64, encoding, media, filePath string) catalog.Item {
	return catalog.Item{
		ID:       id,
		Media:    media,
		Format:   "FLAC",
		Encoding: encoding,
		FilePath: filePath,
		Time:     "2020-01-02 03:04:05",
	}
}
