package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"autotrans/internal/audio"
	"autotrans/internal/config"
	"autotrans/internal/format"
	"autotrans/internal/naming"
	"autotrans/internal/services"
)

func TestGlobalDecision(t *testing.T) {
	tests := []struct {
		in   []Resample
		want Resample
	}{
		{[]Resample{Keep, To44100}, Mixed},
		{[]Resample{To44100, To44100}, To44100},
		{[]Resample{Keep, Keep}, Keep},
		{[]Resample{To48000, To44100}, Mixed},
		{nil, Keep},
	}
	for _, tc := range tests {
		if got := GlobalDecision(tc.in); got != tc.want {
			t.Fatalf("GlobalDecision(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDecideResample(t *testing.T) {
	tests := []struct {
		bits, rate int
		want       Resample
		wantErr    bool
	}{
		{16, 44100, Keep, false},
		{16, 48000, Keep, false},
		{24, 44100, To44100, false},
		{24, 88200, To44100, false},
		{24, 96000, To48000, false},
		{16, 192000, To48000, false},
		{24, 50000, Keep, true},
	}
	for _, tc := range tests {
		got, err := DecideResample(tc.bits, tc.rate)
		if tc.wantErr {
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("DecideResample(%d, %d): expected validation error, got %v", tc.bits, tc.rate, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("DecideResample(%d, %d) = %v (%v), want %v", tc.bits, tc.rate, got, err, tc.want)
		}
	}
}

type fakeTools struct {
	mu        sync.Mutex
	infos     map[string]audio.Info
	integrity map[string]error
	tagged    []string
}

func validTags() audio.Tags {
	tags := audio.Tags{}
	tags.Set("artist", "Band")
	tags.Set("album", "Record")
	tags.Set("title", "Song")
	tags.Set("tracknumber", "1")
	return tags
}

func (f *fakeTools) Probe(_ context.Context, path string) (audio.Info, error) {
	if info, ok := f.infos[filepath.Base(path)]; ok {
		return info, nil
	}
	return audio.Info{Codec: "flac", Channels: 2, SampleRate: 44100, BitDepth: 16, Tags: validTags()}, nil
}

func (f *fakeTools) CheckIntegrity(_ context.Context, path string) error {
	return f.integrity[filepath.Base(path)]
}

func (f *fakeTools) RenderSpectrograms(_ context.Context, dir, track string) ([]string, error) {
	return []string{audio.SpectrogramPath(dir, track, false), audio.SpectrogramPath(dir, track, true)}, nil
}

func (f *fakeTools) CopyTags(_ context.Context, _, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagged = append(f.tagged, dst)
	return nil
}

type converter struct {
	mu    sync.Mutex
	calls [][]string
	fail  string
	block bool
}

func (c *converter) Run(ctx context.Context, _ string, args []string) ([]byte, error) {
	c.mu.Lock()
	c.calls = append(c.calls, args)
	c.mu.Unlock()
	if c.block {
		<-ctx.Done()
		return nil, services.Wrap(services.ErrTimeout, "transcoder", "run", "deadline exceeded", ctx.Err())
	}
	if c.fail != "" && filepath.Base(args[0]) == c.fail {
		return []byte("decoder error"), errors.New("exit status 1")
	}
	return nil, os.WriteFile(args[1], []byte("converted"), 0o644)
}

type verifyAll struct{}

func (verifyAll) Verify(context.Context, string) bool { return true }

func hiRes() audio.Info {
	return audio.Info{Codec: "flac", Channels: 2, SampleRate: 96000, BitDepth: 24, Tags: validTags()}
}

func writeSource(t *testing.T, files ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Source Release")
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newEngine(tools *fakeTools, conv *converter, opts ...Option) *Engine {
	cfg := config.Default()
	cfg.Transcode.Transcoder = "transcoder"
	base := []Option{WithTools(tools), WithExecutor(conv), WithVerifier(verifyAll{}), WithWorkers(2), WithSpectrogramDir("")}
	return New(&cfg, append(base, opts...)...)
}

func target(root string, f format.Format) naming.Target {
	return naming.Target{Format: f, Dir: filepath.Join(root, "Band - Record (2001) [CD - "+f.Name+"]")}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(files)
	return files
}

func TestHiResReleaseEndToEnd(t *testing.T) {
	src := writeSource(t, "01.flac", "02.FLAC", "cover.jpg", "rip.log")
	tools := &fakeTools{infos: map[string]audio.Info{"01.flac": hiRes(), "02.FLAC": hiRes()}}
	conv := &converter{}
	engine := newEngine(tools, conv)
	out := target(t.TempDir(), format.FLAC16)

	tc, err := engine.Prepare(context.Background(), src, []naming.Target{out}, naming.None{})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if tc.Global != To48000 {
		t.Fatalf("expected global 48K, got %v", tc.Global)
	}
	for _, track := range tc.Tracks {
		if track.Resample != To48000 {
			t.Fatalf("expected per-track 48K, got %v for %s", track.Resample, track.Rel)
		}
	}
	if tc.ValidLogs != 1 {
		t.Fatalf("expected 1 valid log, got %d", tc.ValidLogs)
	}

	if err := tc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	got := strings.Join(listFiles(t, out.Dir), ",")
	if got != "01.flac,02.flac,cover.jpg,rip.log" {
		t.Fatalf("unexpected output files: %s", got)
	}
	if len(conv.calls) != 2 {
		t.Fatalf("expected 2 conversions, got %d", len(conv.calls))
	}
	for _, args := range conv.calls {
		if len(args) != 4 || args[2] != "FLAC_16" || args[3] != "48000" {
			t.Fatalf("unexpected transcoder args: %v", args)
		}
	}
	srcInfo, _ := os.Stat(filepath.Join(src, "cover.jpg"))
	dstInfo, _ := os.Stat(filepath.Join(out.Dir, "cover.jpg"))
	if !os.SameFile(srcInfo, dstInfo) {
		t.Fatal("expected extras to be hardlinked")
	}
	if tc.State() != StateCompleted {
		t.Fatalf("expected completed state, got %v", tc.State())
	}
}

func TestExecuteRollsBackOnFailure(t *testing.T) {
	src := writeSource(t, "01.flac", "02.flac", "03.flac", "04.flac", "notes.txt")
	infos := map[string]audio.Info{}
	for _, name := range []string{"01.flac", "02.flac", "03.flac", "04.flac"} {
		infos[name] = hiRes()
	}
	conv := &converter{fail: "03.flac"}
	engine := newEngine(&fakeTools{infos: infos}, conv)
	root := t.TempDir()
	targets := []naming.Target{target(root, format.FLAC16), target(root, format.MP3V0)}

	tc, err := engine.Prepare(context.Background(), src, targets, naming.None{})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	err = tc.Execute(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	for _, target := range targets {
		if _, statErr := os.Stat(target.Dir); !os.IsNotExist(statErr) {
			t.Fatalf("expected %s to be removed, got %v", target.Dir, statErr)
		}
	}
	if tc.State() != StateFailed {
		t.Fatalf("expected failed state, got %v", tc.State())
	}
}

func TestPlanRejectsExistingOutput(t *testing.T) {
	src := writeSource(t, "01.flac")
	engine := newEngine(&fakeTools{infos: map[string]audio.Info{"01.flac": hiRes()}}, &converter{})
	out := target(t.TempDir(), format.FLAC16)
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := engine.Prepare(context.Background(), src, []naming.Target{out}, naming.None{})
	if err == nil || !strings.Contains(err.Error(), "existing folders") {
		t.Fatalf("expected existing folder error, got %v", err)
	}
}

func TestPlanRejectsFLACWithoutResample(t *testing.T) {
	src := writeSource(t, "01.flac", "02.flac")
	engine := newEngine(&fakeTools{}, &converter{})
	_, err := engine.Prepare(context.Background(), src, []naming.Target{target(t.TempDir(), format.FLAC16)}, naming.None{})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "do not require resampling") {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestDiscoverFailures(t *testing.T) {
	tests := []struct {
		name      string
		info      audio.Info
		integrity error
		want      string
	}{
		{"multichannel", audio.Info{Channels: 6, SampleRate: 44100, BitDepth: 16, Tags: validTags()}, nil, "6 channels"},
		{"unsupported rate", audio.Info{Channels: 2, SampleRate: 50000, BitDepth: 24, Tags: validTags()}, nil, "unsupported sample rate"},
		{"missing tags", audio.Info{Channels: 2, SampleRate: 44100, BitDepth: 16, Tags: audio.Tags{}}, nil, "no artist tag"},
		{"corrupt", audio.Info{Channels: 2, SampleRate: 44100, BitDepth: 16, Tags: validTags()}, errors.New("crc mismatch"), "bad source FLAC"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := writeSource(t, "01.flac", "02.flac")
			tools := &fakeTools{
				infos:     map[string]audio.Info{"02.flac": tc.info},
				integrity: map[string]error{"02.flac": tc.integrity},
			}
			_, err := newEngine(tools, &converter{}).Discover(context.Background(), src)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDiscoverRequiresSourceAndTracks(t *testing.T) {
	engine := newEngine(&fakeTools{}, &converter{})
	if _, err := engine.Discover(context.Background(), filepath.Join(t.TempDir(), "missing")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected missing source error, got %v", err)
	}
	if _, err := engine.Discover(context.Background(), writeSource(t, "cover.jpg")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected no tracks error, got %v", err)
	}
}

func TestPlanReportsNamingConflict(t *testing.T) {
	long := strings.Repeat("n", 170) + ".flac"
	src := writeSource(t, long)
	tc, err := newEngine(&fakeTools{infos: map[string]audio.Info{long: hiRes()}}, &converter{}).Discover(context.Background(), src)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	err = tc.Plan(context.Background(), []naming.Target{target(t.TempDir(), format.MP3V0)}, naming.None{})
	var conflict *naming.Conflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected naming conflict, got %v", err)
	}
}

type stemProvider struct {
	naming.None
	stem string
}

func (s stemProvider) FileStem(context.Context, *naming.Conflict, string) string { return s.stem }

func TestPlanRenamesLongExtras(t *testing.T) {
	long := strings.Repeat("x", 170) + ".pdf"
	src := writeSource(t, "01.flac", long)
	tc, err := newEngine(&fakeTools{infos: map[string]audio.Info{"01.flac": hiRes()}}, &converter{}).Discover(context.Background(), src)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	out := target(t.TempDir(), format.MP3V0)
	if err := tc.Plan(context.Background(), []naming.Target{out}, stemProvider{stem: "booklet"}); err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(tc.Extras) != 1 || tc.Extras[0].Output != filepath.Join(out.Dir, "booklet.pdf") {
		t.Fatalf("unexpected extras: %+v", tc.Extras)
	}
}

func TestMixedReleaseCopiesKeptTracks(t *testing.T) {
	src := writeSource(t, "01.flac", "02.flac", "03.flac")
	tools := &fakeTools{infos: map[string]audio.Info{"02.flac": hiRes()}}
	conv := &converter{}
	tc, err := newEngine(tools, conv).Prepare(context.Background(), src, []naming.Target{target(t.TempDir(), format.FLAC16)}, naming.None{})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if tc.Global != Mixed {
		t.Fatalf("expected mixed release, got %v", tc.Global)
	}
	order, groups, someKept := tc.ResampledGroups()
	if len(order) != 1 || order[0] != To48000 || len(groups[To48000]) != 1 || !someKept {
		t.Fatalf("unexpected groups: %v %v %v", order, groups, someKept)
	}
	if err := tc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(conv.calls) != 1 || filepath.Base(conv.calls[0][0]) != "02.flac" {
		t.Fatalf("expected only the hi-res track converted, got %v", conv.calls)
	}
	copied, err := os.ReadFile(filepath.Join(tc.Targets[0].Dir, "01.flac"))
	if err != nil || string(copied) != "01.flac" {
		t.Fatalf("expected kept track copied, got %q (%v)", copied, err)
	}
	if len(tools.tagged) != 3 {
		t.Fatalf("expected tags copied onto 3 outputs, got %d", len(tools.tagged))
	}
}

func TestConversionTimeout(t *testing.T) {
	src := writeSource(t, "01.flac")
	conv := &converter{block: true}
	engine := newEngine(&fakeTools{infos: map[string]audio.Info{"01.flac": hiRes()}}, conv, WithConversionTimeout(20*time.Millisecond))
	out := target(t.TempDir(), format.MP3V0)
	tc, err := engine.Prepare(context.Background(), src, []naming.Target{out}, naming.None{})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if err := tc.Execute(context.Background()); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if _, err := os.Stat(out.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected output removed after timeout, got %v", err)
	}
}

func TestSpectrogramsRenderedPerRelease(t *testing.T) {
	src := writeSource(t, "01.flac")
	specRoot := t.TempDir()
	tc, err := newEngine(&fakeTools{}, &converter{}, WithSpectrogramDir(specRoot)).Discover(context.Background(), src)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	want := filepath.Join(specRoot, "Source Release", "01_full.png")
	if len(tc.Tracks[0].Spectrograms) != 2 || tc.Tracks[0].Spectrograms[0] != want {
		t.Fatalf("unexpected spectrograms: %v", tc.Tracks[0].Spectrograms)
	}
}

func TestExecuteRequiresPlan(t *testing.T) {
	src := writeSource(t, "01.flac")
	tc, err := newEngine(&fakeTools{}, &converter{}).Discover(context.Background(), src)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if err := tc.Execute(context.Background()); !errors.Is(err, errNotPlanned) {
		t.Fatalf("expected not planned error, got %v", err)
	}
}

type recordingStems struct {
	naming.None
	excess []int
}

func (r *recordingStems) FileStem(_ context.Context, conflict *naming.Conflict, _ string) string {
	r.excess = append(r.excess, conflict.Excess())
	return ""
}

func TestPlanPassesExtraConflictToProvider(t *testing.T) {
	long := strings.Repeat("x", 190) + ".pdf"
	src := writeSource(t, "01.flac", long)
	tc, err := newEngine(&fakeTools{infos: map[string]audio.Info{"01.flac": hiRes()}}, &converter{}).Discover(context.Background(), src)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	stems := &recordingStems{}
	err = tc.Plan(context.Background(), []naming.Target{target(t.TempDir(), format.MP3V0)}, stems)
	var conflict *naming.Conflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected naming conflict after the provider gave up, got %v", err)
	}
	if len(stems.excess) != 1 || stems.excess[0] <= 0 {
		t.Fatalf("expected one rename request with a positive excess, got %v", stems.excess)
	}
}

func TestExecuteLeavesOtherReleaseOutputAlone(t *testing.T) {
	root := t.TempDir()
	out := target(root, format.MP3V0)

	prepare := func(conv *converter) *Transcode {
		src := writeSource(t, "01.flac", "02.flac")
		infos := map[string]audio.Info{"01.flac": hiRes(), "02.flac": hiRes()}
		tc, err := newEngine(&fakeTools{infos: infos}, conv).Prepare(context.Background(), src, []naming.Target{out}, naming.None{})
		if err != nil {
			t.Fatalf("Prepare returned error: %v", err)
		}
		return tc
	}
	first := prepare(&converter{})
	second := prepare(&converter{fail: "02.flac"})

	if err := first.Execute(context.Background()); err != nil {
		t.Fatalf("first Execute returned error: %v", err)
	}
	err := second.Execute(context.Background())
	if !errors.Is(err, services.ErrTransient) || !errors.Is(err, errOutputExists) {
		t.Fatalf("expected output-exists error, got %v", err)
	}
	if second.State() != StateFailed {
		t.Fatalf("expected failed state, got %v", second.State())
	}
	second.Cancel()

	if got := strings.Join(listFiles(t, out.Dir), ","); got != "01.mp3,02.mp3" {
		t.Fatalf("first release output was disturbed: %q", got)
	}
}
