package transcode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"autotrans/internal/audio"
	"autotrans/internal/format"
	"autotrans/internal/logcheck"
	"autotrans/internal/logging"
	"autotrans/internal/naming"
	"autotrans/internal/services"
)

// ExtrasWarnSize is the total size of extra files above which a warning is
// logged.
const ExtrasWarnSize = 1 << 20

// maxStemAttempts bounds renames of a single extra file.
const maxStemAttempts = 5

// extraExtensions lists the non-audio files carried into every output tree.
var extraExtensions = map[string]bool{
	".cue": true, ".gif": true, ".jpeg": true, ".jpg": true, ".log": true, ".md5": true,
	".nfo": true, ".pdf": true, ".png": true, ".sfv": true, ".txt": true,
}

// State is the lifecycle position of a Transcode.
type State int

const (
	StateDiscovered State = iota
	StatePlanned
	StateExecuting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StatePlanned:
		return "planned"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Output is one planned converted file.
type Output struct {
	Format format.Format
	Path   string
}

// Track is a validated source track.
type Track struct {
	Input        string
	Rel          string
	Info         audio.Info
	Resample     Resample
	Spectrograms []string
	Outputs      []Output
}

// Name returns the track's file name.
func (t Track) Name() string { return filepath.Base(t.Input) }

// Extra is a non-audio file hardlinked into an output tree.
type Extra struct {
	Source string
	Output string
}

// Transcode is one release's conversion job.
type Transcode struct {
	engine *Engine
	logger *slog.Logger

	SourceDir      string
	SpectrogramDir string
	ValidLogs      int
	Tracks         []Track
	Global         Resample
	Targets        []naming.Target
	Extras         []Extra
	state          State
	created        []string
}

// State returns the current lifecycle state.
func (t *Transcode) State() State { return t.state }

// Prepare discovers sourceDir and plans it into targets.
func (e *Engine) Prepare(ctx context.Context, sourceDir string, targets []naming.Target, stems naming.OverrideProvider) (*Transcode, error) {
	tc, err := e.Discover(ctx, sourceDir)
	if err != nil {
		return nil, err
	}
	if err := tc.Plan(ctx, targets, stems); err != nil {
		return nil, err
	}
	return tc, nil
}

// Discover validates every track under sourceDir and makes the global
// resample decision. Any failing track fails the whole release.
func (e *Engine) Discover(ctx context.Context, sourceDir string) (*Transcode, error) {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "discover", "source", fmt.Sprintf("source directory does not exist: %s", sourceDir), err)
	}

	tc := &Transcode{
		engine:    e,
		logger:    logging.WithContext(ctx, e.logger),
		SourceDir: sourceDir,
	}
	if e.spectrogramDir != "" {
		tc.SpectrogramDir = filepath.Join(e.spectrogramDir, filepath.Base(sourceDir))
	}

	logs, err := findFiles(sourceDir, func(ext string) bool { return ext == ".log" })
	if err != nil {
		return nil, err
	}
	tc.ValidLogs = logcheck.CountVerified(ctx, e.verifier, logs)

	paths, err := findFiles(sourceDir, func(ext string) bool { return ext == ".flac" })
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrValidation, "discover", "tracks", fmt.Sprintf("no FLAC tracks in %s", sourceDir), nil)
	}

	tracks := make([]Track, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			track, err := tc.discoverTrack(gctx, path)
			if err != nil {
				return err
			}
			tracks[i] = track
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decisions := make([]Resample, len(tracks))
	for i, track := range tracks {
		decisions[i] = track.Resample
	}
	tc.Tracks = tracks
	tc.Global = GlobalDecision(decisions)
	tc.state = StateDiscovered
	tc.logger.Debug("discovery complete",
		logging.String("source", sourceDir),
		logging.Int("tracks", len(tracks)),
		logging.Int("valid_logs", tc.ValidLogs),
		logging.String("global_resample", tc.Global.String()),
	)
	return tc, nil
}

func (t *Transcode) discoverTrack(ctx context.Context, path string) (Track, error) {
	e := t.engine
	rel, err := filepath.Rel(t.SourceDir, path)
	if err != nil {
		return Track{}, fmt.Errorf("relative track path: %w", err)
	}
	track := Track{Input: path, Rel: rel}

	if t.SpectrogramDir != "" {
		images, err := e.tools.RenderSpectrograms(ctx, t.SpectrogramDir, path)
		if err != nil {
			return Track{}, err
		}
		track.Spectrograms = images
	}

	info, err := e.tools.Probe(ctx, path)
	if err != nil {
		return Track{}, err
	}
	if info.Channels > 2 {
		return Track{}, services.Wrap(services.ErrValidation, "discover", "channels",
			fmt.Sprintf("track %s has %d channels, which is not supported", path, info.Channels), nil)
	}
	if err := info.Tags.Check(false, t.logger); err != nil {
		return Track{}, fmt.Errorf("tag check failed on track %s: %w", path, err)
	}
	if err := e.tools.CheckIntegrity(ctx, path); err != nil {
		return Track{}, fmt.Errorf("bad source FLAC %s: %w", path, err)
	}
	track.Info = info
	if track.Resample, err = DecideResample(info.BitDepth, info.SampleRate); err != nil {
		return Track{}, fmt.Errorf("track %s: %w", path, err)
	}
	if err := naming.CheckPath(t.SourceDir, path); err != nil {
		logging.WarnWithContext(t.logger, "source path violates naming rules", "source_path_invalid",
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, err.Error()),
			logging.String(logging.FieldImpact, "output names are validated separately"),
		)
	}
	return track, nil
}

// Plan maps every track and extra file into targets. A naming violation is
// returned as a *naming.Conflict so a naming.Resolver can retry with
// shorter names; stems may rename individual extra files first.
func (t *Transcode) Plan(ctx context.Context, targets []naming.Target, stems naming.OverrideProvider) error {
	if t.state != StateDiscovered && t.state != StatePlanned {
		return services.Wrap(services.ErrValidation, "plan", "state", "cannot plan a "+t.state.String()+" transcode", nil)
	}
	var existing []string
	for _, target := range targets {
		if _, err := os.Lstat(target.Dir); err == nil {
			existing = append(existing, target.Dir)
		}
	}
	if len(existing) > 0 {
		return services.Wrap(services.ErrValidation, "plan", "outputs",
			"cannot transcode into existing folders: "+strings.Join(existing, ", "), nil)
	}

	tracks := make([]Track, len(t.Tracks))
	copy(tracks, t.Tracks)
	for i := range tracks {
		outputs := make([]Output, 0, len(targets))
		for _, target := range targets {
			out := filepath.Join(target.Dir, strings.TrimSuffix(tracks[i].Rel, filepath.Ext(tracks[i].Rel))+target.Format.Ext)
			if err := naming.CheckPath(target.Dir, out); err != nil {
				return err
			}
			outputs = append(outputs, Output{Format: target.Format, Path: out})
		}
		tracks[i].Outputs = outputs
	}

	extras, err := t.planExtras(ctx, targets, stems)
	if err != nil {
		return err
	}

	if t.Global == Keep {
		for _, target := range targets {
			if target.Format == format.FLAC16 {
				return services.Wrap(services.ErrValidation, "plan", "invariant",
					"source files do not require resampling, transcoding into FLAC is invalid", nil)
			}
		}
	}

	t.Tracks = tracks
	t.Targets = append([]naming.Target(nil), targets...)
	t.Extras = extras
	t.state = StatePlanned
	return nil
}

func (t *Transcode) planExtras(ctx context.Context, targets []naming.Target, stems naming.OverrideProvider) ([]Extra, error) {
	files, err := findFiles(t.SourceDir, func(ext string) bool { return extraExtensions[ext] })
	if err != nil {
		return nil, err
	}
	var total int64
	for _, file := range files {
		if info, err := os.Stat(file); err == nil {
			total += info.Size()
		}
	}
	if total > ExtrasWarnSize {
		logging.WarnWithContext(t.logger, "additional files are large", "extras_large",
			logging.String("size", humanize.IBytes(uint64(total))),
			logging.String(logging.FieldImpact, "extras are still linked into every output"),
		)
	}

	var extras []Extra
	for _, file := range files {
		rel, err := filepath.Rel(t.SourceDir, file)
		if err != nil {
			return nil, fmt.Errorf("relative extra path: %w", err)
		}
		ext := filepath.Ext(rel)
		stem := strings.TrimSuffix(filepath.Base(rel), ext)
		for attempt := 1; ; attempt++ {
			planned, err := extraOutputs(targets, rel, stem+ext)
			if err == nil {
				for _, out := range planned {
					extras = append(extras, Extra{Source: file, Output: out})
				}
				break
			}
			var conflict *naming.Conflict
			if !errors.As(err, &conflict) || stems == nil || attempt >= maxStemAttempts {
				return nil, err
			}
			next := stems.FileStem(ctx, conflict, filepath.Base(rel))
			if next == "" {
				t.logger.Warn("no file rename provided, the release folder will be renamed instead",
					logging.String("file", rel))
				return nil, conflict
			}
			stem = next
		}
	}
	return extras, nil
}

func extraOutputs(targets []naming.Target, rel, name string) ([]string, error) {
	outputs := make([]string, 0, len(targets))
	for _, target := range targets {
		out := filepath.Join(target.Dir, filepath.Dir(rel), name)
		if err := naming.CheckPath(target.Dir, out); err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// findFiles walks root and returns the files whose lower-cased extension
// matches, in lexical order.
func findFiles(root string, match func(ext string) bool) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if match(strings.ToLower(filepath.Ext(path))) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "discover", "walk", root, err)
	}
	sort.Strings(found)
	return found, nil
}

// ResampledGroups returns the non-Keep decisions present in a Mixed release,
// with their tracks, in ascending rate order.
func (t *Transcode) ResampledGroups() ([]Resample, map[Resample][]Track, bool) {
	groups := map[Resample][]Track{}
	var order []Resample
	someKept := false
	for _, track := range t.Tracks {
		if track.Resample == Keep {
			someKept = true
			continue
		}
		if _, ok := groups[track.Resample]; !ok {
			order = append(order, track.Resample)
		}
		groups[track.Resample] = append(groups[track.Resample], track)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return order, groups, someKept
}

var (
	errNotPlanned   = errors.New("transcode is not planned")
	errOutputExists = errors.New("output directory already exists")
)
