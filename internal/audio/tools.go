package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autotrans/internal/services"
)

var (
	spectrogramFullArgs = []string{"-x", "3000", "-y", "513", "-z", "120"}
	spectrogramZoomArgs = []string{"-x", "500", "-y", "1025", "-z", "120", "-S", "1:00", "-d", "0:02"}
)

// mp3TagKeys maps Vorbis comment names to the metadata keys ffmpeg writes as
// ID3v2 frames. Tags outside this set are not carried into MP3 outputs.
var mp3TagKeys = map[string]string{
	"album":        "album",
	"albumartist":  "album_artist",
	"artist":       "artist",
	"comment":      "comment",
	"composer":     "composer",
	"copyright":    "copyright",
	"date":         "date",
	"description":  "comment",
	"discnumber":   "disc",
	"encodedby":    "encoded_by",
	"genre":        "genre",
	"grouping":     "grouping",
	"isrc":         "TSRC",
	"language":     "language",
	"lyricist":     "lyricist",
	"organization": "publisher",
	"originaldate": "TDOR",
	"performer":    "performer",
	"title":        "title",
	"tracknumber":  "track",
	"version":      "TIT3",
}

// CheckIntegrity decodes path with `flac -wt`, failing on any warning.
func (t *Toolkit) CheckIntegrity(ctx context.Context, path string) error {
	if _, err := t.exec.Run(ctx, t.flac, []string{"-wt", path}); err != nil {
		return services.Wrap(services.ErrExternalTool, "integrity", "flac", fmt.Sprintf("integrity check failed for %s", path), err)
	}
	return nil
}

// SpectrogramPath returns the image path for a track, under dir.
func SpectrogramPath(dir, track string, zoom bool) string {
	stem := strings.TrimSuffix(filepath.Base(track), filepath.Ext(track))
	suffix := "full"
	if zoom {
		suffix = "zoom"
	}
	return filepath.Join(dir, strings.ReplaceAll(stem, "#", "")+"_"+suffix+".png")
}

// RenderSpectrograms writes the full and zoomed spectrograms of track into dir.
func (t *Toolkit) RenderSpectrograms(ctx context.Context, dir, track string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "spectrogram", "prepare", "create spectrogram directory", err)
	}
	stem := strings.TrimSuffix(filepath.Base(track), filepath.Ext(track))
	var rendered []string
	for _, zoom := range []bool{false, true} {
		target := SpectrogramPath(dir, track, zoom)
		args := []string{track, "-n", "remix", "1", "spectrogram", "-w", "Kaiser", "-t", stem, "-o", target}
		if zoom {
			args = append(args, spectrogramZoomArgs...)
		} else {
			args = append(args, spectrogramFullArgs...)
		}
		if _, err := t.exec.Run(ctx, t.sox, args); err != nil {
			return rendered, services.Wrap(services.ErrExternalTool, "spectrogram", "sox", track, err)
		}
		rendered = append(rendered, target)
	}
	return rendered, nil
}

// CopyTags copies the scrubbed tags of the FLAC file src onto dst. FLAC
// outputs are rewritten with metaflac; MP3 outputs are remuxed by ffmpeg
// with ID3v2.3 frames and x/y track and disc numbering.
func (t *Toolkit) CopyTags(ctx context.Context, src, dst string) error {
	info, err := t.Probe(ctx, src)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".flac":
		return t.copyFLACTags(ctx, info.Tags, dst)
	case ".mp3":
		return t.copyMP3Tags(ctx, info.Tags, dst)
	default:
		return services.Wrap(services.ErrValidation, "tags", "copy", fmt.Sprintf("unsupported file: %s", dst), nil)
	}
}

// FLACTagArgs returns the metaflac arguments replacing every tag of dst.
func FLACTagArgs(tags Tags, dst string) []string {
	scrubbed := tags.Scrubbed()
	args := []string{"--remove-all-tags"}
	for _, key := range scrubbed.Keys() {
		for _, value := range scrubbed[key] {
			args = append(args, "--set-tag="+strings.ToUpper(key)+"="+value)
		}
	}
	return append(args, dst)
}

func (t *Toolkit) copyFLACTags(ctx context.Context, tags Tags, dst string) error {
	if _, err := t.exec.Run(ctx, t.metaflac, FLACTagArgs(tags, dst)); err != nil {
		return services.Wrap(services.ErrExternalTool, "tags", "metaflac", dst, err)
	}
	return nil
}

// MP3Metadata returns the ffmpeg metadata assignments for an MP3 output.
func MP3Metadata(tags Tags) []string {
	scrubbed := tags.Scrubbed()
	assigned := map[string]string{}
	var order []string
	for _, key := range scrubbed.Keys() {
		target, ok := mp3TagKeys[key]
		if !ok {
			continue
		}
		if _, seen := assigned[target]; seen {
			continue
		}
		assigned[target] = strings.Join(scrubbed[key], "/")
		order = append(order, target)
	}
	if track, ok := assigned["track"]; ok {
		if total := tags.total("totaltracks", "tracktotal"); total != "" {
			assigned["track"] = track + "/" + total
		}
	}
	if disc, ok := assigned["disc"]; ok {
		if total := tags.total("totaldiscs", "disctotal"); total != "" {
			assigned["disc"] = disc + "/" + total
		}
	}
	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, key+"="+assigned[key])
	}
	return out
}

func (t *Toolkit) copyMP3Tags(ctx context.Context, tags Tags, dst string) error {
	tmp := dst + ".tagging"
	args := []string{"-y", "-v", "error", "-i", dst, "-map", "0", "-c", "copy", "-map_metadata", "-1", "-id3v2_version", "3"}
	for _, assignment := range MP3Metadata(tags) {
		args = append(args, "-metadata", assignment)
	}
	args = append(args, "-f", "mp3", tmp)
	if _, err := t.exec.Run(ctx, t.ffmpeg, args); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrExternalTool, "tags", "ffmpeg", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "tags", "replace", dst, err)
	}
	return nil
}
