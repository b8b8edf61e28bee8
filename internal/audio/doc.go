// Package audio wraps the external audio tools used while preparing a
// release: ffprobe for stream facts and tags, flac for integrity checks,
// sox for spectrograms, and metaflac/ffmpeg for copying tags onto
// converted tracks.
//
// Key types:
//   - Toolkit: binary paths plus the injectable executor
//   - Info: probe result (channels, sample rate, bit depth, tags)
//   - Tags: case-insensitive tag map with the validation rules applied to
//     sources and outputs
//
// Every tool is invoked through toolexec.Executor so tests can stub them.
package audio
