// Package report renders the spectrogram review page for prepared releases.
//
// Each release contributes one section listing, per track, the full and
// zoomed spectrogram images produced during discovery. Image sources are
// written relative to the report so the spectrogram directory can be moved
// or served as a whole.
package report
