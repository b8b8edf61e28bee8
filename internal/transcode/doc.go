// Package transcode turns one lossless source directory into one output
// tree per target format.
//
// A Transcode moves through Discover (probe, validate and classify every
// track under a bounded worker pool), Plan (map tracks and whitelisted
// extras into each target directory, rejecting naming conflicts) and
// Execute (convert every track/format pair under a second pool, then
// hardlink extras). Execute is all-or-nothing: any failure waits for the
// pool to drain and removes every output directory before returning.
package transcode
