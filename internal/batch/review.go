package batch

import (
	"context"
	"path/filepath"

	"autotrans/internal/logging"
	"autotrans/internal/report"
	"autotrans/internal/transcode"
)

// rejectedSpectrograms is the ledger reason for releases dropped on review.
const rejectedSpectrograms = "Rejected spectrograms"

// review writes the spectrogram report for the prepared releases and lets
// the operator drop releases. Dropped releases are recorded as permanently
// rejected.
func (c *Controller) review(ctx context.Context, releases []*Release) ([]*Release, []Outcome, error) {
	sections := make([]report.Section, 0, len(releases))
	titles := make([]string, 0, len(releases))
	for _, rel := range releases {
		sections = append(sections, Section(rel.Name, rel.Transcode))
		titles = append(titles, rel.Name)
	}
	path, ok := c.writeReport(sections)
	if !ok || c.console == nil {
		return releases, nil, nil
	}

	dropped, err := report.Review(c.console, path, titles)
	if err != nil {
		return nil, nil, err
	}
	if len(dropped) == 0 {
		return releases, nil, nil
	}
	drop := make(map[int]bool, len(dropped))
	for _, index := range dropped {
		drop[index] = true
	}
	kept := make([]*Release, 0, len(releases)-len(dropped))
	var outcomes []Outcome
	for i, rel := range releases {
		if !drop[i] {
			kept = append(kept, rel)
			continue
		}
		if err := c.ledger.RecordBad(ctx, rel.Group.ID, rel.Item.ID, rejectedSpectrograms); err != nil {
			return nil, nil, err
		}
		c.unclaim(rel.DedupKey)
		outcomes = append(outcomes, Outcome{Name: rel.Name, ItemID: rel.Item.ID, Status: StatusDropped, Reason: rejectedSpectrograms})
	}
	return kept, outcomes, nil
}

// writeReport renders the report when spectrograms were produced. A write
// failure is logged and treated as no report.
func (c *Controller) writeReport(sections []report.Section) (string, bool) {
	dir := c.cfg.Paths.SpectrogramDir
	if dir == "" || report.Empty(sections) {
		return "", false
	}
	c.logger.Info("generating spectrograms report")
	path, err := report.Write(dir, sections)
	if err != nil {
		logging.WarnWithContext(c.logger, "spectrogram report failed", "spectrogram_report_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "releases are processed without review"),
		)
		return "", false
	}
	c.logger.Info("spectrogram report generated", logging.String("path", path))
	return path, true
}

// Section converts a transcode's spectrograms into a report section.
func Section(title string, tc *transcode.Transcode) report.Section {
	section := report.Section{Title: title, ValidLogs: tc.ValidLogs}
	for _, track := range tc.Tracks {
		section.Tracks = append(section.Tracks, report.Track{Name: filepath.ToSlash(track.Rel), Images: track.Spectrograms})
	}
	return section
}
