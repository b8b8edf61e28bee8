package eligibility

import (
	"strings"
	"testing"
	"time"

	"autotrans/internal/catalog"
	"autotrans/internal/format"
)

func intPtr(v int) *int { return &v }

func baseRelease() catalog.Release {
	item := catalog.Item{
		ID:           10,
		Media:        "CD",
		Encoding:     "Lossless",
		RemasterYear: intPtr(2001),
		Time:         "2020-01-01 00:00:00",
	}
	return catalog.Release{Group: catalog.Group{ID: 1, Name: "Album"}, Item: item, Siblings: []catalog.Item{item}}
}

func baseCriteria() Criteria {
	return Criteria{
		AllowedMedia: map[string]struct{}{"CD": {}, "WEB": {}},
		Formats:      format.NewSet(format.MP3V0, format.MP3320),
	}
}

func TestEvaluatePriorityOrder(t *testing.T) {
	cutoff := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		mutate func(*catalog.Release, *Criteria)
		kind   Kind
		reason string
	}{
		{"unknown year beats media", func(r *catalog.Release, _ *Criteria) {
			r.Item.RemasterYear = intPtr(0)
			r.Item.Media = "Cassette"
		}, Reject, "unknown release"},
		{"lossy master", func(r *catalog.Release, _ *Criteria) { r.Item.LossyWebApproved = true }, Reject, "lossy master"},
		{"lossy encoding", func(r *catalog.Release, _ *Criteria) { r.Item.Encoding = "320" }, Reject, "not lossless"},
		{"unknown encoding", func(r *catalog.Release, _ *Criteria) { r.Item.Encoding = "Opus" }, Reject, "not lossless"},
		{"trumpable", func(r *catalog.Release, _ *Criteria) { r.Item.Trumpable = true }, Reject, "reported or trumpable"},
		{"media", func(r *catalog.Release, _ *Criteria) { r.Item.Media = "Vinyl" }, Reject, "disallowed media (Vinyl)"},
		{"bad log", func(r *catalog.Release, _ *Criteria) {
			r.Item.HasLog = true
			r.Item.LogScore = 99
		}, Reject, "bad log"},
		{"log without score requirement", func(r *catalog.Release, _ *Criteria) {
			r.Item.HasLog = true
			r.Item.LogScore = 100
		}, Eligible, ""},
		{"too recent", func(_ *catalog.Release, c *Criteria) { c.Cutoff = &cutoff }, Defer, "too recent"},
		{"bad log beats recent", func(r *catalog.Release, c *Criteria) {
			r.Item.HasLog = true
			c.Cutoff = &cutoff
		}, Reject, "bad log"},
		{"all formats present", func(r *catalog.Release, _ *Criteria) {
			sib := r.Item
			sib.ID = 11
			sib.Encoding = "V0 (VBR)"
			sib2 := sib
			sib2.ID = 12
			sib2.Encoding = "320"
			r.Siblings = append(r.Siblings, sib, sib2)
		}, Done, "no formats needed"},
		{"no media allowed", func(_ *catalog.Release, c *Criteria) { c.AllowedMedia = nil }, Reject, "disallowed media"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			release := baseRelease()
			criteria := baseCriteria()
			tc.mutate(&release, &criteria)
			got := Evaluate(release, "Album (url)", criteria)
			if got.Kind != tc.kind {
				t.Fatalf("expected %s, got %s (%s)", tc.kind, got.Kind, got.Reason)
			}
			if !strings.Contains(got.Reason, tc.reason) {
				t.Fatalf("expected reason containing %q, got %q", tc.reason, got.Reason)
			}
		})
	}
}

func TestEvaluateDeferCarriesCreationTime(t *testing.T) {
	release := baseRelease()
	cutoff := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	criteria := baseCriteria()
	criteria.Cutoff = &cutoff

	got := Evaluate(release, "Album", criteria)
	if got.Kind != Defer || got.CreatedAt == nil || !got.CreatedAt.Equal(cutoff) {
		t.Fatalf("expected defer at the cutoff instant, got %+v", got)
	}

	later := cutoff.Add(time.Second)
	criteria.Cutoff = &later
	if got := Evaluate(release, "Album", criteria); got.Kind != Eligible {
		t.Fatalf("expected eligible once cutoff passes creation, got %s", got.Kind)
	}
}

func TestEvaluateEligibleFormats(t *testing.T) {
	release := baseRelease()
	sib := release.Item
	sib.ID = 11
	sib.Encoding = "320"
	release.Siblings = append(release.Siblings, sib)

	got := Evaluate(release, "Album", baseCriteria())
	if got.Kind != Eligible {
		t.Fatalf("expected eligible, got %s (%s)", got.Kind, got.Reason)
	}
	if names := got.Formats.Names(); len(names) != 1 || names[0] != "MP3_V0" {
		t.Fatalf("unexpected formats %v", names)
	}
	if got.Source != format.FLAC16 {
		t.Fatalf("expected FLAC_16 source, got %v", got.Source)
	}
}

func TestEvaluateAllowsNilRemasterYear(t *testing.T) {
	release := baseRelease()
	release.Item.RemasterYear = nil
	if got := Evaluate(release, "Album", baseCriteria()); got.Kind != Eligible {
		t.Fatalf("expected eligible for missing remaster year, got %s (%s)", got.Kind, got.Reason)
	}
}
