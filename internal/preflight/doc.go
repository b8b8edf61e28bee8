// Package preflight provides readiness checks for the filesystem paths,
// external programs and catalog service that autotrans depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before crawling so a missing output tree
//     or a rejected API key fails fast instead of after the first download.
//   - The CLI "autotrans status" command uses individual check functions
//     (CheckCatalogFromConfig, CheckSystemDeps, SnapshotLedger) to display health.
//
// Optional directories are skipped when they are not configured.
package preflight
