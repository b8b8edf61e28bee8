// Package catalog talks to the cataloging service that lists releases,
// accepts uploads and serves bundle files.
//
// Client is the narrow surface the batch controller consumes; HTTPClient
// implements it against the service's ajax.php JSON API with request pacing,
// paging, HTML-entity unescaping and envelope validation. The package also
// owns the catalog rules that are pure functions of fetched metadata:
// grouping keys, sibling format discovery and URL parsing. Bundler wraps the
// external bundle-file builder.
package catalog
