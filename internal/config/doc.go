// Package config loads, normalizes, and validates autotrans configuration.
//
// Load resolves the config file (explicit path, ~/.config/autotrans/config.toml,
// or ./autotrans.toml), decodes TOML on top of Default(), expands user paths,
// applies environment overrides such as AUTOTRANS_API_KEY and validates the
// result. Accessors translate raw values into the types the pipeline needs:
// format sets, media allow-sets, the creation cutoff and worker counts.
package config
