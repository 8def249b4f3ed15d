// Package config loads and merges prchanges configuration from multiple
// sources with spf13/viper.
//
// Precedence (highest to lowest):
//  1. CLI flags, passed to [Load] as overrides
//  2. Environment variables (PRCHANGES_FORMAT, PRCHANGES_CACHE_ENABLED, ...;
//     GITHUB_TOKEN and GITHUB_API_URL are honored as well)
//  3. Config file ($XDG_CONFIG_HOME/prchanges/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Init] to write a default config
// file, and [Set] to update a single key in the config file.
package config
