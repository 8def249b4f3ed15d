// Package cli wires together the Cobra command tree for the prchanges binary.
//
// It defines the root command and all subcommands (changes, graph, config,
// cache, version), binds flags over the loaded configuration, picks the
// GitHub or local git source, runs the bundle builder and maps its outcome
// onto deterministic exit codes.
package cli
