// Package output renders changes bundles for display or machine consumption.
//
// Four formats are supported:
//   - text: terminal output with a commit table, per-file stats and
//     optionally coloured patches (default)
//   - json: the selected commit or the whole bundle as JSON
//   - yaml: the same document as YAML
//   - markdown: PR-comment-friendly with a collapsible section per file
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*View]. [WriteBundle] handles
// destination selection. [WriteGraph] prints the commit graph in post-order.
package output
