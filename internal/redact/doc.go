// Package redact masks secrets in patch bodies before they are printed or
// written out.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens and provider-specific tokens (GitHub, Slack and others).
//
// Path-based redaction is also supported: patches of files whose paths match
// configured glob patterns have their entire body replaced with [REDACTED]
// rather than being scanned line by line.
package redact
