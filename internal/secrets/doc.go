// Package secrets redacts credentials from free text using the Gitleaks
// detector.
//
// Planner runs every goal through a Redactor before it is embedded in a
// prompt, so tokens pasted into a goal never reach the model provider.
// Matches are replaced with [REDACTED:<rule-id>] markers. An optional TOML
// allowlist (same layout as a .gitleaks.toml [allowlist] table) suppresses
// known-safe values. ReloadingRedactor watches that file and swaps in new
// rules when it changes.
package secrets
