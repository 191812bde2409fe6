// Package sanitizer normalizes user supplied text before it is validated,
// compared or stored.
//
// Every function is idempotent and never fails: input that cannot be
// normalized comes back empty.
//
//   - Phone numbers: E.164 ("+201001234567")
//   - Free text: whitespace collapsed and trimmed
//   - Slugs and tags: lowercase, words joined by "-" ("Old Town" becomes "old-town")
//   - Slices: normalized, then blanks and duplicates dropped
package sanitizer
