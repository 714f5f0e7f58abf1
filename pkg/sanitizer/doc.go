// Package sanitizer normalizes free text before validation and storage.
//
// All functions are idempotent and never fail; input that cannot be cleaned
// comes back empty so the validator rejects it.
package sanitizer
