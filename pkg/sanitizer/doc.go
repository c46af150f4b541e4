// Package sanitizer normalizes user input before validation and storage.
//
// All functions are idempotent: applying them twice gives the same result.
// Invalid input yields an empty string rather than an error, so the validator
// reports it as a missing or malformed field.
//
// Normalization includes:
//   - Phone numbers: E.164 (+[country][number]), parsed against a default region
//   - Plates: upper-case, single spaces ("b 7001  xyz" becomes "B 7001 XYZ")
//   - Names, addresses and descriptions: collapsed whitespace, trimmed
//   - E-mail: trimmed, lower-case
package sanitizer
