// Package canon provides RFC 8785 canonical JSON and content hashes.
//
// Model dumps are stored content-addressed: the same model always
// serializes to the same bytes and therefore the same hash, regardless of
// map iteration order or Unicode normalization of names.
package canon
