// Package ir holds the value types shared by every other tally package:
// a sealed set of JSON-compatible values, RFC 8785 canonical encoding and
// domain-separated content hashes.
//
// ir imports nothing internal. Numbers are always int64; floats and null
// are rejected at every boundary so that hashes stay stable across runs.
package ir
