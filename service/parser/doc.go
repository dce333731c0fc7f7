// Package parser extracts structured data from free-text task output.
//
// Strategies are tried in a fixed order: direct JSON, fenced JSON, JSON
// embedded in prose, markdown bullet list, numbered list and key-value lines.
// The first strategy producing a non-empty result wins. Nothing recognised is
// not an error: callers receive an empty map and fall back to the raw text.
package parser
