// Package unfold implements the folded-argument grammar: it turns one
// command string containing bracketed list/range tokens into the ordered
// Cartesian product of concrete command strings.
//
// # Grammar
//
// Two folded-token kinds are recognized:
//
//	list:  [v1 v2 ... vN]   ->  one alternative per space-separated value
//	range: [start:end] or [start:end:step]  -> half-open integer sequence
//
// The range template is tried before the list template at every position,
// since the range grammar is strictly more specific (a fused, greedy
// single regex would let the list pattern swallow range tokens).
//
// # Escaping
//
// A backslash before '[' or ']' suppresses folding of that bracket.
// Escaped brackets are swapped for unambiguous markers before
// tokenization and restored afterward, so the tokenizer's regexes never
// have to special-case backslashes.
//
// # UID substitution
//
// After unfolding, every occurrence of the literal token "{UID}" in a
// resulting command is replaced with the SHA-256 hex digest of that
// command's text *before* substitution. This lets a user reference a
// per-command scratch path from within the command itself.
package unfold
