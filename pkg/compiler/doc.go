// Package compiler implements the front end for a small C-like language:
// a buffered lexer, a recursive descent parser with a fixed lookahead ring,
// and a single-pass semantic analyzer that resolves types and folds constant
// array sizes. Compile runs the three phases in order and returns either a
// fully typed tree or a *Diagnostic pinpointing the first failure.
package compiler
