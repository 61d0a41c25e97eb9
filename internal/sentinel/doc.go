// Package sentinel provides a const-declarable error type.
//
// Errors declared with errors.New are package-level variables that can be
// reassigned. Error is a string-backed type instead, so sentinel errors can
// be declared as const and stay immutable. Being comparable, Error works
// with errors.Is through wrapped chains without an Is method.
package sentinel
