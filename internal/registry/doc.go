// Package registry is the in-memory collection of asset records.
//
// The registry is the sole mutable owner of every record. All writes go
// through Update, an atomic read-modify-write keyed by record identifier;
// reads return deep copies. Updates against a deleted identifier are
// discarded, which is how late writes from in-flight async work are dropped
// instead of resurrecting state.
package registry
