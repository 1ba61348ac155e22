// Package database persists a durable history of completed analyses.
//
// The live asset registry is in-memory only; this SQLite store keeps a
// compact summary row per finished analysis so results survive restarts
// and can be listed after the record itself is deleted.
package database
