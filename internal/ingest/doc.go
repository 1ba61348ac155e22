// Package ingest turns uploaded files and submitted links into registered
// asset records: it classifies the media, retains the source bytes on disk,
// renders a preview, and drives the cosmetic upload progress counter.
package ingest
