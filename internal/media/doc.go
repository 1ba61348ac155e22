// Package media renders preview images for asset records.
//
// Previews are fixed-size JPEGs written into the cache directory; the file
// path is the revocable handle tracked by the registry. Image decoding uses
// libvips when available (decode-time shrinking keeps memory bounded) and
// falls back to pure-Go decoders, then to ffmpeg for formats neither
// understands. Video previews are grabbed with ffmpeg.
package media
