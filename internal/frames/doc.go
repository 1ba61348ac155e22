// Package frames samples evenly spaced still frames from a video asset.
//
// Each extracted frame is re-encoded to a fixed-size JPEG, given a base64
// form for providers that need inline bytes, and written to the cache
// directory as an owned preview file. Individual seek failures are skipped;
// only a video yielding zero usable frames is an error.
package frames
