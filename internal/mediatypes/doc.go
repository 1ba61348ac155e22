// Package mediatypes classifies submitted media as image or video from the
// declared MIME type, the filename extension, or leading magic bytes.
package mediatypes
