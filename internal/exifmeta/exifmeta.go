// Package exifmeta reads embedded technical metadata from image bytes.
//
// The extractor never fails a record: unreadable or absent metadata
// degrades to an unavailable summary.
package exifmeta

import (
	"bytes"
	"sort"
	"strings"

	"media-forensics/internal/asset"
	"media-forensics/internal/logging"
	"media-forensics/internal/mediatypes"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Field groups, in display order.
const (
	groupCamera   = "Camera"
	groupCapture  = "Capture"
	groupLocation = "Location"
	groupOther    = "Other"
)

var groupOrder = map[string]int{
	groupCamera:   0,
	groupCapture:  1,
	groupLocation: 2,
	groupOther:    3,
}

var fieldGroups = map[string]string{
	"Make":             groupCamera,
	"Model":            groupCamera,
	"LensModel":        groupCamera,
	"Software":         groupCamera,
	"DateTime":         groupCapture,
	"DateTimeOriginal": groupCapture,
	"ExposureTime":     groupCapture,
	"FNumber":          groupCapture,
	"ISOSpeedRatings":  groupCapture,
	"FocalLength":      groupCapture,
	"Flash":            groupCapture,
	"PixelXDimension":  groupCapture,
	"PixelYDimension":  groupCapture,
	"Orientation":      groupCapture,
}

// Summarize parses EXIF data out of image bytes and returns the structured
// summary consumed by the metadata capability block.
func Summarize(data []byte) asset.MetadataSummary {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil && exif.IsCriticalError(err) {
		// A recognizable image with no parsable EXIF block had its
		// identifying metadata stripped; anything else is unreadable.
		if mediatypes.SniffKind(data) == mediatypes.KindImage {
			logging.Debug("no exif data: %v", err)
			return asset.MetadataSummary{Available: true, Stripped: true}
		}
		logging.Debug("exif decode failed: %v", err)
		return asset.MetadataSummary{Available: false}
	}
	if err != nil {
		// Partial decode; whatever parsed is still usable.
		logging.Debug("exif decode partial: %v", err)
	}
	if x == nil {
		return asset.MetadataSummary{Available: false}
	}

	collector := &fieldCollector{groups: make(map[string][]asset.MetadataEntry)}
	if err := x.Walk(collector); err != nil {
		logging.Debug("exif walk failed: %v", err)
	}

	sum := asset.MetadataSummary{Available: true}
	if _, _, err := x.LatLong(); err == nil {
		sum.HasGPS = true
	}

	total := 0
	for _, entries := range collector.groups {
		total += len(entries)
	}
	if total == 0 {
		sum.Stripped = true
		return sum
	}

	names := make([]string, 0, len(collector.groups))
	for name := range collector.groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, oj := groupOrder[names[i]], groupOrder[names[j]]
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		entries := collector.groups[name]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		sum.Groups = append(sum.Groups, asset.MetadataGroup{Name: name, Entries: entries})
	}
	return sum
}

type fieldCollector struct {
	groups map[string][]asset.MetadataEntry
}

// Walk implements exif.Walker, flattening each tag into a (key, value) entry.
func (c *fieldCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	key := string(name)
	value := strings.Trim(tag.String(), `"`)
	if value == "" {
		return nil
	}

	group, ok := fieldGroups[key]
	if !ok {
		if strings.HasPrefix(key, "GPS") {
			group = groupLocation
		} else {
			group = groupOther
		}
	}
	c.groups[group] = append(c.groups[group], asset.MetadataEntry{Key: key, Value: value})
	return nil
}
