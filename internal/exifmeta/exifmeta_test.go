package exifmeta

import (
	"strings"
	"testing"
)

func TestSummarizeGarbage(t *testing.T) {
	sum := Summarize([]byte("definitely not an image"))
	if sum.Available {
		t.Error("expected unavailable summary for garbage input")
	}
	if sum.HasGPS || sum.Stripped || len(sum.Groups) != 0 {
		t.Errorf("expected empty summary, got %+v", sum)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	if sum.Available {
		t.Error("expected unavailable summary for empty input")
	}
}

func TestSummarizeStrippedJPEG(t *testing.T) {
	// Minimal JPEG header with no EXIF segment: recognizable image, no
	// identifying metadata.
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	sum := Summarize(data)
	if !sum.Available {
		t.Fatal("expected available summary for a recognizable image")
	}
	if !sum.Stripped {
		t.Error("expected stripped=true for a JPEG with no EXIF block")
	}
	if sum.HasGPS {
		t.Error("expected hasGps=false")
	}
}

func TestFieldGroupAssignment(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"Make", groupCamera},
		{"Model", groupCamera},
		{"DateTimeOriginal", groupCapture},
		{"FNumber", groupCapture},
		{"GPSLatitude", groupLocation},
		{"GPSAltitudeRef", groupLocation},
		{"SomethingObscure", groupOther},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := fieldGroups[tt.field]
			if !ok {
				if strings.HasPrefix(tt.field, "GPS") {
					got = groupLocation
				} else {
					got = groupOther
				}
			}
			if got != tt.want {
				t.Errorf("group for %s = %s, want %s", tt.field, got, tt.want)
			}
		})
	}
}

func TestGroupOrderStable(t *testing.T) {
	if groupOrder[groupCamera] >= groupOrder[groupCapture] {
		t.Error("camera group should sort before capture")
	}
	if groupOrder[groupLocation] >= groupOrder[groupOther] {
		t.Error("location group should sort before other")
	}
}
