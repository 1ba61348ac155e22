package providers

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"media-forensics/internal/asset"
	"media-forensics/internal/metrics"
)

// Geolocator infers a capture location from landmark recognition.
type Geolocator struct {
	source *VisionSource
}

// NewGeolocator creates the adapter over a shared Vision source.
func NewGeolocator(source *VisionSource) *Geolocator {
	return &Geolocator{source: source}
}

func (g *Geolocator) ID() asset.ProviderID {
	return asset.ProviderGeolocation
}

// Analyze runs landmark detection and keeps the highest-scoring hit that
// carries coordinates.
func (g *Geolocator) Analyze(ctx context.Context, art Artifact) (*Outcome, error) {
	if g.source == nil || !g.source.Enabled() {
		waitSkip(ctx, SkipDelay)
		return &Outcome{
			Skipped:     true,
			Geolocation: &asset.GeolocationResult{Skipped: true},
		}, nil
	}
	if len(art.Bytes) == 0 {
		return nil, NewFailure(FailureInput, fmt.Errorf("no image bytes for %s", art.RecordID))
	}

	start := time.Now()
	defer func() {
		metrics.ProviderDuration.WithLabelValues(string(g.ID())).Observe(time.Since(start).Seconds())
	}()

	resp, err := g.source.annotate(ctx, art.Bytes, visionpb.Feature_LANDMARK_DETECTION, 5)
	if err != nil {
		return nil, err
	}

	res := &asset.GeolocationResult{}
	for _, ann := range resp.LandmarkAnnotations {
		if ann == nil {
			continue
		}
		var lat, lng float64
		ok := false
		for _, loc := range ann.Locations {
			if loc != nil && loc.LatLng != nil {
				lat, lng = loc.LatLng.Latitude, loc.LatLng.Longitude
				ok = true
				break
			}
		}
		if !ok {
			continue
		}
		if !res.Found || float64(ann.Score) > res.Score {
			res.Found = true
			res.Landmark = ann.Description
			res.Latitude = lat
			res.Longitude = lng
			res.Score = float64(ann.Score)
		}
	}

	return &Outcome{Geolocation: res}, nil
}
