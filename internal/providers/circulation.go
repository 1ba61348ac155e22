package providers

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"media-forensics/internal/asset"
	"media-forensics/internal/metrics"
)

// maxTopPages bounds how many matching pages are kept on the record.
const maxTopPages = 5

// CirculationSearcher finds prior web circulation of an image via Vision
// web detection.
type CirculationSearcher struct {
	source *VisionSource
}

// NewCirculationSearcher creates the adapter over a shared Vision source.
func NewCirculationSearcher(source *VisionSource) *CirculationSearcher {
	return &CirculationSearcher{source: source}
}

func (c *CirculationSearcher) ID() asset.ProviderID {
	return asset.ProviderCirculation
}

// Analyze runs web detection against the primary image.
func (c *CirculationSearcher) Analyze(ctx context.Context, art Artifact) (*Outcome, error) {
	if c.source == nil || !c.source.Enabled() {
		waitSkip(ctx, SkipDelay)
		return &Outcome{
			Skipped:     true,
			Circulation: &asset.CirculationResult{Skipped: true},
		}, nil
	}
	if len(art.Bytes) == 0 {
		return nil, NewFailure(FailureInput, fmt.Errorf("no image bytes for %s", art.RecordID))
	}

	start := time.Now()
	defer func() {
		metrics.ProviderDuration.WithLabelValues(string(c.ID())).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.source.annotate(ctx, art.Bytes, visionpb.Feature_WEB_DETECTION, 20)
	if err != nil {
		return nil, err
	}

	web := resp.WebDetection
	if web == nil {
		return &Outcome{Circulation: &asset.CirculationResult{}}, nil
	}

	res := &asset.CirculationResult{
		MatchingPages:  len(web.PagesWithMatchingImages),
		FullMatches:    len(web.FullMatchingImages),
		PartialMatches: len(web.PartialMatchingImages),
	}
	for _, page := range web.PagesWithMatchingImages {
		if page == nil || page.Url == "" {
			continue
		}
		res.TopPages = append(res.TopPages, asset.PageMatch{
			URL:   page.Url,
			Title: page.PageTitle,
		})
		if len(res.TopPages) >= maxTopPages {
			break
		}
	}
	for _, label := range web.BestGuessLabels {
		if label != nil && label.Label != "" {
			res.BestGuess = label.Label
			break
		}
	}

	return &Outcome{Circulation: res}, nil
}
