package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"media-forensics/internal/asset"
	"media-forensics/internal/logging"
	"media-forensics/internal/metrics"
)

// AIDetectorConfig wires the external AI-generation scorer.
type AIDetectorConfig struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	// SkipDelay overrides the default disabled-path delay; zero uses SkipDelay.
	SkipDelay time.Duration
}

// AIDetector submits image bytes to an external scorer and maps the bare
// likelihood to a confidence and a three-level verdict.
type AIDetector struct {
	cfg    AIDetectorConfig
	client *http.Client
}

// NewAIDetector creates the adapter. client may be nil for a default.
func NewAIDetector(cfg AIDetectorConfig, client *http.Client) *AIDetector {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.SkipDelay <= 0 {
		cfg.SkipDelay = SkipDelay
	}
	return &AIDetector{cfg: cfg, client: client}
}

func (d *AIDetector) ID() asset.ProviderID {
	return asset.ProviderAIDetection
}

func (d *AIDetector) enabled() bool {
	return d.cfg.Enabled && d.cfg.Endpoint != "" && d.cfg.APIKey != ""
}

// Analyze scores the artifact. Video assets are scored one frame at a time,
// sequentially; the record-level confidence is promoted from the first
// frame (deterministic policy, matching the product behavior).
func (d *AIDetector) Analyze(ctx context.Context, art Artifact) (*Outcome, error) {
	if !d.enabled() {
		// Disabled or unconfigured is a skipped completion, not a failure.
		waitSkip(ctx, d.cfg.SkipDelay)
		return &Outcome{
			Skipped:     true,
			AIDetection: &asset.AIDetectionResult{Skipped: true},
		}, nil
	}

	start := time.Now()
	defer func() {
		metrics.ProviderDuration.WithLabelValues(string(d.ID())).Observe(time.Since(start).Seconds())
	}()

	inputs := []FrameArtifact{{Index: 0, Bytes: art.Bytes}}
	if len(art.Frames) > 0 {
		inputs = art.Frames
	}
	if len(inputs[0].Bytes) == 0 {
		return nil, NewFailure(FailureInput, fmt.Errorf("no image bytes for %s", art.RecordID))
	}

	// Each score keeps its source frame index; a mid-run failure leaves that
	// index absent rather than shifting later frames' scores down.
	scores := make([]asset.FrameScore, 0, len(inputs))
	for i, f := range inputs {
		prob, err := d.score(ctx, f.Bytes)
		if err != nil {
			if i == 0 {
				// Without the primary frame there is nothing to promote.
				return nil, err
			}
			logging.Warn("ai score failed for %s frame %d: %v", art.RecordID, f.Index, err)
			continue
		}
		scores = append(scores, asset.FrameScore{Index: f.Index, Confidence: prob * 100})
	}
	if len(scores) == 0 {
		return nil, NewFailure(FailureResponse, fmt.Errorf("no frame produced a score"))
	}

	confidence := scores[0].Confidence
	severity, label := asset.VerdictFor(confidence)
	return &Outcome{
		AIDetection: &asset.AIDetectionResult{
			Confidence:  confidence,
			Severity:    severity,
			Label:       label,
			FrameScores: scores,
		},
	}, nil
}

// score uploads one image and extracts the 0-1 likelihood from the
// response body.
func (d *AIDetector) score(ctx context.Context, data []byte) (float64, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("media", "artifact.jpg")
	if err != nil {
		return 0, NewFailure(FailureInput, err)
	}
	if _, err := part.Write(data); err != nil {
		return 0, NewFailure(FailureInput, err)
	}
	if err := mw.Close(); err != nil {
		return 0, NewFailure(FailureInput, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, &body)
	if err != nil {
		return 0, NewFailure(FailureInput, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, NewFailure(FailureNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, NewFailure(FailureNetwork,
			fmt.Errorf("scorer returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)))
	}

	var payload struct {
		Probability *float64 `json:"probability"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, NewFailure(FailureResponse, fmt.Errorf("decode scorer response: %w", err))
	}
	if payload.Probability == nil {
		return 0, NewFailure(FailureResponse, fmt.Errorf("scorer response missing probability"))
	}

	p := *payload.Probability
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, nil
}
