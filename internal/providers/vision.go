package providers

import (
	"context"
	"fmt"
	"sync"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"media-forensics/internal/logging"
)

// VisionConfig wires the Google Cloud Vision backend shared by the
// circulation and geolocation adapters.
type VisionConfig struct {
	Enabled bool
	// CredentialsFile is the service-account JSON path; empty falls back to
	// ambient application-default credentials.
	CredentialsFile string
}

// VisionSource owns a single lazily constructed ImageAnnotatorClient.
// Construction happens on first use behind a guard so concurrent callers
// share one initialization; the client lives for the process lifetime.
type VisionSource struct {
	cfg VisionConfig

	once   sync.Once
	client *vision.ImageAnnotatorClient
	err    error
}

// NewVisionSource creates the source. No connection is made until an
// adapter first needs the client.
func NewVisionSource(cfg VisionConfig) *VisionSource {
	return &VisionSource{cfg: cfg}
}

// Enabled reports whether the Vision backend is configured for use.
func (s *VisionSource) Enabled() bool {
	return s.cfg.Enabled
}

func (s *VisionSource) get(ctx context.Context) (*vision.ImageAnnotatorClient, error) {
	s.once.Do(func() {
		var opts []option.ClientOption
		if s.cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(s.cfg.CredentialsFile))
		}
		s.client, s.err = vision.NewImageAnnotatorClient(context.Background(), opts...)
		if s.err != nil {
			s.err = fmt.Errorf("vision client: %w", s.err)
			return
		}
		logging.Info("vision client initialized")
	})
	_ = ctx
	return s.client, s.err
}

// annotate runs one request with a single feature against one image.
func (s *VisionSource) annotate(ctx context.Context, img []byte, feature visionpb.Feature_Type, maxResults int32) (*visionpb.AnnotateImageResponse, error) {
	client, err := s.get(ctx)
	if err != nil {
		return nil, NewFailure(FailureNetwork, err)
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: img},
				Features: []*visionpb.Feature{
					{Type: feature, MaxResults: maxResults},
				},
			},
		},
	}

	resp, err := client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, NewFailure(FailureNetwork, fmt.Errorf("vision annotate: %w", err))
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, NewFailure(FailureResponse, fmt.Errorf("vision returned no responses"))
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, NewFailure(FailureResponse, fmt.Errorf("vision annotate error: %s", r0.Error.Message))
	}
	return r0, nil
}

// Close releases the client if it was ever constructed.
func (s *VisionSource) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
