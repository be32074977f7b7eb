// Package pose provides PoseProvider adapters for the annotation pipeline.
package pose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/angus-lau/workout-form-optimizer/internal/domain/entity"
)

// HTTPProvider talks to an external pose-estimation service. The
// constructor probes the service's health endpoint so a returned provider
// is always ready; there is no separate loaded/unloaded state to check
// before each call.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string) (*HTTPProvider, error) {
	p := &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	resp, err := p.client.Get(baseURL + "/healthz")
	if err != nil {
		return nil, fmt.Errorf("pose service unavailable at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pose service unavailable at %s: status %d", baseURL, resp.StatusCode)
	}

	return p, nil
}

type poseResponse struct {
	Detected bool                 `json:"detected"`
	Joints   map[string][]float64 `json:"joints"`
}

// EstimatePose sends the JPEG-encoded frame to the service and decodes the
// returned landmark map. Joint keys absent from the response stay absent
// in the pose; the engine downstream tolerates any partial result.
func (p *HTTPProvider) EstimatePose(ctx context.Context, frame gocv.Mat) (entity.PoseFrame, bool, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, false, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/pose", bytes.NewReader(buf.GetBytes()))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("pose request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("pose service status %d: %s", resp.StatusCode, body)
	}

	var pr poseResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, false, fmt.Errorf("decode pose response: %w", err)
	}
	if !pr.Detected {
		return nil, false, nil
	}

	pose := make(entity.PoseFrame, len(pr.Joints))
	for name, coords := range pr.Joints {
		pose[name] = entity.JointPoint(coords)
	}
	return pose, true, nil
}
