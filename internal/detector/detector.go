package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"oddeven-service/internal/domain/capture"
)

// Detector locates candidate plate regions in an image. Implementations
// return regions ordered by descending confidence; an empty slice means no
// plate was found and is not an error.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]capture.Region, error)
}

// HTTPDetector posts the image to an inference endpoint and decodes its
// bounding-box response.
type HTTPDetector struct {
	endpoint      string
	minConfidence float64
	client        *http.Client
}

func NewHTTPDetector(endpoint string, minConfidence float64, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		endpoint:      endpoint,
		minConfidence: minConfidence,
		client:        &http.Client{Timeout: timeout},
	}
}

type detectionResponse struct {
	Detections []struct {
		X          int     `json:"x"`
		Y          int     `json:"y"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		Confidence float64 `json:"confidence"`
	} `json:"detections"`
}

func (d *HTTPDetector) Detect(ctx context.Context, image []byte) ([]capture.Region, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "capture.jpg")
	if err != nil {
		return nil, fmt.Errorf("build detector request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("build detector request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build detector request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build detector request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned %d: %s", resp.StatusCode, payload)
	}

	var decoded detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}

	regions := make([]capture.Region, 0, len(decoded.Detections))
	for _, det := range decoded.Detections {
		if det.Confidence < d.minConfidence {
			continue
		}
		regions = append(regions, capture.Region{
			X:          det.X,
			Y:          det.Y,
			Width:      det.Width,
			Height:     det.Height,
			Confidence: det.Confidence,
		})
	}
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Confidence > regions[j].Confidence
	})
	return regions, nil
}
