package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"oddeven-service/internal/domain/capture"
)

// ErrExtractionFailed covers every way the OCR vendor can fail to return
// usable text: transport errors, vendor-side errors, empty parses. The
// pipeline degrades these to an UNDETERMINED record instead of aborting.
var ErrExtractionFailed = errors.New("text extraction failed")

// TextExtractor reads the plate text out of a detected region.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, region capture.Region) (capture.Extraction, error)
}

// SpaceClient calls the OCR.Space parse endpoint. The API key is injected
// at construction, never read from the environment inside pipeline code.
type SpaceClient struct {
	endpoint string
	apiKey   string
	language string
	engine   int
	client   *http.Client
}

func NewSpaceClient(endpoint, apiKey, language string, engine int, timeout time.Duration) *SpaceClient {
	return &SpaceClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		language: language,
		engine:   engine,
		client:   &http.Client{Timeout: timeout},
	}
}

type spaceResponse struct {
	ParsedResults []struct {
		ParsedText          string  `json:"ParsedText"`
		FileParseExitCode   int     `json:"FileParseExitCode"`
		ErrorMessage        string  `json:"ErrorMessage"`
		MeanConfidenceLevel float64 `json:"MeanConfidenceLevel"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	ErrorMessage          any  `json:"ErrorMessage"`
}

func (c *SpaceClient) ExtractText(ctx context.Context, img []byte, region capture.Region) (capture.Extraction, error) {
	crop := cropToRegion(img, region)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"apikey":            c.apiKey,
		"language":          c.language,
		"OCREngine":         strconv.Itoa(c.engine),
		"detectOrientation": "true",
		"isOverlayRequired": "false",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return capture.Extraction{}, fmt.Errorf("%w: build request: %v", ErrExtractionFailed, err)
		}
	}
	part, err := w.CreateFormFile("file", "plate.jpg")
	if err != nil {
		return capture.Extraction{}, fmt.Errorf("%w: build request: %v", ErrExtractionFailed, err)
	}
	if _, err := part.Write(crop); err != nil {
		return capture.Extraction{}, fmt.Errorf("%w: build request: %v", ErrExtractionFailed, err)
	}
	if err := w.Close(); err != nil {
		return capture.Extraction{}, fmt.Errorf("%w: build request: %v", ErrExtractionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return capture.Extraction{}, fmt.Errorf("%w: build request: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return capture.Extraction{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return capture.Extraction{}, fmt.Errorf("%w: vendor returned %d", ErrExtractionFailed, resp.StatusCode)
	}

	var decoded spaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return capture.Extraction{}, fmt.Errorf("%w: decode response: %v", ErrExtractionFailed, err)
	}
	if decoded.IsErroredOnProcessing || len(decoded.ParsedResults) == 0 {
		return capture.Extraction{}, fmt.Errorf("%w: vendor error: %v", ErrExtractionFailed, decoded.ErrorMessage)
	}

	best := decoded.ParsedResults[0]
	text := strings.TrimSpace(best.ParsedText)
	if best.FileParseExitCode != 1 || text == "" {
		return capture.Extraction{}, fmt.Errorf("%w: empty parse", ErrExtractionFailed)
	}

	confidence := best.MeanConfidenceLevel
	if confidence > 1 {
		confidence /= 100
	}
	return capture.Extraction{Text: text, Confidence: confidence}, nil
}

type subImager interface {
	SubImage(image.Rectangle) image.Image
}

// cropToRegion cuts the detected plate region out of the capture so only
// the plate itself reaches the OCR vendor. When the region is empty or
// the bytes do not decode as an image the original upload is used
// unchanged; a bad crop must not turn a readable capture into a failure.
func cropToRegion(img []byte, region capture.Region) []byte {
	if region.Width <= 0 || region.Height <= 0 {
		return img
	}
	decoded, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return img
	}
	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height).
		Intersect(decoded.Bounds())
	if rect.Empty() {
		return img
	}
	src, ok := decoded.(subImager)
	if !ok {
		return img
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src.SubImage(rect), nil); err != nil {
		return img
	}
	return buf.Bytes()
}
