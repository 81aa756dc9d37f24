// Package facedetect talks to the face detection server and adapts its
// answers to facecrop.Detector.
package facedetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/player-portraits/internal/facecrop"
)

const defaultDetectorURL = "http://localhost:8000"

// maxUploadSize is the longest image side sent to the server. Boxes come
// back relative to the image, so scaling does not change the result.
const maxUploadSize = 1920

// Client sends images to the face detection server
type Client struct {
	baseURL string
	client  *http.Client
	maxSize int
}

// NewClient creates a new detection client. timeout of zero means no limit.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		maxSize: maxUploadSize,
	}
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectFaces posts JPEG image bytes and returns the raw server answer.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// Detect encodes img as JPEG, sends it to the server and converts the pixel
// boxes to relative ones. Faces with a malformed bbox are dropped.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]facecrop.Detection, error) {
	data, size, err := encodeImage(img, c.maxSize)
	if err != nil {
		return nil, err
	}

	resp, err := c.DetectFaces(ctx, data)
	if err != nil {
		return nil, err
	}

	detections := make([]facecrop.Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		box, ok := relativeBox(f.BBox, size.X, size.Y)
		if !ok {
			continue
		}
		detections = append(detections, facecrop.Detection{Box: box, Confidence: f.DetScore})
	}
	return detections, nil
}

var _ facecrop.Detector = (*Client)(nil)
