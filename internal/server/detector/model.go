package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a detector response is read.
const maxResponseBytes = 8 << 20

// RawOutput is the detector's undecoded JSON response.
type RawOutput []byte

// Model is the external object detector. It receives RGB pixels only.
type Model interface {
	Infer(ctx context.Context, img *RGBImage) (RawOutput, error)
}

// HTTPModel talks to an inference service exposing
//
//	POST /predict  multipart "file" -> detector JSON
//	GET  /names    class names
//	GET  /health   200 when ready
type HTTPModel struct {
	baseURL string
	client  *http.Client
}

// NewHTTPModel returns a client for the service at baseURL. A nil client
// gets one with a conservative overall timeout; per-call deadlines come
// from the context.
func NewHTTPModel(baseURL string, client *http.Client) *HTTPModel {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPModel{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (m *HTTPModel) Infer(ctx context.Context, img *RGBImage) (RawOutput, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := img.EncodePNG(part); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	data, err := m.do(req)
	if err != nil {
		return nil, err
	}
	return RawOutput(data), nil
}

// Names fetches the class-id to label table from the service.
func (m *HTTPModel) Names(ctx context.Context) (Labels, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/names", nil)
	if err != nil {
		return nil, err
	}
	data, err := m.do(req)
	if err != nil {
		return nil, err
	}

	// {"names": {...}} is accepted as well as a bare table.
	var wrapped struct {
		Names json.RawMessage `json:"names"`
	}
	if json.Unmarshal(data, &wrapped) == nil && len(wrapped.Names) > 0 {
		data = wrapped.Names
	}
	return ParseLabels(data)
}

// Health reports whether the service answers GET /health with 200.
func (m *HTTPModel) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	_, err = m.do(req)
	return err
}

func (m *HTTPModel) do(req *http.Request) ([]byte, error) {
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := data
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	return data, nil
}
