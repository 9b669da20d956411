package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stitcher/internal/srt"
)

const (
	transcribePath    = "/v1/audio/transcriptions"
	responseFormatSRT = "srt"
	headerAPIKey      = "Authorization"
)

// Client transcribes one audio file into subtitle cues.
type Client interface {
	Transcribe(ctx context.Context, req Request) (Response, error)
}

// Request describes one chunk upload.
type Request struct {
	FilePath string
	Language string
	Model    string
}

// Response carries the recognized cues with chunk-local timestamps. RawSRT
// is the untouched payload, kept for caching and diagnostics.
type Response struct {
	Cues   []srt.Cue
	RawSRT string
}

// envelope mirrors the backend's JSON wrapper: a status code plus either an
// SRT payload or an error message.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data string `json:"data"`
}

// Timeouts governs how long uploads may take. The read timeout scales with
// payload size because processing time for large chunks is not bounded by
// any fixed constant.
type Timeouts struct {
	Connect   time.Duration
	ReadBase  time.Duration
	ReadPerMB time.Duration
}

// HTTPClient calls an HTTP transcription backend with multipart uploads.
type HTTPClient struct {
	baseURL  string
	apiKey   string
	timeouts Timeouts
	http     *http.Client
}

// Option customizes a client.
type Option func(*HTTPClient)

// WithHTTPClient overrides the HTTP client used for requests. Request
// deadlines are still applied per call via context.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeouts overrides the timeout policy.
func WithTimeouts(t Timeouts) Option {
	return func(c *HTTPClient) {
		c.timeouts = t
	}
}

// NewHTTPClient builds a client for the given backend base URL.
func NewHTTPClient(baseURL, apiKey string, opts ...Option) *HTTPClient {
	client := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeouts: Timeouts{
			Connect:   30 * time.Second,
			ReadBase:  2 * time.Minute,
			ReadPerMB: 20 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.http == nil {
		client.http = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: client.timeouts.Connect}).DialContext,
			},
		}
	}
	return client
}

// Transcribe uploads the file and parses the SRT payload from the response
// envelope. Returned errors classify through Classify: transport failures
// and 5xx retry, application errors do not.
func (c *HTTPClient) Transcribe(ctx context.Context, req Request) (Response, error) {
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return Response{}, fmt.Errorf("stat upload: %w", err)
	}

	body, contentType, err := c.buildMultipart(req)
	if err != nil {
		return Response{}, err
	}

	deadline := c.readDeadline(info.Size())
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+transcribePath, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		httpReq.Header.Set(headerAPIKey, "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("transcribe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, &BackendError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(detail)),
		}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if env.Code != 0 {
		return Response{}, &BackendError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Msg,
		}
	}

	cues, err := srt.Parse([]byte(env.Data))
	if err != nil {
		return Response{}, fmt.Errorf("parse srt payload: %w", err)
	}
	return Response{Cues: cues, RawSRT: env.Data}, nil
}

func (c *HTTPClient) buildMultipart(req Request) (*bytes.Buffer, string, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy upload: %w", err)
	}

	fields := map[string]string{
		"model":           req.Model,
		"language":        req.Language,
		"response_format": responseFormatSRT,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

func (c *HTTPClient) readDeadline(sizeBytes int64) time.Duration {
	sizeMB := float64(sizeBytes) / (1024 * 1024)
	return c.timeouts.ReadBase + time.Duration(sizeMB*float64(c.timeouts.ReadPerMB))
}
