package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	askPath         = "/api/ask"
	backendUpload   = "/upload"
	relayUploadPath = "/api/upload"
)

// ErrInvalidJSON is returned when a success response body is not JSON.
var ErrInvalidJSON = errors.New("invalid JSON in response")

// StatusError reports a non-success HTTP status. It never carries the
// response body.
type StatusError struct {
	Op     string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Status)
}

// File is a single upload part.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type Client struct {
	baseURL    string
	uploadPath string
	client     *http.Client
}

// NewClient targets the question-answering backend directly.
// A zero timeout means requests may wait indefinitely.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		uploadPath: backendUpload,
		client:     &http.Client{Timeout: timeout},
	}
}

// NewRelayClient targets the upload relay instead of the backend.
func NewRelayClient(relayURL string, timeout time.Duration) *Client {
	c := NewClient(relayURL, timeout)
	c.uploadPath = relayUploadPath
	return c
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer *string `json:"answer"`
}

// AskResult is a decoded success response. HasAnswer is false when the
// backend answered 2xx without a usable answer field.
type AskResult struct {
	Answer    string
	HasAnswer bool
}

// Ask posts a question to the backend.
func (c *Client) Ask(ctx context.Context, question string) (AskResult, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return AskResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(body))
	if err != nil {
		return AskResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req, "ask")
	if err != nil {
		return AskResult{}, err
	}

	var out askResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return AskResult{}, fmt.Errorf("ask: %w", ErrInvalidJSON)
	}
	if out.Answer == nil || *out.Answer == "" {
		return AskResult{}, nil
	}
	return AskResult{Answer: *out.Answer, HasAnswer: true}, nil
}

// Upload sends f as the single multipart field "file" and returns the
// JSON response body unchanged.
func (c *Client) Upload(ctx context.Context, f File) (json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(filePartHeader(f))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if f.Body != nil {
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, fmt.Errorf("copy file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.uploadPath, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := c.do(req, "upload")
	if err != nil {
		return nil, err
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("upload: %w", ErrInvalidJSON)
	}
	return json.RawMessage(respBody), nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s call: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Status: resp.Status}
	}
	return respBody, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(f File) textproto.MIMEHeader {
	name := f.Name
	if name == "" {
		name = "upload"
	}
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", ct)
	return h
}
