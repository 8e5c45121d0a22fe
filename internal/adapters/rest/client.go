package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"fingate-portal/internal/core/domain"

	"github.com/google/uuid"
)

// Transport errors
var (
	ErrNoToken = errors.New("no access token")
)

// TokenSource supplies the current bearer token, empty when logged out
type TokenSource interface {
	Token() string
}

// Client is the authenticated HTTP transport shared by all API bindings
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a new transport for the given backend base URL
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// errorBody is the backend error envelope
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// newRequest builds a request with auth and tracing headers attached
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	token := c.tokens.Token()
	if token == "" {
		return nil, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

// doJSON issues a request with an optional JSON body and decodes a JSON reply.
// Mutating calls are never retried here: at-most-once from the client side.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decode response: %v", domain.ErrTransport, method, path, err)
	}

	return nil
}

// multipartFile describes the file part of a multipart request
type multipartFile struct {
	FieldName string
	FileName  string
	Reader    io.Reader
}

// doMultipart issues a multipart POST (upload/replace) and decodes a JSON reply
func (c *Client) doMultipart(ctx context.Context, path string, file multipartFile, fields map[string]string, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(file.FieldName, file.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return fmt.Errorf("%w: read upload file: %v", domain.ErrTransport, err)
	}

	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf, writer.FormDataContentType())
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %v", domain.ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: POST %s: decode response: %v", domain.ErrTransport, path, err)
	}

	return nil
}

// doDownload issues a GET for a binary stream. The caller owns the returned
// reader and must close it. The suggested file name comes from
// Content-Disposition when present.
func (c *Client) doDownload(ctx context.Context, path string) (io.ReadCloser, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: GET %s: %v", domain.ErrTransport, path, err)
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, "", err
	}

	fileName := ""
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			fileName = params["filename"]
		}
	}

	return resp.Body, fileName, nil
}

// checkStatus maps backend status codes onto the domain error taxonomy
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read the error envelope for a human-readable message
	message := resp.Status
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(raw) > 0 {
		var body errorBody
		if json.Unmarshal(raw, &body) == nil {
			if body.Error != "" {
				message = body.Error
			} else if body.Message != "" {
				message = body.Message
			}
		}
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrValidation, message)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrPermission, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrConflict, message)
	default:
		return fmt.Errorf("%w: unexpected status %d: %s", domain.ErrTransport, resp.StatusCode, message)
	}
}
