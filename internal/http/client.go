package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the root of the mobile API.
	DefaultBaseURL = "https://api.nextory.se/api/app"

	// APIVersion is the API version embedded in endpoint paths and sent with downloads.
	APIVersion = "7.5"

	defaultUserAgent  = "okhttp/4.9.3"
	downloadUserAgent = "Dalvik/2.1.0 (Linux; U; Android 10; ONEPLUS A5000 Build/QKQ1.191014.012)"

	// TokenHeader carries the session token on authenticated requests.
	TokenHeader = "token"

	keepAlive = 15 * time.Minute
)

// deviceHeaders identify the client as the Android app.
var deviceHeaders = [][2]string{
	{"canary", ""},
	{"appid", "200"},
	{"model", "OnePlus+ONEPLUS+A5000"},
	{"locale", "en_GB"},
	{"version", "4.34.6"},
	{"deviceid", "eSsnwXyvS4qK4vMzu79tGh"},
	{"osinfo", "Android 10"},
}

// Client wraps HTTP operations with the mobile API's conventions.
//
// Client provides:
//   - Device headers and User-Agent on every API request
//   - The session token header on authenticated requests
//   - Decoding of the {"data": ..., "error": ...} response envelope
//   - Authenticated file downloads with progress tracking
//
// Example usage:
//
//	client := NewClient()
//
//	var salt struct{ Salt string `json:"salt"` }
//	err := client.Do(ctx, Request{Method: "GET", Path: "/catalogue/7.5/salt"}, &salt)
//
//	resp, err := client.Download(ctx, file.URL, token)
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying *http.Client, e.g. a proxied one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new API client.
//
// The client is configured with:
//   - 15 minute TCP keep-alive and no overall request timeout, since book
//     downloads can be large
//   - "okhttp/4.9.3" User-Agent header
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Transport: newTransport(nil)},
		baseURL:    DefaultBaseURL,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newTransport(proxy func(*http.Request) (*url.URL, error)) *http.Transport {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: keepAlive}
	return &http.Transport{
		Proxy:               proxy,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 30 * time.Second,
		IdleConnTimeout:     keepAlive,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one API call.
type Request struct {
	// Method is the HTTP method, GET when empty.
	Method string

	// Path is appended to the base URL, e.g. "/library/7.5/active".
	Path string

	// Query is encoded into the URL.
	Query url.Values

	// Token is sent in the token header when non-empty.
	Token string

	// Form, when non-nil, is sent as a multipart/form-data body.
	Form map[string]string
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

// Do performs an API request and decodes the envelope's data into out.
//
// Returns:
//   - *TransportError if the request could not be sent or read
//   - *APIError for non-2xx responses, envelopes carrying an error, and
//     envelopes without data
//
// out may be nil when the caller does not need the payload.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: req.Method, URL: r.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read " + req.Method, URL: r.Path, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Msg
		}
		return apiErr
	}

	if decodeErr != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", decodeErr)}
	}
	if env.Error != nil {
		return &APIError{Status: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Msg}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &APIError{Status: resp.StatusCode, Message: "empty response"}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("decode data: %v", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	if r.Form != nil {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for _, key := range slices.Sorted(maps.Keys(r.Form)) {
			if err := mw.WriteField(key, r.Form[key]); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		body = &buf
		contentType = mw.FormDataContentType()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for _, h := range deviceHeaders {
		req.Header.Set(h[0], h[1])
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.Token != "" {
		req.Header.Set(TokenHeader, r.Token)
	}
	return req, nil
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes. It is advisory only.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Get performs an unauthenticated GET and returns the body and its
// Content-Type. Use it for small files such as cover art.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &TransportError{Op: http.MethodGet, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{Op: "read " + http.MethodGet, URL: rawURL, Err: err}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Download starts an authenticated file download and returns the open
// response. The caller must close the body.
//
// Returns *DownloadError when the download backend answers with a
// non-success status.
func (c *Client) Download(ctx context.Context, rawURL, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(TokenHeader, token)
	req.Header.Set("User-Agent", downloadUserAgent)
	req.Header.Set("apiver", APIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, readErr := io.ReadAll(resp.Body)
		message := strings.TrimSpace(string(msg))
		if readErr != nil || message == "" {
			message = "(Unknown)"
		}
		return nil, &DownloadError{Code: resp.StatusCode, Message: message}
	}

	return resp, nil
}
