// Package http provides the transport for the book service's mobile API.
//
// The Client in this package handles:
//   - Device headers and User-Agent expected by the API
//   - The token header on authenticated requests
//   - The {"data": ..., "error": {"code", "msg"}} response envelope
//   - Authenticated file downloads with progress tracking
//   - Optional HTTP or SOCKS5 proxies
//
// # Basic Usage
//
//	client := http.NewClient()
//
//	var active dto.Active
//	err := client.Do(ctx, http.Request{Path: "/library/7.5/active", Token: token}, &active)
//
// # Errors
//
// Failures are classified so callers can decide what is fatal:
//   - *TransportError: the request never produced a response
//   - *APIError: the API rejected the request
//   - *DownloadError: the file backend rejected a download
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
