package http

import "fmt"

// TransportError is a network or I/O failure below the application protocol.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is an application-level rejection reported by the API.
//
// Status is the HTTP status of the response. Code is the code carried in the
// response's error object, or the HTTP status when the body had none.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// DownloadError is a non-success response from the file download backend.
// It is distinct from APIError since files are served by a different backend.
type DownloadError struct {
	Code    int
	Message string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download error %d: %s", e.Code, e.Message)
}
