package backend

import (
	"net/http"
	"net/url"
)

// Request describes one logical call to the backend.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is sent as JSON when non-nil.
	Body []byte
	// Auth adds the API key header.
	Auth bool
	// Retryable enables retries on transport failures and gateway errors.
	Retryable bool
	// Endpoint is the route name used for metrics and logs.
	Endpoint string
}

// Get builds an authenticated GET request.
func Get(endpoint, path string, query url.Values, retryable bool) Request {
	return Request{
		Method:    http.MethodGet,
		Path:      path,
		Query:     query,
		Auth:      true,
		Retryable: retryable,
		Endpoint:  endpoint,
	}
}

// Post builds an authenticated POST request.
func Post(endpoint, path string, query url.Values, body []byte, retryable bool) Request {
	return Request{
		Method:    http.MethodPost,
		Path:      path,
		Query:     query,
		Body:      body,
		Auth:      true,
		Retryable: retryable,
		Endpoint:  endpoint,
	}
}

// Delete builds an authenticated DELETE request.
func Delete(endpoint, path string, retryable bool) Request {
	return Request{
		Method:    http.MethodDelete,
		Path:      path,
		Auth:      true,
		Retryable: retryable,
		Endpoint:  endpoint,
	}
}
