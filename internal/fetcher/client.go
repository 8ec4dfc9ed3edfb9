package fetcher

import "net/http"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=fetcher_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
