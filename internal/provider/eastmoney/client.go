package eastmoney

import (
	"net/http"
	"net/url"
)

const (
	baseURL = "https://push2his.eastmoney.com"
	// defaultUT is the public token the eastmoney web quote pages send.
	defaultUT = "7eea3edcaed734bea9cbfc24409ed989"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=eastmoney_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// EastmoneyAPIClient is a client for the eastmoney quote history API.
type EastmoneyAPIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// EastmoneyAPIClientOption is a configuration option for the eastmoney API client.
type EastmoneyAPIClientOption func(*EastmoneyAPIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) EastmoneyAPIClientOption {
	return func(c *EastmoneyAPIClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) EastmoneyAPIClientOption {
	return func(c *EastmoneyAPIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) EastmoneyAPIClientOption {
	return func(c *EastmoneyAPIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithUT overrides the ut token sent with each request.
func WithUT(ut string) EastmoneyAPIClientOption {
	return func(c *EastmoneyAPIClient) {
		if ut != "" {
			c.query.Set("ut", ut)
		}
	}
}

// NewEastmoneyAPIClient creates a new eastmoney API client.
func NewEastmoneyAPIClient(options ...EastmoneyAPIClientOption) (*EastmoneyAPIClient, error) {
	var client = &EastmoneyAPIClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	client.query.Set("ut", defaultUT)
	for _, option := range options {
		option(client)
	}
	return client, nil
}
