package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_DefaultHeaders(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
	}))
	defer server.Close()

	c := New(5 * time.Second)
	c.Headers["Referer"] = "https://quote.eastmoney.com/"

	req, err := http.NewRequestWithContext(testContext(t), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	res, err := c.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	got := <-headers
	require.Equal(t, "stockbars/1.0", got.Get("User-Agent"))
	require.Equal(t, "https://quote.eastmoney.com/", got.Get("Referer"))
	require.Equal(t, "application/json", got.Get("Accept"))
}

func TestClient_CallerHeadersWin(t *testing.T) {
	t.Parallel()

	ua := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua <- r.Header.Get("User-Agent")
	}))
	defer server.Close()

	req, err := http.NewRequestWithContext(testContext(t), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom")
	res, err := New(time.Second).Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, "custom", <-ua)
}
