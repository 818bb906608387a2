package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	xhttp "TokenPull/pkg/http"
	"TokenPull/pkg/retry"
)

func TestSendAndParseDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Equal(t, "tp-test", r.Header.Get("User-Agent"))
		require.Equal(t, "x", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"n":3}`))
	}))
	defer srv.Close()

	c := xhttp.NewClient(xhttp.WithUserAgent("tp-test"))
	var out struct {
		N int `json:"n"`
	}
	err := c.SendAndParse(context.Background(), &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         srv.URL,
		QueryParams: map[string][]string{"q": {"x"}},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, 3, out.N)
}

func TestStatusErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusNotFound, false},
		{http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer srv.Close()

			err := xhttp.NewClient().SendAndParse(context.Background(), &xhttp.RequestOptions{
				Method: xhttp.MethodGet,
				URL:    srv.URL,
			}, nil)

			var se *xhttp.StatusError
			require.True(t, errors.As(err, &se))
			require.Equal(t, tc.status, se.StatusCode)
			require.Equal(t, "nope", se.Body)
			require.Equal(t, tc.retryable, retry.DefaultClassifier(err))
		})
	}
}
