package peaks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/lessons/l1/peaks/guitar", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[0.1,0.5,0.2],"points_per_second":100}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	summary := p.FetchPeaks(context.Background(), "l1", "guitar")

	require.NotNil(t, summary)
	assert.Equal(t, []float64{0.1, 0.5, 0.2}, summary.Data)
	assert.Equal(t, 100, summary.PointsPerSecond)
}

func TestHTTPProviderSoftFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"no content", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data": "not-an-array"}`))
		}},
		{"empty envelope", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[],"points_per_second":100}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewHTTPProvider(srv.URL)
			assert.Nil(t, p.FetchPeaks(context.Background(), "l1", "guitar"))
		})
	}
}

func TestHTTPProviderUnreachableHost(t *testing.T) {
	p := NewHTTPProvider("http://127.0.0.1:1")
	assert.Nil(t, p.FetchPeaks(context.Background(), "l1", "guitar"))
}
