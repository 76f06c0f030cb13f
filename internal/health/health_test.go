package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBody(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		token    string
		wantErr  bool
		problems int
	}{
		{
			name:   "chromium wrapped json",
			source: `<html><head></head><body><pre style="word-wrap: break-word;">{"status":"OK","timestamp":"2024-01-01T00:00:00Z"}</pre></body></html>`,
			token:  "OK",
		},
		{
			name:   "raw json",
			source: `{"status":"healthy","timestamp":1700000000}`,
			token:  "healthy",
		},
		{
			name:   "null timestamp",
			source: `{"status":"OK","timestamp":null}`,
			token:  "OK",
		},
		{
			name:     "wrong token",
			source:   `{"status":"DOWN","timestamp":"now"}`,
			token:    "OK",
			wantErr:  true,
			problems: 1,
		},
		{
			name:     "missing timestamp",
			source:   `{"status":"OK"}`,
			token:    "OK",
			wantErr:  true,
			problems: 2,
		},
		{
			name:     "plain text",
			source:   "status OK timestamp",
			token:    "OK",
			wantErr:  true,
			problems: 1,
		},
		{
			name:     "unbalanced braces",
			source:   `{"status":"OK","timestamp":"x"`,
			token:    "OK",
			wantErr:  true,
			problems: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBody(tt.source, tt.token)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ce *ContractError
			require.ErrorAs(t, err, &ce)
			assert.Len(t, ce.Problems, tt.problems)
		})
	}
}

func TestBodyText(t *testing.T) {
	assert.Equal(t, `{"a":1}`, BodyText(`<html><body><pre>{&#34;a&#34;:1}</pre></body></html>`))
	assert.Equal(t, "plain", BodyText("plain"))
}

func TestProberWaitReady(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	p := &Prober{Interval: 10 * time.Millisecond}
	err := p.WaitReady(context.Background(), srv.URL, "/health", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestProberWaitReadyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := &Prober{Interval: 10 * time.Millisecond}
	err := p.WaitReady(context.Background(), srv.URL, "health", 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 500")
}
