package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback(t *testing.T) {
	p := NewProber(DefaultPrimaryPort, DefaultFallbackPort, time.Second)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "primary to fallback", in: "http://127.0.0.1:3050", want: "http://127.0.0.1:3150"},
		{name: "fallback to primary", in: "http://127.0.0.1:3150", want: "http://127.0.0.1:3050"},
		{name: "keeps path", in: "http://localhost:3050/rpc", want: "http://localhost:3150/rpc"},
		{name: "ipv6 host", in: "http://[::1]:3150", want: "http://[::1]:3050"},
		{name: "unknown port", in: "http://127.0.0.1:8545", wantErr: true},
		{name: "no port", in: "http://127.0.0.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Fallback(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect(t *testing.T) {
	const (
		primary  = "http://127.0.0.1:3050"
		fallback = "http://127.0.0.1:3150"
	)

	tests := []struct {
		name      string
		reachable map[string]bool
		wantURL   string
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "primary reachable",
			reachable: map[string]bool{primary: true, fallback: true},
			wantURL:   primary,
			wantCalls: []string{primary},
		},
		{
			name:      "fallback reachable",
			reachable: map[string]bool{fallback: true},
			wantURL:   fallback,
			wantCalls: []string{primary, fallback},
		},
		{
			name:      "none reachable",
			reachable: map[string]bool{},
			wantErr:   ErrUnreachable,
			wantCalls: []string{primary, fallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			p := NewProber(DefaultPrimaryPort, DefaultFallbackPort, time.Second).WithProbe(func(_ context.Context, url string) error {
				calls = append(calls, url)
				if tt.reachable[url] {
					return nil
				}
				return errors.New("connection refused")
			})

			ep, err := p.Select(context.Background(), primary)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), primary)
				assert.Contains(t, err.Error(), fallback)
				assert.False(t, ep.Healthy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, ep.URL)
			assert.True(t, ep.Healthy)
		})
	}
}

func TestSelectWithoutFallbackProbesOnce(t *testing.T) {
	calls := 0
	p := NewProber(DefaultPrimaryPort, DefaultFallbackPort, time.Second).WithProbe(func(context.Context, string) error {
		calls++
		return errors.New("down")
	})

	_, err := p.Select(context.Background(), "http://127.0.0.1:8545")
	require.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, 1, calls)
}

func TestChainIDProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eth_chainId", req.Method)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":"0x10f"}`))
	}))
	defer srv.Close()

	p := NewProber(DefaultPrimaryPort, DefaultFallbackPort, time.Second)

	ep, err := p.Select(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, ep.URL)
	assert.True(t, ep.Healthy)
}

func TestChainIDProbeRejectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProber(DefaultPrimaryPort, DefaultFallbackPort, time.Second)
	require.Error(t, p.chainID(context.Background(), srv.URL))
}
