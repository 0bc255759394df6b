package netclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
)

func testEndpoint(t *testing.T, srv *httptest.Server) Endpoint {
	t.Helper()
	u := strings.TrimPrefix(srv.URL, "http://")
	host, port, found := strings.Cut(u, ":")
	require.True(t, found)
	return Endpoint{Host: host, Port: port}
}

func TestPingSucceeds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New()
	require.NoError(t, c.Ping(context.Background(), testEndpoint(t, srv)))
}

func TestPingUnreachable(t *testing.T) {
	c := New()
	err := c.Ping(context.Background(), Endpoint{Host: "127.0.0.1", Port: "1"})
	require.Error(t, err)
	var unreachable *ErrUnreachable
	require.ErrorAs(t, err, &unreachable)
}

func TestFetchPeersDecodesList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/peers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]PeerAddress{{Host: "127.0.0.1", Port: "5002"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New()
	peers, err := c.FetchPeers(context.Background(), testEndpoint(t, srv))
	require.NoError(t, err)
	require.Equal(t, []PeerAddress{{Host: "127.0.0.1", Port: "5002"}}, peers)
}

func TestRegisterAsInboundRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/peers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New()
	err := c.RegisterAsInbound(context.Background(), testEndpoint(t, srv), PeerAddress{Host: "127.0.0.1", Port: "5001"})
	require.Error(t, err)
	var rejected *ProtocolRejected
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, http.StatusTooManyRequests, rejected.Code)
}

func TestSubmitAndFetchChain(t *testing.T) {
	genesis := chain.CreateGenesis()
	mux := http.NewServeMux()
	mux.HandleFunc("/blocks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]chain.Block{genesis})
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New()
	endpoint := testEndpoint(t, srv)
	require.NoError(t, c.SubmitBlock(context.Background(), endpoint, genesis))

	blocks, err := c.FetchChain(context.Background(), endpoint)
	require.NoError(t, err)
	require.Equal(t, []chain.Block{genesis}, blocks)
}

func TestBroadcastBlockIsolatesFailures(t *testing.T) {
	goodMux := http.NewServeMux()
	goodMux.HandleFunc("/blocks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	good := httptest.NewServer(goodMux)
	defer good.Close()

	c := New()
	peers := []Endpoint{testEndpoint(t, good), {Host: "127.0.0.1", Port: "1"}}

	// Must not panic or block despite one peer being unreachable.
	c.BroadcastBlock(context.Background(), peers, chain.CreateGenesis())
}
