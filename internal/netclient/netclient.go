// Package netclient is the synchronous HTTP client every node uses to
// talk to its peers: membership, block/tx gossip, and chain/mempool
// pull. Every call carries its own timeout and is logged with
// structured fields so a single unreachable peer is distinguishable
// from a slow one in the logs.
package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// Per-call timeouts, tuned tighter for calls made synchronously from a
// hot path (gossip, bootstrap) and looser for the low-frequency
// centralized-manager registration call.
const (
	IntraClusterTimeout = 5 * time.Second
	RegisterNodeTimeout = 10 * time.Second
	NotifyTimeout       = 1 * time.Second
)

// Endpoint identifies a peer to talk to.
type Endpoint struct {
	Host string
	Port string
}

func (e Endpoint) baseURL() string {
	return fmt.Sprintf("http://%s:%s", e.Host, e.Port)
}

// ProtocolRejected is returned when a peer answers with a non-2xx
// status; Code carries that HTTP status.
type ProtocolRejected struct {
	Code int
}

func (e *ProtocolRejected) Error() string {
	return fmt.Sprintf("netclient: peer rejected request with status %d", e.Code)
}

// ErrUnreachable wraps a lower-level network failure (connection
// refused, DNS failure, timeout) talking to a peer.
type ErrUnreachable struct {
	Peer Endpoint
	Err  error
}

func (e *ErrUnreachable) Error() string {
	return fmt.Sprintf("netclient: peer %s:%s unreachable: %v", e.Peer.Host, e.Peer.Port, e.Err)
}

func (e *ErrUnreachable) Unwrap() error { return e.Err }

// Client is a stateless synchronous HTTP client. The zero value is
// usable; concurrency safety is the caller's responsibility per spec
// §4.6 ("the client owns no state").
type Client struct {
	HTTP *http.Client
	Log  *logrus.Logger
}

// New returns a Client with a default HTTP transport and logger.
func New() *Client {
	return &Client{HTTP: &http.Client{}, Log: logrus.StandardLogger()}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logger() *logrus.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, url string, body any) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("netclient: encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("netclient: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient().Do(req)
}

// PeerAddress is the wire shape of a {host, port} pair.
type PeerAddress struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

// RegisterAsInbound posts own to peer's /peers endpoint, asking to be
// admitted as an inbound connection.
func (c *Client) RegisterAsInbound(ctx context.Context, peer Endpoint, own PeerAddress) error {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodPost, peer.baseURL()+"/peers", own)
	if err != nil {
		return &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return &ProtocolRejected{Code: resp.StatusCode}
	}
	return nil
}

// FetchPeers retrieves peer's known peer list.
func (c *Client) FetchPeers(ctx context.Context, peer Endpoint) ([]PeerAddress, error) {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodGet, peer.baseURL()+"/peers", nil)
	if err != nil {
		return nil, &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolRejected{Code: resp.StatusCode}
	}
	var peers []PeerAddress
	if err := json.NewDecoder(resp.Body).Decode(&peers); err != nil {
		return nil, fmt.Errorf("netclient: decoding peer list from %s:%s: %w", peer.Host, peer.Port, err)
	}
	return peers, nil
}

// FetchInfo retrieves peer's GET /info snapshot as a generic map, the
// shape the graph manager embeds verbatim in its node display data
// without needing to depend on internal/node's Info type.
func (c *Client) FetchInfo(ctx context.Context, peer Endpoint) (map[string]any, error) {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodGet, peer.baseURL()+"/info", nil)
	if err != nil {
		return nil, &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolRejected{Code: resp.StatusCode}
	}
	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("netclient: decoding info from %s:%s: %w", peer.Host, peer.Port, err)
	}
	return info, nil
}

// Ping checks liveness of peer.
func (c *Client) Ping(ctx context.Context, peer Endpoint) error {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodGet, peer.baseURL()+"/ping", nil)
	if err != nil {
		return &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ProtocolRejected{Code: resp.StatusCode}
	}
	return nil
}

// SubmitBlock posts a single block to peer's acceptance endpoint.
func (c *Client) SubmitBlock(ctx context.Context, peer Endpoint, block chain.Block) error {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodPost, peer.baseURL()+"/blocks", block)
	if err != nil {
		return &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return &ProtocolRejected{Code: resp.StatusCode}
	}
	return nil
}

// BroadcastBlock submits block to every peer independently; a single
// peer's failure does not abort the others. It logs the success ratio
// at info level.
func (c *Client) BroadcastBlock(ctx context.Context, peers []Endpoint, block chain.Block) {
	succeeded := 0
	for _, peer := range peers {
		if err := c.SubmitBlock(ctx, peer, block); err != nil {
			c.logger().WithFields(logrus.Fields{"peer": peer.baseURL(), "err": err}).Debug("broadcast_block: peer failed")
			continue
		}
		succeeded++
	}
	c.logger().WithFields(logrus.Fields{
		"height":    block.Height,
		"succeeded": succeeded,
		"total":     len(peers),
	}).Info("broadcast_block: done")
}

// FetchChain retrieves peer's full chain.
func (c *Client) FetchChain(ctx context.Context, peer Endpoint) ([]chain.Block, error) {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodGet, peer.baseURL()+"/blocks", nil)
	if err != nil {
		return nil, &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolRejected{Code: resp.StatusCode}
	}
	var blocks []chain.Block
	if err := json.NewDecoder(resp.Body).Decode(&blocks); err != nil {
		return nil, fmt.Errorf("netclient: decoding chain from %s:%s: %w", peer.Host, peer.Port, err)
	}
	return blocks, nil
}

// FetchPending retrieves peer's mempool.
func (c *Client) FetchPending(ctx context.Context, peer Endpoint) ([]txn.SignedTransaction, error) {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodGet, peer.baseURL()+"/transactions", nil)
	if err != nil {
		return nil, &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolRejected{Code: resp.StatusCode}
	}
	var txs []txn.SignedTransaction
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return nil, fmt.Errorf("netclient: decoding mempool from %s:%s: %w", peer.Host, peer.Port, err)
	}
	return txs, nil
}

// SubmitTransaction posts a single signed transaction to peer's
// /transactions endpoint, the call a wallet makes to relay a spend
// (distinct from BroadcastTransaction, which is a node's peer-gossip
// fan-out and swallows individual failures).
func (c *Client) SubmitTransaction(ctx context.Context, peer Endpoint, tx txn.SignedTransaction) error {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodPost, peer.baseURL()+"/transactions", tx)
	if err != nil {
		return &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return &ProtocolRejected{Code: resp.StatusCode}
	}
	return nil
}

// FetchBalance retrieves a public key's chain+mempool balance from peer's
// GET /balance/{pubkey}, the spec's plain-text decimal response.
func (c *Client) FetchBalance(ctx context.Context, peer Endpoint, pubKeyHex string) (string, error) {
	resp, err := c.do(ctx, IntraClusterTimeout, http.MethodGet, peer.baseURL()+"/balance/"+pubKeyHex, nil)
	if err != nil {
		return "", &ErrUnreachable{Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &ProtocolRejected{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("netclient: reading balance response from %s:%s: %w", peer.Host, peer.Port, err)
	}
	return string(body), nil
}

// BroadcastTransaction submits tx to every peer independently.
func (c *Client) BroadcastTransaction(ctx context.Context, peers []Endpoint, tx txn.SignedTransaction) {
	succeeded := 0
	for _, peer := range peers {
		resp, err := c.do(ctx, IntraClusterTimeout, http.MethodPost, peer.baseURL()+"/transactions", tx)
		if err != nil {
			c.logger().WithFields(logrus.Fields{"peer": peer.baseURL(), "err": err}).Debug("broadcast_transaction: peer failed")
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			succeeded++
		}
	}
	c.logger().WithFields(logrus.Fields{
		"succeeded": succeeded,
		"total":     len(peers),
	}).Info("broadcast_transaction: done")
}

// RegisterNode announces own to a graph-manager-style URL's
// /register-node endpoint, using RegisterNodeTimeout.
func (c *Client) RegisterNode(ctx context.Context, managerURL string, own PeerAddress) error {
	ctx, cancel := context.WithTimeout(ctx, RegisterNodeTimeout)
	defer cancel()
	encoded, err := json.Marshal(own)
	if err != nil {
		return fmt.Errorf("netclient: encoding register-node body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, managerURL+"/register-node", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("netclient: building register-node request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("netclient: register-node unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return &ProtocolRejected{Code: resp.StatusCode}
	}
	return nil
}

// Notify fires a fire-and-forget POST to a graph-manager's /notify
// endpoint using NotifyTimeout. Failures are logged at debug and
// otherwise ignored.
func (c *Client) Notify(ctx context.Context, managerURL string) {
	ctx, cancel := context.WithTimeout(ctx, NotifyTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, managerURL+"/notify", nil)
	if err != nil {
		return
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logger().WithField("err", err).Debug("notify: graph manager unreachable")
		return
	}
	resp.Body.Close()
}
