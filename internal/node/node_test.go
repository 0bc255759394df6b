package node

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/netclient"
	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newTestServer starts a Server over a fresh temp-dir chain/peer store at
// difficulty 1, returning it alongside the private key backing its mining
// identity (srv.PublicKey()) so tests can sign spends from that balance.
func newTestServer(t *testing.T) (*Server, *btcec.PrivateKey) {
	t.Helper()
	orig := chain.Difficulty
	chain.Difficulty = 1
	t.Cleanup(func() { chain.Difficulty = orig })

	priv, err := txn.GenerateKey()
	require.NoError(t, err)
	pub := txn.PublicKeyHex(priv.PubKey())

	srv, err := New(Config{
		Host:      "127.0.0.1",
		Port:      "9001",
		PublicKey: pub,
		Role:      RoleMiner,
		BaseDir:   t.TempDir(),
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	require.NoError(t, srv.Start(context.Background()))
	srv.StopMining() // tests drive mining explicitly via MineOnce
	return srv, priv
}

// splitTestServerAddr splits an httptest.Server URL into the host/port
// pair AdmitPeer expects.
func splitTestServerAddr(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return host, port
}

func TestStartPersistsGenesisWhenNoSeedsRespond(t *testing.T) {
	srv, _ := newTestServer(t)
	blocks, err := srv.Chain()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, chain.GenesisPrevHash, blocks[0].PrevHash)
}

func TestMineOnceExtendsChainAndPaysCoinbase(t *testing.T) {
	srv, _ := newTestServer(t)
	block, err := srv.MineOnce(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, block.Height)

	blocks, err := srv.Chain()
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	balance, err := srv.Balance(srv.PublicKey())
	require.NoError(t, err)
	require.Equal(t, chain.MiningReward, balance)
}

func TestAddTransactionRejectsCoinbase(t *testing.T) {
	srv, _ := newTestServer(t)
	cb := txn.Coinbase(srv.PublicKey(), chain.MiningReward, 1)
	err := srv.AddTransaction(context.Background(), cb)
	require.Error(t, err)
}

func TestAddTransactionRejectsInsufficientBalance(t *testing.T) {
	srv, _ := newTestServer(t)
	priv, err := txn.GenerateKey()
	require.NoError(t, err)
	pub := txn.PublicKeyHex(priv.PubKey())

	tx, err := txn.New(pub, "someone-else", txn.NewAmountFromCoins(10, 0), 1)
	require.NoError(t, err)
	signed, err := txn.Sign(priv, tx)
	require.NoError(t, err)

	err = srv.AddTransaction(context.Background(), signed)
	require.Error(t, err)
}

func TestAddTransactionAcceptsSpendableBalanceAndRejectsDuplicate(t *testing.T) {
	srv, minerPriv := newTestServer(t)
	_, err := srv.MineOnce(context.Background())
	require.NoError(t, err)

	tx, err := txn.New(srv.PublicKey(), "recipient", txn.NewAmountFromCoins(1, 0), 2)
	require.NoError(t, err)
	signed, err := txn.Sign(minerPriv, tx)
	require.NoError(t, err)

	require.NoError(t, srv.AddTransaction(context.Background(), signed))
	require.Equal(t, 1, len(srv.Mempool()))

	err = srv.AddTransaction(context.Background(), signed)
	require.ErrorIs(t, err, ErrDuplicateTransaction)
}

func TestReceiveBlockRejectsDuplicate(t *testing.T) {
	srv, _ := newTestServer(t)
	block, err := srv.MineOnce(context.Background())
	require.NoError(t, err)

	_, err = srv.ReceiveBlock(context.Background(), block)
	require.ErrorIs(t, err, ErrDuplicateBlock)
}

func TestReceiveBlockAcceptsDirectExtension(t *testing.T) {
	srv, _ := newTestServer(t)
	blocks, err := srv.Chain()
	require.NoError(t, err)
	tip := blocks[len(blocks)-1]

	stop := chain.NewStopSignal()
	next, err := chain.MineNextBlock(tip, "other-miner", nil, stop)
	require.NoError(t, err)

	status, err := srv.ReceiveBlock(context.Background(), next)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, status)

	all, err := srv.Chain()
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestReceiveBlockBuffersUnknownParentAsOrphan(t *testing.T) {
	srv, _ := newTestServer(t)
	blocks, err := srv.Chain()
	require.NoError(t, err)
	genesis := blocks[0]

	stop := chain.NewStopSignal()
	fakeParent, err := chain.MineNextBlock(genesis, "x", nil, stop)
	require.NoError(t, err)
	orphan, err := chain.MineNextBlock(fakeParent, "y", nil, stop)
	require.NoError(t, err)

	status, err := srv.ReceiveBlock(context.Background(), orphan)
	require.NoError(t, err)
	require.Equal(t, StatusOrphanBuffered, status)

	all, err := srv.Chain()
	require.NoError(t, err)
	require.Len(t, all, 1, "orphan must not be persisted to the chain")
}

func TestAdmitPeerRejectsSelf(t *testing.T) {
	srv, _ := newTestServer(t)
	err := srv.AdmitPeer(context.Background(), srv.cfg.Host, srv.cfg.Port)
	require.ErrorIs(t, err, ErrSelfPeer)
}

func TestAdmitPeerRejectsUnreachableCandidate(t *testing.T) {
	srv, _ := newTestServer(t)
	err := srv.AdmitPeer(context.Background(), "127.0.0.1", "1")
	require.ErrorIs(t, err, ErrPeerUnreachable)
}

func TestAdmitPeerAcceptsReachableCandidate(t *testing.T) {
	srv, _ := newTestServer(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	host, port := splitTestServerAddr(t, ts.URL)
	err := srv.AdmitPeer(context.Background(), host, port)
	require.NoError(t, err)

	peers, err := srv.ListPeers()
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, netclient.PeerAddress{Host: host, Port: port}, peers[0])
}

func TestMiningStatusReflectsStartStop(t *testing.T) {
	srv, _ := newTestServer(t)
	running, role := srv.MiningStatus()
	require.False(t, running)
	require.Equal(t, RoleMiner, role)

	srv.StartMining(context.Background())
	defer srv.StopMining()

	require.Eventually(t, func() bool {
		running, _ := srv.MiningStatus()
		return running
	}, time.Second, 5*time.Millisecond)

	srv.StopMining()
	require.Eventually(t, func() bool {
		running, _ := srv.MiningStatus()
		return !running
	}, time.Second, 5*time.Millisecond)
}
