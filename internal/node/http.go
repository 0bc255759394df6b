package node

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/netclient"
	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// Router builds the node's HTTP API: peer membership, block and
// transaction gossip, mining control, and balance/status queries.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	r.HandleFunc("/peers", s.handleListPeers).Methods(http.MethodGet)
	r.HandleFunc("/peers", s.handleAdmitPeer).Methods(http.MethodPost)
	r.HandleFunc("/blocks", s.handleListBlocks).Methods(http.MethodGet)
	r.HandleFunc("/blocks", s.handleReceiveBlock).Methods(http.MethodPost)
	r.HandleFunc("/mine", s.handleMine).Methods(http.MethodPost)
	r.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleAddTransaction).Methods(http.MethodPost)
	r.HandleFunc("/balance/{pubkey}", s.handleBalance).Methods(http.MethodGet)
	r.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	r.HandleFunc("/miner/start", s.handleMinerStart).Methods(http.MethodPost)
	r.HandleFunc("/miner/stop", s.handleMinerStop).Methods(http.MethodPost)
	r.HandleFunc("/miner/status", s.handleMinerStatus).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPeers(w http.ResponseWriter, r *http.Request) {
	peers, err := s.ListPeers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, peers)
}

func (s *Server) handleAdmitPeer(w http.ResponseWriter, r *http.Request) {
	var req netclient.PeerAddress
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.AdmitPeer(r.Context(), req.Host, req.Port)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, req)
	case errors.Is(err, ErrSelfPeer):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ErrPeerLimitReached):
		writeError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, ErrPeerUnreachable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.Chain()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleReceiveBlock(w http.ResponseWriter, r *http.Request) {
	var b chain.Block
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed_block"))
		return
	}
	status, err := s.ReceiveBlock(r.Context(), b)
	switch {
	case err == nil && status == StatusOrphanBuffered:
		writeJSON(w, http.StatusAccepted, map[string]any{"status": status, "height": b.Height})
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"status": status, "height": b.Height})
	case errors.Is(err, ErrDuplicateBlock):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Role != RoleMiner {
		writeError(w, http.StatusForbidden, errors.New("not_a_miner"))
		return
	}
	block, err := s.MineOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Mempool())
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var tx txn.SignedTransaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed_transaction"))
		return
	}
	if err := s.AddTransaction(r.Context(), tx); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "accepted", "txid": tx.Txid()})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	pubKey := mux.Vars(r)["pubkey"]
	balance, err := s.Balance(pubKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(balance.String()))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.GetInfo()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleMinerStart(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Role != RoleMiner {
		writeError(w, http.StatusForbidden, errors.New("not_a_miner"))
		return
	}
	s.StartMining(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleMinerStop(w http.ResponseWriter, r *http.Request) {
	s.StopMining()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleMinerStatus(w http.ResponseWriter, r *http.Request) {
	running, role := s.MiningStatus()
	writeJSON(w, http.StatusOK, map[string]any{"running": running, "role": role})
}
