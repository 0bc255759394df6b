// Command node runs a single P2P cryptocurrency node: it serves the
// HTTP API, runs the block-acceptance state machine, and optionally
// mines.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vrecan/death/v3"

	"github.com/KNG60/KS-crytocurrency/internal/netclient"
	"github.com/KNG60/KS-crytocurrency/internal/node"
	"github.com/KNG60/KS-crytocurrency/internal/walletkit"
)

func main() {
	if err := run(); err != nil {
		logrus.StandardLogger().WithError(err).Error("node: fatal")
		os.Exit(1)
	}
}

func run() error {
	var (
		host          = flag.String("host", "127.0.0.1", "address this node listens on")
		port          = flag.String("port", "5000", "port this node listens on")
		seeds         = flag.String("seeds", "", "comma-separated host:port list of seed peers")
		role          = flag.String("role", "normal", "normal or miner")
		walletPath    = flag.String("wallet", "wallet.json", "path to the wallet file holding --wallet-label")
		walletLabel   = flag.String("wallet-label", "", "wallet account whose public key mines/receives rewards (required for -role miner)")
		managerURL    = flag.String("centralized-manager", "", "base URL of a graph manager to register with and notify")
		baseDir       = flag.String("base-dir", "", "directory holding this node's chain/peer databases (default db)")
		maxPeers      = flag.Int("max-peers", 0, "maximum admitted peer count (0 = default)")
	)
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	nodeRole := node.RoleNormal
	switch strings.ToLower(*role) {
	case "", "normal":
		nodeRole = node.RoleNormal
	case "miner":
		nodeRole = node.RoleMiner
	default:
		return fmt.Errorf("node: invalid -role %q (want normal or miner)", *role)
	}

	publicKey, err := resolvePublicKey(*walletPath, *walletLabel)
	if err != nil {
		return err
	}
	if nodeRole == node.RoleMiner && publicKey == "" {
		return errors.New("node: -role miner requires -wallet-label to name a funded mining identity")
	}

	seedPeers, err := parseSeeds(*seeds)
	if err != nil {
		return err
	}

	cfg := node.Config{
		Host:                  *host,
		Port:                  *port,
		PublicKey:             publicKey,
		Role:                  nodeRole,
		SeedPeers:             seedPeers,
		CentralizedManagerURL: *managerURL,
		BaseDir:               *baseDir,
		MaxPeers:              *maxPeers,
	}

	srv, err := node.New(cfg, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("node: startup sequence failed: %w", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", *host, *port),
		Handler: srv.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"host": *host, "port": *port, "role": nodeRole}).Info("node: listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	d.WaitForDeathWithFunc(func() {
		cancel()
		srv.StopMining()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("node: error during HTTP shutdown")
		}
	})

	if err := <-serveErr; err != nil {
		return fmt.Errorf("node: listen failed: %w", err)
	}
	return nil
}

// resolvePublicKey reads label's public key (only the public record, no
// passphrase needed) out of the wallet file at path. An empty label is
// valid for a -role normal node that never mines.
func resolvePublicKey(path, label string) (string, error) {
	if label == "" {
		return "", nil
	}
	w, err := walletkit.Open(path)
	if err != nil {
		return "", fmt.Errorf("node: opening wallet %s: %w", path, err)
	}
	account, err := w.GetAccount(label)
	if err != nil {
		return "", fmt.Errorf("node: resolving -wallet-label %q: %w", label, err)
	}
	return account.PublicKeyHex, nil
}

// parseSeeds splits a comma-separated "host:port,host:port" list into
// netclient.Endpoint values, skipping blank entries.
func parseSeeds(raw string) ([]netclient.Endpoint, error) {
	var out []netclient.Endpoint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		host, port, found := strings.Cut(part, ":")
		if !found || host == "" || port == "" {
			return nil, fmt.Errorf("node: invalid -seeds entry %q (want host:port)", part)
		}
		out = append(out, netclient.Endpoint{Host: host, Port: port})
	}
	return out, nil
}
