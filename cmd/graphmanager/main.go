// Command graphmanager runs the topology aggregator as its own
// process, with the same flag-configured, death-triggered-shutdown
// binary shape as cmd/node.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vrecan/death/v3"

	"github.com/KNG60/KS-crytocurrency/internal/graphmanager"
)

func main() {
	if err := run(); err != nil {
		logrus.StandardLogger().WithError(err).Error("graphmanager: fatal")
		os.Exit(1)
	}
}

func run() error {
	host := flag.String("host", "127.0.0.1", "address this graph manager listens on")
	port := flag.String("port", "6000", "port this graph manager listens on")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	manager := graphmanager.New(log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", *host, *port),
		Handler: manager.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"host": *host, "port": *port}).Info("graphmanager: listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	d.WaitForDeathWithFunc(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graphmanager: error during HTTP shutdown")
		}
	})

	if err := <-serveErr; err != nil {
		return fmt.Errorf("graphmanager: listen failed: %w", err)
	}
	return nil
}
