package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inabajunmr/autosequence/internal/capture"
	"github.com/inabajunmr/autosequence/internal/config"
	"github.com/inabajunmr/autosequence/internal/logging"
	"github.com/inabajunmr/autosequence/internal/notify"
	"github.com/inabajunmr/autosequence/internal/observability"
	"github.com/inabajunmr/autosequence/internal/server"
	"github.com/inabajunmr/autosequence/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var serveFlags struct {
	listenAddr string
	port       int
	dbPath     string
	tlsCert    string
	tlsKey     string
	maxEntries int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the capture service",
	Long: `Start the capture service: the event ingest endpoint, the command API,
the live-update channel, and the metrics endpoint.

The ledger survives restarts: records are snapshotted to the database as
they change and loaded back on startup.

TLS is optional and manual: pass both --tls-cert and --tls-key to serve
HTTPS, otherwise the service listens on plain HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := config.Default()
	serveCmd.Flags().StringVar(&serveFlags.listenAddr, "listen", defaults.ListenAddr, "address to bind")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", defaults.Port, "port to listen on")
	serveCmd.Flags().StringVar(&serveFlags.dbPath, "db", defaults.DBPath, "database path")
	serveCmd.Flags().StringVar(&serveFlags.tlsCert, "tls-cert", "", "path to TLS certificate file")
	serveCmd.Flags().StringVar(&serveFlags.tlsKey, "tls-key", "", "path to TLS key file")
	serveCmd.Flags().IntVar(&serveFlags.maxEntries, "max-entries", defaults.MaxEntries, "diagram message-pair cap")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()

	db, err := store.Open(serveFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	metrics := observability.NewMetrics()
	hub := notify.NewHub(logger.Named("notify"))
	writer := store.NewWriter(db, logger.Named("store"))

	session := capture.NewSession(logger.Named("capture"))
	session.SetNotifier(hub)
	session.SetPersister(writer)
	session.SetSelfOrigins(cfg.SelfOrigins)

	records, domains, err := db.LoadCapture()
	if err != nil {
		return fmt.Errorf("load capture snapshot: %w", err)
	}
	if len(records) > 0 || len(domains) > 0 {
		session.Hydrate(records, domains)
		logger.Info("restored capture snapshot", zap.Int("requests", len(records)), zap.Int("domains", len(domains)))
	}

	controller := capture.NewController(session, logger.Named("capture"))
	viewers := server.NewViewerRegistry(hub, metrics, logger.Named("live"))

	apiSrv := &server.APIServer{
		Controller: controller,
		Hub:        hub,
		Viewers:    viewers,
		Store:      db,
		Metrics:    metrics,
		Logger:     logger.Named("api"),
		MaxEntries: serveFlags.maxEntries,
	}

	errLog, _ := zap.NewStdLogAt(logger.Named("api"), zapcore.ErrorLevel)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serveFlags.listenAddr, serveFlags.port),
		Handler:           apiSrv.Handler(),
		ErrorLog:          errLog,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	manualTLS := serveFlags.tlsCert != "" && serveFlags.tlsKey != ""
	if manualTLS {
		cert, err := tls.LoadX509KeyPair(serveFlags.tlsCert, serveFlags.tlsKey)
		if err != nil {
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	go func() {
		logger.Info("starting capture service",
			logging.Addr(httpServer.Addr), zap.Bool("tls", manualTLS))
		var err error
		if manualTLS {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("capture service error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	httpServer.Shutdown(ctx)
	writer.Close()

	return nil
}
