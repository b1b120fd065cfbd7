// luminad runs the wallet message broker as a standalone daemon: it opens the
// broker database, loads the chain registry, and serves the websocket
// transport for page-injected providers. The wallet UI attaches through the
// signal channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/account/keystore"
	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/broadcast"
	"github.com/luminawallet/lumina-go/logutils"
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc"
	"github.com/luminawallet/lumina-go/rpc/chains"
	"github.com/luminawallet/lumina-go/rpc/nodedirectory"
	"github.com/luminawallet/lumina-go/services/broker"
	brokersignal "github.com/luminawallet/lumina-go/signal"
	"github.com/luminawallet/lumina-go/sqlite"
	"github.com/luminawallet/lumina-go/transport"
)

var (
	dataDir          = flag.String("datadir", defaultDataDir(), "Data directory for databases and keystore")
	listenAddr       = flag.String("listen", "127.0.0.1:8765", "Websocket transport listen address")
	token            = flag.String("token", "", "Shared secret presented by injected providers (required)")
	dbPassword       = flag.String("dbpass", "", "Password encrypting the broker database (required)")
	defaultChainKey  = flag.String("chain", "lumina", "Default account-based chain key")
	defaultEVMChain  = flag.Uint64("evmchain", 1, "Default EVM chain id")
	nodeDirectoryURL = flag.String("nodedir", "https://nodes.lumina.example", "Node directory base URL")
	logLevel         = flag.String("log", "info", `Log level: "error", "warn", "info" or "debug"`)
	logFile          = flag.String("logfile", "", "Path to the log file (empty logs to stderr only)")
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lumina"
	}
	return filepath.Join(home, ".lumina")
}

func main() {
	flag.Parse()

	if *token == "" || *dbPassword == "" {
		fmt.Fprintln(os.Stderr, "both -token and -dbpass are required")
		os.Exit(1)
	}

	logger, err := logutils.ZapLogger(*logLevel, logutils.FileOptions{
		Filename:   *logFile,
		MaxSize:    100,
		MaxBackups: 3,
		Compress:   true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "initializing logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	brokersignal.SetLogger(logger)

	if err := run(logger); err != nil {
		logger.Error("daemon failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	if err := os.MkdirAll(*dataDir, 0700); err != nil {
		return err
	}

	config := params.BrokerConfig{
		DataDir:           *dataDir,
		DefaultChainKey:   *defaultChainKey,
		DefaultEVMChainID: *defaultEVMChain,
		NodeDirectoryURL:  *nodeDirectoryURL,
		ApprovalExpiry:    params.DefaultApprovalExpiry,
		LogFile:           *logFile,
		LogLevel:          *logLevel,
	}

	db, err := sqlite.OpenDB(filepath.Join(config.DataDir, "broker.db"), *dbPassword)
	if err != nil {
		return err
	}
	defer db.Close()

	registryDB, err := sqlite.OpenDB(filepath.Join(config.DataDir, "chains.db"), *dbPassword)
	if err != nil {
		return err
	}
	defer registryDB.Close()

	registry, err := chains.NewManager(registryDB)
	if err != nil {
		return err
	}

	accounts := keystore.NewManager(filepath.Join(config.DataDir, "keystore"))
	rpcClient := rpc.NewClient(registry, logger)
	defer rpcClient.Close()

	directory := nodedirectory.NewClient(config.NodeDirectoryURL, logger)
	defer directory.Stop()

	broadcaster := broadcast.NewGateway(registry, directory, logger)

	// Surfaces are driven over the signal channel; the daemon has no window
	// manager of its own.
	ledger := approvals.NewLedger(
		approvals.NewOrchestrator(signalWindows{}, logger),
		config.ApprovalExpiry,
		logger,
	)

	service, err := broker.NewService(db, registry, accounts, rpcClient, ledger, broadcaster, config, logger)
	if err != nil {
		return err
	}
	if err := service.Start(); err != nil {
		return err
	}
	defer func() { _ = service.Stop() }()

	api := broker.NewAPI(service)
	hub := transport.NewHub(api, transport.Config{Token: *token}, logger)
	brokersignal.SetDefaultNodeNotificationHandler(hub.HandleSignal)

	server := &http.Server{
		Addr:              *listenAddr,
		Handler:           hub,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("transport listening", zap.String("addr", *listenAddr))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return hub.Close()
}

// signalWindows satisfies the window capability with signal events only: the
// approval-pending signal already tells attached UI surfaces what to render,
// so open and close need no extra work here.
type signalWindows struct{}

func (signalWindows) Open(string, approvals.Request) error { return nil }
func (signalWindows) Close(string) error                   { return nil }
