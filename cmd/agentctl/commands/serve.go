package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenzoki/actorrt/internal/logz"
	"github.com/tenzoki/actorrt/internal/metrics"
	"github.com/tenzoki/actorrt/runtime"
	"github.com/tenzoki/actorrt/runtimeconfig"
	"github.com/tenzoki/actorrt/transport/memory"
	"github.com/tenzoki/actorrt/transport/tcp"
	"github.com/tenzoki/actorrt/transport/ws"
)

var (
	serveTransport string
	serveListen    string
	serveConfig    string
	serveDebug     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Boot a Runtime over a transport and run the demo pipeline",
	Long: `serve boots an actorrt Runtime, wires the producer/consumer demo
pipeline (Producer replies Response(v*2) to Request(v); Consumer
accumulates total += r), seeds one Request, and steps the runtime on a
ticker, logging population stats each tick, until no pending work
remains or the process is interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "transport to host the bus on: memory, tcp, or ws (overrides --config)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address for tcp/ws transports (overrides --config)")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "path to a runtimeconfig YAML file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable debug logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := &runtimeconfig.Config{
		Transport:          runtimeconfig.TransportMemory,
		Listen:             ":7711",
		StepIntervalMillis: 50,
	}
	if serveConfig != "" {
		loaded, err := runtimeconfig.Load(serveConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if serveTransport != "" {
		cfg.Transport = serveTransport
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if serveDebug {
		cfg.Debug = true
	}

	lg := logz.New(cfg.Debug)
	defer lg.Sync() //nolint:errcheck

	closeTransport, err := hostTransport(cfg, lg)
	if err != nil {
		return err
	}
	defer closeTransport()

	r := runtime.New().WithLogger(lg)
	collector := metrics.NewCollector("actorrt")
	if err := prometheus.Register(collector); err != nil {
		lg.Debug("metrics collector already registered", zap.Error(err))
	}

	producerID := wireDemoPipeline(r, lg)
	if _, err := r.StartAll(); err != nil {
		lg.Warn("StartAll reported errors", zap.Error(err))
	}

	if err := runtime.SendByID(r, producerID, Request{V: 5}); err != nil {
		return fmt.Errorf("agentctl: seed request: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		lg.Info("received interrupt, shutting down")
		cancel()
	}()

	ticker := time.NewTicker(cfg.StepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result := r.Step()
			collector.Refresh(r)
			collector.ObserveStep(result.Replied)
			stats := r.Stats()
			lg.Info("step",
				zap.Int("drained", result.Drained),
				zap.Int("handled", result.Handled),
				zap.Int("replied", result.Replied),
				zap.Int("running", stats.Running),
				zap.Int("pending", stats.Pending),
			)
			if !r.HasPendingWork() {
				lg.Info("no pending work, demo pipeline settled")
				return nil
			}
		}
	}
}

// hostTransport stands up the chosen transport and returns a cleanup
// function. The demo pipeline itself runs entirely in-process through
// the Runtime (C5); the transport is hosted so a remote peer could join
// the same bus, exercising C6's contract without requiring one here.
func hostTransport(cfg *runtimeconfig.Config, lg *zap.Logger) (func(), error) {
	switch cfg.Transport {
	case runtimeconfig.TransportMemory:
		net := memory.New()
		lg.Info("hosting in-process memory transport")
		return func() { _ = net.Close() }, nil

	case runtimeconfig.TransportTCP:
		srv, err := tcp.Listen(cfg.Listen, lg)
		if err != nil {
			return nil, err
		}
		lg.Info("hosting tcp transport", zap.String("addr", srv.Addr()))
		return func() { _ = srv.Close() }, nil

	case runtimeconfig.TransportWS:
		srv := ws.NewServer(lg)
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", srv.Handler)
		httpSrv := &http.Server{Addr: cfg.Listen, Handler: mux}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lg.Warn("ws transport http server stopped", zap.Error(err))
			}
		}()
		lg.Info("hosting ws transport", zap.String("addr", cfg.Listen))
		return func() {
			_ = srv.Close()
			_ = httpSrv.Close()
		}, nil

	default:
		return nil, fmt.Errorf("agentctl: unknown transport %q", cfg.Transport)
	}
}
