package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/clock"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/config"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/connector"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/connector/hcloudconnector"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/connector/inmemory"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/etcdstore"
	jobopsinmemory "github.com/Sh00ty/cloud-nlb-reconciler/internal/jobops/inmemory"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/metrics"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/reconciler"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read app config")
	}
	log.Logger = log.Level(config.LogLevel(cfg.LoggerLevel))

	if cfg.NodeID == "" {
		// No stable identity configured (e.g. a bare docker run without
		// the orchestrator's pod name injected): mint one so leader
		// election still has a distinct candidate id per process.
		cfg.NodeID = uuid.NewString()
		log.Warn().Str("node_id", cfg.NodeID).Msg("no NODE_ID configured, generated one for this process")
	}

	etcdClient, err := clientv3.New(clientv3.Config{Endpoints: cfg.EtcdEndpoints})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create etcd client")
	}
	defer etcdClient.Close()

	assocStore := etcdstore.New(etcdClient, log.Logger)
	conn := dialConnector(cfg)
	jobOps := jobopsinmemory.New()

	var mtr metrics.Metrics = metrics.Noop{}
	if cfg.StatsdAddr != "" {
		mtr = metrics.NewStatsd(cfg.NodeID, cfg.StatsdAddr)
	}

	loopCfg := reconciler.Config{
		ReconciliationDelay:   time.Duration(cfg.ReconciliationDelayMs) * time.Millisecond,
		ReconciliationTimeout: time.Duration(cfg.ReconciliationTimeoutMs) * time.Millisecond,
		FanOut:                cfg.FanOut,
	}
	driver := reconciler.New(loopCfg, assocStore, conn, jobOps, clock.Real{}, mtr, log.Logger)

	elector := etcdstore.NewElector(etcdClient, cfg.NodeID, log.Logger)
	lost, err := elector.Campaign(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to win reconciler leader election")
	}
	defer func() {
		resignCtx, resignCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer resignCancel()
		_ = elector.Resign(resignCtx)
	}()

	go func() {
		select {
		case <-lost:
			log.Warn().Msg("lost reconciler leadership, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	grpcClose := startGrpcServer(cfg)
	defer grpcClose()

	probeClose := startProbeServer(cfg.ProbeAddr)
	defer probeClose()

	go driver.Run(ctx)

	<-ctx.Done()
	driver.Shutdown()
}

// dialConnector picks a real hcloud-backed Connector when a token is
// configured, falling back to the in-memory fake so the binary still
// starts in environments without cloud credentials (e.g. local dev
// against a stub etcd).
func dialConnector(cfg config.Config) connector.Connector {
	if cfg.HcloudToken == "" {
		log.Warn().Msg("no HCLOUD_TOKEN configured, using in-memory connector")
		return inmemory.New()
	}
	return hcloudconnector.New(cfg.HcloudToken)
}

func startGrpcServer(cfg config.Config) func() {
	srv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if cfg.GrpcDebug {
		reflection.Register(srv)
	}

	listenAddr := fmt.Sprintf("%s:%d", cfg.GrpcServerAddr, cfg.GrpcServerPort)
	ls, err := net.Listen("tcp4", listenAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bind grpc server addr")
	}
	go func() {
		log.Info().Msgf("running grpc health/reflection server on %s", listenAddr)
		if err := srv.Serve(ls); err != nil {
			log.Error().Err(err).Msg("grpc server stopped")
		}
	}()
	return srv.GracefulStop
}

func startProbeServer(addr string) func() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Handler: mux, Addr: addr}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start http probe server")
		}
	}()
	return func() {
		_ = srv.Close()
	}
}
