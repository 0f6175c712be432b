package gateway

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetgate-io/fleetgate/internal/gateway/broker"
	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/internal/gateway/core/service"
	"github.com/fleetgate-io/fleetgate/internal/gateway/postgres"
	"github.com/fleetgate-io/fleetgate/internal/gateway/server/api"
	"github.com/fleetgate-io/fleetgate/internal/gateway/server/ws"
	"github.com/fleetgate-io/fleetgate/internal/gateway/storage"
	"github.com/fleetgate-io/fleetgate/pkg/log"
)

// GatewayServer owns the assembled gateway: the durable store, the pub/sub
// broker and the two listening servers.
type GatewayServer struct {
	store  *postgres.Store
	broker *broker.MQTTBroker
	stream *ws.Server
	api    *api.Server
}

// NewGatewayServer wires all adapters together. The durable store must be
// reachable or startup fails; the pub/sub backend and the archive are
// allowed to come up later.
func NewGatewayServer(ctx context.Context, cfg *Config) (*GatewayServer, error) {
	store, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}

	brk, err := broker.New(ctx, cfg.MQTT)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to set up broker: %w", err)
	}

	var archiver core.Archiver
	if cfg.S3.Endpoint != "" {
		archiver, err = storage.NewMinIOArchiver(ctx, cfg.S3)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to set up archive: %w", err)
		}
		log.Info("raw payload archive enabled", "bucket", cfg.S3.BucketName)
	}

	hub := ws.NewHub()
	svc := service.New(store, brk, hub, archiver)

	return &GatewayServer{
		store:  store,
		broker: brk,
		stream: ws.NewServer(cfg.Stream, svc, brk, hub),
		api:    api.NewServer(cfg.HTTP, svc, store.DB()),
	}, nil
}

// Run starts both servers and blocks until ctx is canceled or one of them
// fails. Shutdown order: stop accepting traffic, then disconnect the
// broker, then close the store.
func (g *GatewayServer) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return g.stream.Start(egCtx)
	})
	eg.Go(func() error {
		return g.api.Start(egCtx)
	})

	err := eg.Wait()

	disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.broker.Disconnect(disconnectCtx)

	if closeErr := g.store.Close(); closeErr != nil {
		log.Error(closeErr, "store close failed")
	}

	log.Info("gateway stopped")
	return err
}
