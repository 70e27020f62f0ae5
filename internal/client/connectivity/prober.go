package connectivity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Prober reports whether the backend is reachable. A nil error means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// PingProber pings the remote database through the gateway.
type PingProber struct {
	Pinger remote.Pinger
}

func (p PingProber) Probe(ctx context.Context) error {
	return p.Pinger.Ping(ctx)
}

// HealthProber asks a gRPC health endpoint for the serving status of Service
// (empty means the whole server).
type HealthProber struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	Service string
}

var errNotServing = errors.New("backend is not serving")

// NewHealthProber creates a lazily connecting client for target. Without
// explicit dial options the connection is plaintext.
func NewHealthProber(target, service string, opts ...grpc.DialOption) (*HealthProber, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("health client for %s: %w", target, err)
	}
	return &HealthProber{conn: conn, client: healthpb.NewHealthClient(conn), Service: service}, nil
}

func (h *HealthProber) Probe(ctx context.Context) error {
	resp, err := h.client.Check(ctx, &healthpb.HealthCheckRequest{Service: h.Service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", errNotServing, resp.GetStatus())
	}
	return nil
}

func (h *HealthProber) Close() error {
	return h.conn.Close()
}

// MultiProber is online only when every prober succeeds.
type MultiProber []Prober

func (m MultiProber) Probe(ctx context.Context) error {
	var errs []error
	for _, p := range m {
		if err := p.Probe(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
