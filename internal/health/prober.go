package health

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ProbeKind selects how a target is checked.
type ProbeKind string

const (
	// ProbeGRPC calls the standard grpc.health.v1 Check method.
	ProbeGRPC ProbeKind = "grpc"
	// ProbeTCP only verifies that the address accepts connections.
	ProbeTCP ProbeKind = "tcp"
)

// Target is one probed endpoint.
type Target struct {
	Process string
	Kind    ProbeKind
	Addr    string
}

// Prober checks every target on a fixed interval and feeds the results into
// the registry, so /server_status answers stay fresh even for processes that
// never self-report.
type Prober struct {
	reg      *Registry
	targets  []Target
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewProber(reg *Registry, targets []Target, interval time.Duration, log *zap.Logger) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{
		reg:      reg,
		targets:  targets,
		interval: interval,
		timeout:  3 * time.Second,
		log:      log,
	}
}

// Run probes immediately, then on every tick until ctx is canceled.
func (p *Prober) Run(ctx context.Context) {
	p.sweep(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Prober) sweep(ctx context.Context) {
	for _, t := range p.targets {
		if err := p.probe(ctx, t); err != nil {
			p.reg.Report(t.Process, Status{State: StateError, Detail: err.Error()})
			p.log.Warn("probe failed", zap.String("process", t.Process), zap.Error(err))
			continue
		}
		p.reg.Report(t.Process, Status{State: StateOK})
	}
}

func (p *Prober) probe(ctx context.Context, t Target) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch t.Kind {
	case ProbeGRPC:
		conn, err := grpc.NewClient(t.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return err
		}
		defer conn.Close()
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			return err
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return &notServingError{status: resp.GetStatus()}
		}
		return nil
	default:
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", t.Addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

type notServingError struct {
	status healthpb.HealthCheckResponse_ServingStatus
}

func (e *notServingError) Error() string {
	return "health check returned " + e.status.String()
}
