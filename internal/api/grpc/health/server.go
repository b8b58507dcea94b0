package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/guardian/internal/logger"
)

// Reporter publishes the serving status of one named service.
type Reporter struct {
	// health is the status registry served over gRPC.
	health *grpchealth.Server
	// service is the name clients probe; the empty name reports overall status.
	service string
}

// NewReporter returns a reporter that starts NOT_SERVING.
func NewReporter(service string) *Reporter {
	r := &Reporter{
		health:  grpchealth.NewServer(),
		service: service,
	}

	r.set(healthpb.HealthCheckResponse_NOT_SERVING)

	return r
}

// Report sets SERVING when err is nil and NOT_SERVING otherwise.
func (r *Reporter) Report(err error) {
	if err != nil {
		r.set(healthpb.HealthCheckResponse_NOT_SERVING)

		return
	}

	r.set(healthpb.HealthCheckResponse_SERVING)
}

// Register attaches the health service to a gRPC server.
func (r *Reporter) Register(s grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(s, r.health)
}

// Serve blocks until ctx is canceled, then stops gracefully.
func (r *Reporter) Serve(ctx context.Context, lis net.Listener) error {
	grpcServer := grpc.NewServer()
	r.Register(grpcServer)

	logger.InfoKV(ctx, "Health endpoint listening", "listen_address", lis.Addr().String(), "service", r.service)

	// Closed after GracefulStop finishes so Serve blocks until the server fully stops.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		r.health.Shutdown()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC health: %w", err)
	}

	<-done

	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (r *Reporter) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	return r.Serve(ctx, lis)
}

func (r *Reporter) set(status healthpb.HealthCheckResponse_ServingStatus) {
	r.health.SetServingStatus(r.service, status)
	r.health.SetServingStatus("", status)
}
