package health

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const testService = "guardian.watch"

func dial(t *testing.T, r *Reporter) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- r.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()

		cancel()
		require.NoError(t, <-done)
	})

	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	resp, err := c.Check(t.Context(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)

	return resp.GetStatus()
}

func TestReporter_FollowsReports(t *testing.T) {
	t.Parallel()

	r := NewReporter(testService)
	c := dial(t, r)

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, testService))

	r.Report(nil)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, testService))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, ""))

	r.Report(errors.New("poll failed"))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, testService))
}
