package health

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "memorial.v1.Guestbook"

// NewGRPCServer returns a gRPC server exposing grpc.health.v1 whose status
// follows the checker: SERVING while every dependency is up.
func NewGRPCServer(checker *Checker) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	setStatus(healthServer, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	checker.OnChange(func(ready bool) {
		status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
		if ready {
			status = grpc_health_v1.HealthCheckResponse_SERVING
		}
		setStatus(healthServer, status)
	})

	return server, healthServer
}

func setStatus(hs *health.Server, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
}
