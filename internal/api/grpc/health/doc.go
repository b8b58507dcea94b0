// Package health exposes the standard gRPC health service.
//
// The watch daemon reports SERVING after a successful poll of assigned alerts
// and NOT_SERVING after a failed one, so supervisors can probe it with any
// grpc_health_v1 client.
package health
