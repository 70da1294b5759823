// Package grpc — gRPC-сервер процесса виджета: health, reflection и метрики.
//
// Бизнес-API виджета отдаётся по HTTP; gRPC нужен оркестратору для проверки
// готовности: NOT_SERVING до завершения начальной загрузки фида.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-feed-comments/pkg/interceptors"
)

// ServiceName — имя сервиса в health-протоколе (наряду с "").
const ServiceName = "feedcomments.Widget"

// Options — параметры gRPC-сервера.
type Options struct {
	Logger     *slog.Logger
	Timeout    time.Duration
	Reflection bool
}

// Server — gRPC-сервер с health-сервисом.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

// New собирает сервер. Статус обоих имён — NOT_SERVING до SetServing(true).
func New(opts Options) *Server {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}

	grpc_prometheus.EnableHandlingTimeHistogram()

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(lg),
			interceptors.UnaryLoggingInterceptor(lg,
				healthpb.Health_Check_FullMethodName,
				healthpb.Health_Watch_FullMethodName,
			),
			interceptors.WithTimeout(opts.Timeout),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	if opts.Reflection {
		reflection.Register(srv)
	}

	grpc_prometheus.Register(srv)

	s := &Server{srv: srv, health: hs, log: lg}
	s.SetServing(false)

	return s
}

// SetServing переключает статус health.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve обслуживает lis до остановки сервера.
func (s *Server) Serve(lis net.Listener) error {
	const op = "transport/grpc/Serve"

	s.log.Info("grpc_listen_start", slog.String("addr", lis.Addr().String()))

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Stop переводит health в NOT_SERVING и мягко останавливает сервер;
// по истечении ctx соединения рвутся принудительно.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("grpc_stopped")
	case <-ctx.Done():
		s.log.Warn("grpc_force_stop")
		s.srv.Stop()
		<-done
	}
}
