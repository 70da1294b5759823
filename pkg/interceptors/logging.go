package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-feed-comments/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// UnaryLoggingInterceptor реализует логирование unary-вызовов с контекстным логгером.
//
// Поведение:
//   - x-request-id берётся из входящего metadata, иначе генерируется UUID;
//   - обогащённый *slog.Logger (request_id, method, peer) кладётся в context (pkg/log);
//   - после handler пишется одна строка msg="grpc" с code и dur:
//     Info для OK, Warn для остальных кодов;
//   - для методов из quiet итоговая строка не пишется (частые пробы health),
//     логгер в контекст кладётся всё равно.
func UnaryLoggingInterceptor(base *slog.Logger, quiet ...string) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	skip := make(map[string]struct{}, len(quiet))
	for _, m := range quiet {
		skip[m] = struct{}{}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		var rid string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
				rid = v[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
		}

		peerStr := "-"
		if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
			peerStr = p.Addr.String()
		}

		l := base.With(
			slog.String("request_id", rid),
			slog.String("method", info.FullMethod),
			slog.String("peer", peerStr),
		)
		ctx = log.Into(ctx, l)

		resp, err := handler(ctx, req)

		if _, ok := skip[info.FullMethod]; ok {
			return resp, err
		}

		code := status.Code(err)
		lvl := slog.LevelInfo
		if code != codes.OK {
			lvl = slog.LevelWarn
		}

		l.Log(ctx, lvl, "grpc",
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}
