package transport

import (
	"context"
	"time"

	"github.com/reliefhub/stock-service/internal/auth"
	"github.com/reliefhub/stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ContextInterceptor lifts the x-user-id metadata onto the request context.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if id := auth.GetUserID(ctx); id != "" {
			ctx = auth.WithUserID(ctx, id)
		}
		return handler(ctx, req)
	}
}

func LoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			log.Warn("rpc failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		log.Debug("rpc served", fields...)
		return resp, nil
	}
}
