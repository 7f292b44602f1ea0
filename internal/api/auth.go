package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"travelbooking/internal/auth"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	authorizationMetadataKey = "authorization"
	requestIDMetadataKey     = "x-request-id"
	clientKeyUnknown         = "unknown"
)

// httpClientKey identifies the rate limit bucket of an HTTP request: the
// authenticated user when known, the remote host otherwise.
func httpClientKey(r *http.Request) string {
	if caller := auth.CallerFrom(r.Context()); caller != nil {
		return "user:" + caller.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// AuthInterceptor resolves bearer tokens from gRPC metadata and applies the
// per-caller rate limit.
type AuthInterceptor struct {
	gate    *auth.Gate
	limiter *rateLimiter
}

func NewAuthInterceptor(gate *auth.Gate, limiter *rateLimiter) *AuthInterceptor {
	return &AuthInterceptor{gate: gate, limiter: limiter}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isHealthMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		ctx, err := a.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		if !a.limiter.allow(a.clientKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, errRateLimited.Error())
		}
		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) authenticate(ctx context.Context) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	credential := first(md.Get(authorizationMetadataKey))
	if credential == "" {
		return ctx, nil
	}
	caller, err := a.gate.Authorize(credential)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return auth.WithCaller(ctx, caller), nil
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	if caller := auth.CallerFrom(ctx); caller != nil {
		return "user:" + caller.UserID
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		host, _, err := net.SplitHostPort(p.Addr.String())
		if err == nil && host != "" {
			return host
		}
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func isHealthMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		dur := time.Since(start)

		code := codes.OK
		if err != nil {
			code = status.Code(err)
		}

		remote := clientKeyUnknown
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		base.Info().
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", remote).
			Str("code", code.String()).
			Dur("duration", dur).
			Msg("grpc request")

		return resp, err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if id := first(md.Get(requestIDMetadataKey)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
