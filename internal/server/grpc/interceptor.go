package grpc

import (
	"context"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "nodeClaims"

// open lists methods callable without a node token.
var open = map[string]bool{
	MethodPing:                     true,
	"/grpc.health.v1.Health/Check": true,
}

// ClaimsFromContext returns the claims of the calling node, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if open[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		s.logger.Warn(ctx, "node token rejected", "method", info.FullMethod, "error", err)
		return nil, toStatus(err)
	}
	if claims.Jurisdiction == s.home {
		s.logger.Warn(ctx, "callback from the home jurisdiction rejected", "node_id", claims.NodeID)
		return nil, status.Error(codes.PermissionDenied, "callbacks must come from a peer jurisdiction")
	}

	ctx = context.WithValue(ctx, claimsKey, claims)
	return handler(ctx, req)
}
