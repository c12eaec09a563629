package auth

import (
	"context"
	"fasolink-chat/domain"
	"slices"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Methods under this prefix (the standard health service) do not require a token.
const publicPrefix = "/grpc.health.v1.Health/"

// serviceRoles names the role a token must carry for each service.
var serviceRoles = map[string]string{
	"/fasolink.realtime.v1.Publisher/": RolePublisher,
	"/fasolink.realtime.v1.Operator/":  RoleOperator,
}

type contextKey string

const (
	PrincipalKey contextKey = "principal"
	RolesKey     contextKey = "roles"
)

// RoleInterceptor handles JWT validation for incoming service calls.
// Publisher calls need the publisher role, operator calls the operator role,
// methods of any other service are denied.
func RoleInterceptor(issuer *TokenIssuer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any,
		info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata is missing")
		}

		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
		}

		// Expecting the standard "Bearer <token>" format
		tokenStr := strings.TrimPrefix(values[0], "Bearer ")

		claims, err := issuer.ValidateToken(tokenStr)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		role, known := requiredRole(info.FullMethod)
		if !known {
			return nil, status.Error(codes.PermissionDenied, "unknown service")
		}
		if !slices.Contains(claims.Roles, role) {
			return nil, status.Errorf(codes.PermissionDenied, "%s role required", role)
		}

		newCtx := context.WithValue(ctx, PrincipalKey, domain.Principal{
			ID:       domain.UserID(claims.UserID),
			Username: claims.Username,
		})
		newCtx = context.WithValue(newCtx, RolesKey, claims.Roles)
		return handler(newCtx, req)
	}
}

// PrincipalFromContext returns the caller injected by RoleInterceptor.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(domain.Principal)
	return p, ok
}

func isPublicMethod(method string) bool {
	return strings.HasPrefix(method, publicPrefix)
}

func requiredRole(method string) (string, bool) {
	for prefix, role := range serviceRoles {
		if strings.HasPrefix(method, prefix) {
			return role, true
		}
	}
	return "", false
}
