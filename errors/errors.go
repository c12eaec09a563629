package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CloseForbidden is the websocket close code sent when a handshake is denied.
const CloseForbidden = 4403

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrForbidden            = fmt.Errorf("forbidden")
	ErrUnauthenticated      = fmt.Errorf("authentication required")
	ErrNotParticipant       = fmt.Errorf("not a participant in this conversation")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrValidation           = fmt.Errorf("validation rejected")
	ErrPersistence          = fmt.Errorf("persistence failure")
	ErrSlowConsumer         = fmt.Errorf("slow consumer")
	ErrSinkClosed           = fmt.Errorf("sink closed")
	ErrInvalidToken         = fmt.Errorf("invalid or expired token")
	ErrUnknownBackend       = fmt.Errorf("unknown backend")
)

// HTTPStatus maps an error of this package to a REST status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrUnauthenticated), stderrors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrForbidden), stderrors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case stderrors.Is(err, ErrConversationNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// MapToGRPCError converts a domain error into a gRPC status error.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case stderrors.Is(err, ErrUnauthenticated), stderrors.Is(err, ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case stderrors.Is(err, ErrForbidden), stderrors.Is(err, ErrNotParticipant):
		return status.Error(codes.PermissionDenied, err.Error())
	case stderrors.Is(err, ErrConversationNotFound):
		return status.Error(codes.NotFound, err.Error())
	case stderrors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
