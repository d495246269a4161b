package mcpserver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
)

// sanitize turns any error into the text a tool caller is allowed to see: an apperr.Error
// surfaces its Message (never its wrapped cause, which may carry a file path or a driver
// detail), anything else is logged with full detail and replaced with a generic message.
func (s *Server) sanitize(ctx context.Context, op string, err error) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return apperr.New(e.Kind, op, e.Message)
	}
	s.log.Error(ctx, "mcpserver: unclassified error", zap.String("op", op), zap.Error(err))
	return apperr.New(apperr.Fatal, op, "internal error")
}
