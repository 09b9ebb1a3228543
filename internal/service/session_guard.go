package service

import (
	"errors"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/port"

	"go.uber.org/zap"
)

// invalidateOnAuthErr is the cross-cutting reaction to an upstream 401: no
// matter which operation tripped it, the session pair is cleared so the next
// route-guard evaluation redirects to sign-in. Returns the gateway-facing
// error; non-auth errors pass through untouched.
func invalidateOnAuthErr(sessions port.SessionStore, logger *zap.Logger, sid string, err error) error {
	var upstreamAuth *domain.ErrUpstreamAuth
	if !errors.As(err, &upstreamAuth) {
		return err
	}

	sessions.Clear(sid)
	logger.Warn("session invalidated by upstream 401", zap.String("session_id", sid))
	return &domain.ErrUnauthorized{Message: upstreamAuth.Error()}
}

// requireSession loads the session pair or fails with ErrUnauthorized.
func requireSession(sessions port.SessionStore, sid string) (domain.Session, error) {
	sess, ok := sessions.Load(sid)
	if !ok {
		return domain.Session{}, &domain.ErrUnauthorized{}
	}
	return sess, nil
}
