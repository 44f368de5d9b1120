package http

import (
	"context"
	"net/http"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

type contextKey string

const userIDKey contextKey = "user_id"

// withIdentity resolves the caller from the front proxy's identity headers
// and upserts the user row. No subject header means no identity: 401.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := r.Header.Get(s.cfg.AuthSubjectHeader)
		if subject == "" {
			s.writeError(w, r, core.ErrUnauthorized)
			return
		}

		userID, err := s.repo.EnsureUser(r.Context(), storage.Identity{
			ExternalID: subject,
			Email:      r.Header.Get(s.cfg.AuthEmailHeader),
			Name:       r.Header.Get(s.cfg.AuthNameHeader),
		}, s.cfg.DefaultCurrency)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "resolve user", log.FieldError, err)
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the resolved user for the request. The identity middleware
// guarantees it is set on every API route.
func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
