package session

import (
	"context"
	"errors"
	"log/slog"

	"sgr/internal/auth/models"
	"sgr/internal/auth/store"
	"sgr/internal/auth/token"
	"sgr/pkg/platform/sentinel"
	"sgr/pkg/requestcontext"
)

// State answers "is this session valid" and "may it reach this screen" from
// the stored bearer token alone. Nothing is cached: every call re-reads the
// store and re-checks expiry against requestcontext.Now.
type State struct {
	store   store.Store
	decoder *token.Decoder
	logger  *slog.Logger
}

// NewState builds a State over st. A nil decoder uses a fresh one; a nil
// logger discards store failures.
func NewState(st store.Store, decoder *token.Decoder, logger *slog.Logger) *State {
	if decoder == nil {
		decoder = token.NewDecoder()
	}
	return &State{store: st, decoder: decoder, logger: logger}
}

// Claims decodes the currently stored token without checking expiry.
func (s *State) Claims(ctx context.Context) (*token.Claims, bool) {
	return storedClaims(ctx, s.store, s.decoder, s.logger)
}

func (s *State) IsAuthenticated(ctx context.Context) bool {
	_, ok := validClaims(ctx, s.store, s.decoder, s.logger)
	return ok
}

// Bearer returns the stored access token while it is still valid, for
// forwarding to the backend.
func (s *State) Bearer(ctx context.Context) (string, bool) {
	resp, err := store.AuthData(ctx, s.store)
	if err != nil {
		return "", false
	}
	claims, ok := s.decoder.Decode(resp.AccessToken)
	if !ok || !claims.ValidAt(requestcontext.Now(ctx)) {
		return "", false
	}
	return resp.AccessToken, true
}

// HasAnyCapability is false for unauthenticated sessions; otherwise it is
// true when the token grants at least one of the requirement's authorities.
func (s *State) HasAnyCapability(ctx context.Context, reqs []models.Capability) bool {
	_, authorized := s.Evaluate(ctx, reqs)
	return authorized
}

// Evaluate answers both questions from a single read of the token.
func (s *State) Evaluate(ctx context.Context, reqs []models.Capability) (authenticated, authorized bool) {
	claims, ok := validClaims(ctx, s.store, s.decoder, s.logger)
	if !ok {
		return false, false
	}
	return true, claims.HasAnyAuthority(models.Authorities(reqs))
}

func storedClaims(ctx context.Context, st store.Store, decoder *token.Decoder, logger *slog.Logger) (*token.Claims, bool) {
	resp, err := store.AuthData(ctx, st)
	if err != nil {
		if logger != nil && !errors.Is(err, sentinel.ErrNotFound) {
			logger.WarnContext(ctx, "session token unreadable, treating as signed out",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, false
	}
	return decoder.Decode(resp.AccessToken)
}

func validClaims(ctx context.Context, st store.Store, decoder *token.Decoder, logger *slog.Logger) (*token.Claims, bool) {
	claims, ok := storedClaims(ctx, st, decoder, logger)
	if !ok || !claims.ValidAt(requestcontext.Now(ctx)) {
		return nil, false
	}
	return claims, true
}
