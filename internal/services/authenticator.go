package services

import (
	"context"
	"strconv"

	"github.com/thereayou/building-chat/internal/models"
	pkglog "github.com/thereayou/building-chat/pkg/log"
)

// Authenticator превращает bearer-токен в UserIdentity.
// Любая ошибка дает ErrUnauthenticated, причина пишется только в лог.
type Authenticator struct {
	verifier TokenVerifier
	revoked  RevocationList
	users    UserDirectory
}

func NewAuthenticator(verifier TokenVerifier, revoked RevocationList, users UserDirectory) *Authenticator {
	return &Authenticator{verifier: verifier, revoked: revoked, users: users}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (models.UserIdentity, error) {
	logger := pkglog.Ctx(ctx)

	if token == "" {
		return models.UserIdentity{}, ErrUnauthenticated
	}

	subject, _, err := a.verifier.Subject(token)
	if err != nil {
		logger.Debug().Err(err).Msg("token rejected")
		return models.UserIdentity{}, ErrUnauthenticated
	}

	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(ctx, token)
		if err != nil {
			logger.Error().Err(err).Msg("revocation lookup failed")
			return models.UserIdentity{}, ErrUnauthenticated
		}
		if revoked {
			logger.Debug().Msg("token revoked")
			return models.UserIdentity{}, ErrUnauthenticated
		}
	}

	userID, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		logger.Debug().Str("subject", subject).Msg("non-numeric subject")
		return models.UserIdentity{}, ErrUnauthenticated
	}

	identity, err := a.users.FindUser(ctx, userID)
	if err != nil {
		logger.Debug().Err(err).Uint64(pkglog.FieldUserID, userID).Msg("subject not in user directory")
		return models.UserIdentity{}, ErrUnauthenticated
	}
	return identity, nil
}
