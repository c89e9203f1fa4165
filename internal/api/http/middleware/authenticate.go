package middleware

import (
	"net/http"
	"strings"

	"github.com/dtroode/vaultdrop-server/internal/api/http/handler"
	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

// Authenticate validates bearer tokens and injects the user ID into the request context.
type Authenticate struct {
	tokenParser    model.TokenParser
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuthenticate(tokenParser model.TokenParser, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenParser: tokenParser, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid bearer token with 401.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			handler.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		userID, err := m.tokenParser.ParseAccessToken(tokenString)
		if err != nil {
			m.logger.Debug("authentication failed", "path", r.URL.Path, "error", err)
			handler.WriteError(w, http.StatusUnauthorized, "invalid authorization token")
			return
		}

		ctx := m.contextManager.SetUserIDToContext(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
