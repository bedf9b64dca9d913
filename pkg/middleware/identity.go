package middleware

import (
	"net/http"

	"scrim-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderPlayerID       = "X-Player-ID"
	HeaderPlayerRole     = "X-Player-Role"
	HeaderOrganizationID = "X-Organization-ID"
)

// PlayerIdentity reads the identity forwarded by the upstream auth gateway. Token issuance and
// verification live there, not here.
func PlayerIdentity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderPlayerID)
			if raw == "" {
				utils.ResponseUnauthorized(w, "Missing player identity")
				return
			}

			playerID, err := uuid.Parse(raw)
			if err != nil || playerID == uuid.Nil {
				logger.Warn("Invalid player identity header", zap.String("value", raw))
				utils.ResponseUnauthorized(w, "Invalid player identity")
				return
			}

			role := r.Header.Get(HeaderPlayerRole)
			switch role {
			case utils.RoleOrganizer, utils.RoleAdmin:
			default:
				role = utils.RolePlayer
			}

			ctx := utils.SetPlayerContext(r.Context(), playerID, role)
			if rawOrg := r.Header.Get(HeaderOrganizationID); rawOrg != "" {
				orgID, err := uuid.Parse(rawOrg)
				if err != nil || orgID == uuid.Nil {
					logger.Warn("Invalid organization header", zap.String("value", rawOrg))
					utils.ResponseUnauthorized(w, "Invalid organization identity")
					return
				}
				ctx = utils.SetOrganizationContext(ctx, orgID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
