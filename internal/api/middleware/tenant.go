package middleware

import (
	"github.com/gin-gonic/gin"

	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/store"
)

const (
	// TeamIDHeader selects the per-tenant state file.
	TeamIDHeader = "X-Team-Id"
	// ManagerIDHeader identifies the manager deciding HIL tasks.
	ManagerIDHeader = "X-Manager-Id"
)

// Tenant resolves the team and manager identity for the request and
// stores both in the request context for the store and engine layers.
// Headers are only honored when header routing is enabled; otherwise the
// configured defaults apply. A token-derived team (jwt auth mode) wins
// over the config default but loses to an explicit header.
func Tenant(cfg config.TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		team := store.TeamFrom(ctx)
		if team == "" {
			team = cfg.DefaultTeamID
		}
		manager := store.ManagerFrom(ctx)
		if manager == "" {
			manager = cfg.DefaultManagerID
		}

		if cfg.HeaderEnabled {
			if h := c.GetHeader(TeamIDHeader); h != "" {
				team = h
			}
			if h := c.GetHeader(ManagerIDHeader); h != "" {
				manager = h
			}
		}

		ctx = store.WithTeam(ctx, team)
		ctx = store.WithManager(ctx, manager)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
