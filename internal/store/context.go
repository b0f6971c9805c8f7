package store

import "context"

type ctxKey string

const (
	ctxKeyTeamID    ctxKey = "team_id"
	ctxKeyManagerID ctxKey = "manager_id"
)

// WithTeam binds the tenant ID for the request lifetime. The store selects
// events_<team>.json from it.
func WithTeam(ctx context.Context, teamID string) context.Context {
	return context.WithValue(ctx, ctxKeyTeamID, teamID)
}

// TeamFrom returns the bound tenant ID, empty when unset.
func TeamFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTeamID).(string); ok {
		return v
	}
	return ""
}

// WithManager binds the acting manager identity.
func WithManager(ctx context.Context, managerID string) context.Context {
	return context.WithValue(ctx, ctxKeyManagerID, managerID)
}

// ManagerFrom returns the bound manager ID, empty when unset.
func ManagerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyManagerID).(string); ok {
		return v
	}
	return ""
}
