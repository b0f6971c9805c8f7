// Package calendar is the best-effort external calendar integration. The
// kernel fires these side effects after commit and ignores failures
// beyond logging them; a turn never fails on a calendar error.
package calendar

import (
	"context"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/pkg/logger"
)

// Block is one calendar reservation.
type Block struct {
	TeamID  string
	EventID string
	DateISO string
	Start   string
	End     string
	Title   string
}

// Client writes to the external calendar.
type Client interface {
	BlockDate(ctx context.Context, b Block) error
	ReleaseDate(ctx context.Context, teamID, eventID string) error
}

// LogClient is the default implementation: it records the write in the
// application log and succeeds. Deployments wire a real connector here.
type LogClient struct{}

// BlockDate implements Client.
func (LogClient) BlockDate(_ context.Context, b Block) error {
	logger.Info("calendar block",
		zap.String("team_id", b.TeamID),
		zap.String("event_id", b.EventID),
		zap.String("date", b.DateISO),
		zap.String("start", b.Start),
		zap.String("end", b.End),
		zap.String("title", b.Title),
	)
	return nil
}

// ReleaseDate implements Client.
func (LogClient) ReleaseDate(_ context.Context, teamID, eventID string) error {
	logger.Info("calendar release",
		zap.String("team_id", teamID),
		zap.String("event_id", eventID),
	)
	return nil
}
