package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// stepRoom is step 3: match capacity and features against the catalog,
// fast-skip when the existing lock is still valid, otherwise rank rooms
// and lock on an explicit pick.
func (e *Engine) stepRoom(ts *turnState) *stepResult {
	if res := e.preStep(ts, domain.StepRoom); res != nil {
		return res
	}
	ev := ts.event

	if !ev.DateConfirmed || ev.RequestedWindow == nil {
		ev.MoveToStep(domain.StepDate, "engine", "room step without a confirmed date")
		return continueTurn
	}

	evalHash := domain.RoomEvalHash(ev.RequirementsHash, ev.RequestedWindow.DateISO)

	// Fast-skip: the locked room survives the (possibly new) date and
	// requirements. Hash match or a fresh capacity+availability check.
	if ev.LockedRoomID != "" {
		if ev.RoomEvalHash == evalHash || e.roomStillValid(ts, ev.LockedRoomID) {
			ev.RoomEvalHash = evalHash
			ts.persist = true

			if ev.CallerStep > domain.StepRoom {
				caller := ev.CallerStep
				ev.CallerStep = 0
				ts.addDraft("room_recheck", fmt.Sprintf(
					"%s is still available on %s, so everything else stays as agreed.",
					ev.LockedRoomID, displayISO(ev.RequestedWindow.DateISO)))
				ev.MoveToStep(caller, "engine", "room re-verified, returning to caller")
				ev.ThreadState = domain.ThreadAwaitingClient
				logger.Info("room fast-skip to caller",
					zap.String("event_id", ev.EventID),
					zap.String("room", ev.LockedRoomID),
					zap.Int("caller_step", caller),
				)
				return haltTurn
			}
			ev.MoveToStep(domain.StepOffer, "engine", "room lock still valid")
			return continueTurn
		}
		// The lock no longer fits; re-rank below.
		logger.Info("room lock invalidated",
			zap.String("event_id", ev.EventID),
			zap.String("room", ev.LockedRoomID),
		)
		ev.LockedRoomID = ""
		ts.persist = true
	}

	// Explicit pick in this message.
	if ts.det.RoomMention != "" {
		if res := e.lockRoom(ts, ts.det.RoomMention, evalHash); res != nil {
			return res
		}
	}

	if ev.Requirements.Participants == 0 {
		ts.addDraft("participants_prompt",
			"How many guests are you expecting? That decides which rooms we can offer.")
		ev.ThreadState = domain.ThreadAwaitingClientResponse
		ts.persist = true
		return haltTurn
	}

	ranked := e.cat.RankRooms(ev.Requirements.Participants, nil)
	if len(ranked) == 0 {
		e.enqueueManualReview(ts, fmt.Sprintf(
			"no room fits %d guests", ev.Requirements.Participants))
		ts.addDraft("no_room_fits", fmt.Sprintf(
			"For %d guests we would combine rooms; our events team will send you a tailored proposal.",
			ev.Requirements.Participants))
		return haltTurn
	}

	var b strings.Builder
	fmt.Fprintf(&b, "For %s with %d guests these rooms are available:\n",
		displayISO(ev.RequestedWindow.DateISO), ev.Requirements.Participants)
	var rows []ActionRow
	for _, r := range ranked {
		fmt.Fprintf(&b, "- %s (up to %d guests", r.Name, r.Capacity)
		if len(r.Features) > 0 {
			fmt.Fprintf(&b, ", %s", strings.Join(r.Features, ", "))
		}
		b.WriteString(")\n")
		rows = append(rows, ActionRow{Label: r.Name, Value: r.ID})
	}
	b.WriteString("Which one shall we reserve for you?")

	ts.addDraft("room_options", strings.TrimRight(b.String(), "\n"), rows...)
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// lockRoom validates and locks an explicitly picked room. Returns nil when
// the pick is unusable so the caller falls through to the ranked list.
func (e *Engine) lockRoom(ts *turnState, pick, evalHash string) *stepResult {
	ev := ts.event
	room := e.cat.RoomByName(pick)
	if room == nil {
		return nil
	}
	if ev.Requirements.Participants > 0 && room.Capacity < ev.Requirements.Participants {
		ts.addDraft("room_too_small", fmt.Sprintf(
			"%s holds up to %d guests, which is tight for %d. A larger room would serve you better:",
			room.Name, room.Capacity, ev.Requirements.Participants))
		return nil
	}
	if e.roomConflict(ts, room.Name, ev.RequestedWindow.DateISO) {
		ts.addDraft("room_taken", fmt.Sprintf(
			"%s is already booked on %s. These rooms are free:",
			room.Name, displayISO(ev.RequestedWindow.DateISO)))
		return nil
	}

	ev.LockedRoomID = room.Name
	ev.RoomEvalHash = evalHash
	ts.addDraft("room_locked", fmt.Sprintf(
		"%s is reserved for you on %s.", room.Name, displayISO(ev.RequestedWindow.DateISO)))
	ts.persist = true

	if ev.CallerStep > domain.StepRoom {
		caller := ev.CallerStep
		ev.CallerStep = 0
		ev.MoveToStep(caller, "engine", "room locked, returning to caller")
		return continueTurn
	}
	ev.MoveToStep(domain.StepOffer, "engine", "room locked")
	return continueTurn
}

// roomStillValid re-checks capacity and calendar availability for the
// locked room against the current requirements and date.
func (e *Engine) roomStillValid(ts *turnState, roomID string) bool {
	ev := ts.event
	room := e.cat.RoomByName(roomID)
	if room == nil {
		return false
	}
	if ev.Requirements.Participants > 0 && room.Capacity < ev.Requirements.Participants {
		return false
	}
	return !e.roomConflict(ts, roomID, ev.RequestedWindow.DateISO)
}
