package engine

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// defaultRoomDayRate backs offers for rooms without a catalog rate.
const defaultRoomDayRate = 1000.0

// stepOffer is step 4: guard preconditions P1-P4, then compose and send
// the versioned offer.
func (e *Engine) stepOffer(ts *turnState) *stepResult {
	if res := e.preStep(ts, domain.StepOffer); res != nil {
		return res
	}
	ev := ts.event
	e.promoteCaptured(ts, domain.StepOffer)

	// P1: date confirmed.
	if !ev.DateConfirmed || ev.RequestedWindow == nil {
		ev.MoveToStep(domain.StepDate, "engine", "offer precondition: date unconfirmed")
		return continueTurn
	}
	// P2: room locked and evaluated against the current requirements+date.
	evalHash := domain.RoomEvalHash(ev.RequirementsHash, ev.RequestedWindow.DateISO)
	if ev.LockedRoomID == "" || ev.RoomEvalHash != evalHash {
		ev.MoveToStep(domain.StepRoom, "engine", "offer precondition: room not evaluated")
		return continueTurn
	}
	// P3: capacity present.
	if ev.Requirements.Participants == 0 {
		ev.MoveToStep(domain.StepRoom, "engine", "offer precondition: participants missing")
		return continueTurn
	}
	// P4: products chosen, autofilled, or explicitly skipped.
	if res := e.resolveProducts(ts); res != nil {
		return res
	}

	offer := e.composeOffer(ts)
	ts.addDraft("offer", e.renderOffer(ts, offer))
	ev.ThreadState = domain.ThreadAwaitingClient
	ev.MoveToStep(domain.StepNegotiation, "engine", "offer sent: "+offer.OfferID)
	ts.persist = true

	logger.Info("offer composed",
		zap.String("event_id", ev.EventID),
		zap.String("offer_id", offer.OfferID),
		zap.Int("version", offer.Version),
		zap.Float64("subtotal", offer.Subtotal),
	)

	// The same message can carry the acceptance; step 5 takes over inline.
	if ts.det.Acceptance.Match && ts.det.Acceptance.Confidence >= e.cfg.Workflow.AcceptanceConfidence {
		return continueTurn
	}
	return haltTurn
}

// resolveProducts settles P4. Non-nil result means the turn halts on a
// product prompt.
func (e *Engine) resolveProducts(ts *turnState) *stepResult {
	ev := ts.event

	if ts.det.NoExtras {
		ev.ProductsSkipped = true
		ts.persist = true
	}
	if len(ev.Products) > 0 || ev.ProductsSkipped {
		e.applyProductMentions(ts)
		return nil
	}

	// Autofill on a confident catalog match from the statement parts.
	if matches := e.cat.MatchProducts(joinStatements(ts), e.cfg.Workflow.ProductAutofillMin); len(matches) > 0 {
		for _, p := range matches {
			e.addProduct(ts, p.ID)
		}
		return nil
	}

	var b strings.Builder
	b.WriteString("Would you like to add catering or equipment?\n")
	var rows []ActionRow
	for _, p := range e.cat.Products {
		unit := "per event"
		if p.Unit == "per_person" {
			unit = "per person"
		}
		fmt.Fprintf(&b, "- %s (%.2f %s %s)\n", p.Name, p.Price, e.cfg.Offer.Currency, unit)
		rows = append(rows, ActionRow{Label: p.Name, Value: p.ID})
	}
	b.WriteString("Just say \"no extras\" if the room alone is all you need.")

	ts.addDraft("extras_prompt", strings.TrimRight(b.String(), "\n"), rows...)
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// applyProductMentions folds confident product mentions from this message
// into the selection (product detours land here).
func (e *Engine) applyProductMentions(ts *turnState) {
	matches := e.cat.MatchProducts(joinStatements(ts), e.cfg.Workflow.ProductAutofillMin)
	for _, p := range matches {
		e.addProduct(ts, p.ID)
	}
}

// addProduct appends a catalog product once, sizing per-person lines by
// the participant count.
func (e *Engine) addProduct(ts *turnState, productID string) {
	ev := ts.event
	for _, line := range ev.Products {
		if line.ProductID == productID {
			return
		}
	}
	p := e.cat.ProductByID(productID)
	if p == nil {
		return
	}
	qty := 1
	if p.Unit == "per_person" && ev.Requirements.Participants > 0 {
		qty = ev.Requirements.Participants
	}
	ev.Products = append(ev.Products, domain.ProductLine{
		ProductID: p.ID, Name: p.Name, Unit: p.Unit,
		Quantity: qty, UnitPrice: p.Price,
	})
	ts.persist = true
}

// composeOffer builds the next offer version, stores it as current, and
// refreshes the deposit block.
func (e *Engine) composeOffer(ts *turnState) *domain.Offer {
	ev := ts.event

	rate := defaultRoomDayRate
	if room := e.cat.RoomByName(ev.LockedRoomID); room != nil && room.DayRate > 0 {
		rate = room.DayRate
	}
	items := []domain.OfferLine{{
		Description: ev.LockedRoomID + " room hire",
		Unit:        "per_event",
		Quantity:    1,
		UnitPrice:   rate,
		Total:       rate,
	}}
	for _, p := range ev.Products {
		total := round2(p.UnitPrice * float64(p.Quantity))
		items = append(items, domain.OfferLine{
			Description: p.Name,
			Unit:        p.Unit,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			Total:       total,
		})
	}
	subtotal := 0.0
	for _, it := range items {
		subtotal += it.Total
	}
	subtotal = round2(subtotal)

	ev.OfferSequence++
	offer := domain.Offer{
		OfferID:       fmt.Sprintf("OF-%s-v%d", shortID(ev.EventID), ev.OfferSequence),
		Version:       ev.OfferSequence,
		CreatedAt:     ts.msg.TS,
		Status:        domain.OfferPending,
		DateISO:       ev.RequestedWindow.DateISO,
		RoomID:        ev.LockedRoomID,
		Items:         items,
		Subtotal:      subtotal,
		Currency:      e.cfg.Offer.Currency,
		DepositAmount: round2(subtotal * e.cfg.Offer.DepositRate),
		DepositDue:    ts.msg.TS.AddDate(0, 0, e.cfg.Offer.DepositDueDays).Format("2006-01-02"),
	}
	ev.Offers = append(ev.Offers, offer)
	ev.CurrentOfferID = offer.OfferID
	ev.OfferStatus = domain.OfferPending
	ev.OfferAccepted = false

	ev.DepositInfo.Required = true
	ev.DepositInfo.Amount = offer.DepositAmount
	ev.DepositInfo.DueDate = offer.DepositDue

	return &ev.Offers[len(ev.Offers)-1]
}

// renderOffer formats the client-facing offer draft.
func (e *Engine) renderOffer(ts *turnState, o *domain.Offer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is our offer %s for %s in %s:\n",
		o.OfferID, displayISO(o.DateISO), o.RoomID)
	for _, it := range o.Items {
		if it.Unit == "per_person" {
			fmt.Fprintf(&b, "- %s: %d x %.2f = %.2f %s\n",
				it.Description, it.Quantity, it.UnitPrice, it.Total, o.Currency)
		} else {
			fmt.Fprintf(&b, "- %s: %.2f %s\n", it.Description, it.Total, o.Currency)
		}
	}
	fmt.Fprintf(&b, "Total: %.2f %s\n", o.Subtotal, o.Currency)
	fmt.Fprintf(&b, "A deposit of %.2f %s is due by %s to secure the date.\n",
		o.DepositAmount, o.Currency, displayISO(o.DepositDue))
	b.WriteString("Let us know if this works for you.")
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
