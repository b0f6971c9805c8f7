package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// GateStatus is the order-independent confirmation check: an accepted
// offer needs complete billing and a paid deposit before HIL sign-off.
type GateStatus struct {
	ReadyForHIL     bool     `json:"ready_for_hil"`
	OfferAccepted   bool     `json:"offer_accepted"`
	BillingComplete bool     `json:"billing_complete"`
	BillingMissing  []string `json:"billing_missing,omitempty"`
	DepositRequired bool     `json:"deposit_required"`
	DepositPaid     bool     `json:"deposit_paid"`
	DepositAmount   float64  `json:"deposit_amount,omitempty"`
}

// Prompt returns the next thing to ask the client for: billing first,
// then the deposit, nothing when the gate is green.
func (g GateStatus) Prompt() string {
	if !g.BillingComplete {
		return "To finalize your booking we still need your invoice details: " +
			strings.Join(g.BillingMissing, ", ") + "."
	}
	if g.DepositRequired && !g.DepositPaid {
		return fmt.Sprintf(
			"The last open item is the deposit of %.2f. Once it arrives we will confirm your booking.",
			g.DepositAmount)
	}
	return ""
}

// evaluateGate computes the gate status, refreshing out-of-band state from
// disk first. When this turn captured billing that is not yet persisted,
// only the deposit fields are refreshed; the deposit may have been marked
// paid through the pay-deposit endpoint in parallel.
func (e *Engine) evaluateGate(ts *turnState) GateStatus {
	ev := ts.event

	if disk, err := e.store.Load(ts.teamID); err == nil {
		if dev := disk.FindEvent(ev.EventID); dev != nil {
			if dev.DepositInfo.Paid && !ev.DepositInfo.Paid {
				ev.DepositInfo.Paid = true
				ev.DepositInfo.PaidAt = dev.DepositInfo.PaidAt
			}
			if !ts.billingCaptured {
				mergeBilling(&ev.BillingDetails, dev.BillingDetails)
			}
		}
	} else {
		logger.Warn("gate disk refresh failed", zap.Error(err))
	}

	g := GateStatus{
		OfferAccepted:   ev.OfferAccepted,
		BillingComplete: ev.BillingDetails.Complete(),
		BillingMissing:  ev.BillingDetails.Missing(),
		DepositRequired: ev.DepositInfo.Required,
		DepositPaid:     ev.DepositInfo.Paid,
		DepositAmount:   ev.DepositInfo.Amount,
	}
	g.ReadyForHIL = g.OfferAccepted && g.BillingComplete &&
		(!g.DepositRequired || g.DepositPaid)
	return g
}

// runAcceptGate drives an acceptance through the gate: prompt for what is
// missing or hand the case to HIL.
func (e *Engine) runAcceptGate(ts *turnState) *stepResult {
	ev := ts.event
	g := e.evaluateGate(ts)

	logger.Info("confirmation gate",
		zap.String("event_id", ev.EventID),
		zap.Bool("billing_complete", g.BillingComplete),
		zap.Bool("deposit_paid", g.DepositPaid),
		zap.Bool("ready_for_hil", g.ReadyForHIL),
	)

	if !g.BillingComplete {
		ev.BillingRequirements.AwaitingBillingForAccept = true
		ev.BillingRequirements.LastMissing = g.BillingMissing
		ts.addDraft("billing_request",
			"Great, thank you for accepting the offer. "+g.Prompt())
		ev.ThreadState = domain.ThreadAwaitingClient
		ts.persist = true
		return haltTurn
	}

	ev.BillingRequirements.AwaitingBillingForAccept = false
	ev.BillingRequirements.LastMissing = nil

	if g.DepositRequired && !g.DepositPaid {
		body := g.Prompt()
		if ev.DepositInfo.DueDate != "" {
			body = fmt.Sprintf(
				"Thank you, your invoice details are complete. The deposit of %.2f %s is due by %s; your booking is confirmed as soon as it arrives.",
				g.DepositAmount, e.cfg.Offer.Currency, displayISO(ev.DepositInfo.DueDate))
		}
		ts.addDraft("deposit_reminder", body)
		ev.ThreadState = domain.ThreadAwaitingClient
		ts.persist = true
		return haltTurn
	}

	return e.enqueueAcceptanceHIL(ts)
}

// mergeBilling fills empty fields from the disk copy without overwriting
// anything captured in memory.
func mergeBilling(dst *domain.BillingDetails, src domain.BillingDetails) {
	if dst.Company == "" {
		dst.Company = src.Company
	}
	if dst.Street == "" {
		dst.Street = src.Street
	}
	if dst.PostalCode == "" {
		dst.PostalCode = src.PostalCode
	}
	if dst.City == "" {
		dst.City = src.City
	}
	if dst.Country == "" {
		dst.Country = src.Country
	}
	if dst.VATID == "" {
		dst.VATID = src.VATID
	}
}
