package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"venuehq.io/banquet/internal/domain"
)

func TestRouteChange(t *testing.T) {
	tests := []struct {
		name          string
		changeType    ChangeType
		fromStep      int
		dateConfirmed bool
		callerStep    int
		wantNext      int
		wantCaller    int
		wantSkip      bool
	}{
		{
			name:       "date change from negotiation",
			changeType: ChangeDate, fromStep: domain.StepNegotiation,
			wantNext: domain.StepDate, wantCaller: domain.StepNegotiation,
		},
		{
			name:       "date change at intake is just intake",
			changeType: ChangeDate, fromStep: domain.StepIntake,
			wantNext: domain.StepIntake, wantCaller: domain.StepIntake, wantSkip: true,
		},
		{
			name:       "chained detour keeps the deepest caller",
			changeType: ChangeDate, fromStep: domain.StepDate, callerStep: domain.StepNegotiation,
			wantNext: domain.StepDate, wantCaller: domain.StepNegotiation,
		},
		{
			name:       "requirements change with confirmed date re-ranks rooms",
			changeType: ChangeRequirements, fromStep: domain.StepOffer, dateConfirmed: true,
			wantNext: domain.StepRoom, wantCaller: domain.StepOffer,
		},
		{
			name:       "requirements change without a date restarts at the date step",
			changeType: ChangeRequirements, fromStep: domain.StepOffer,
			wantNext: domain.StepDate, wantCaller: domain.StepOffer,
		},
		{
			name:       "room change",
			changeType: ChangeRoom, fromStep: domain.StepNegotiation,
			wantNext: domain.StepRoom, wantCaller: domain.StepNegotiation,
		},
		{
			name:       "product change re-composes the offer",
			changeType: ChangeProducts, fromStep: domain.StepNegotiation,
			wantNext: domain.StepOffer, wantCaller: domain.StepNegotiation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &domain.EventRecord{DateConfirmed: tt.dateConfirmed, CallerStep: tt.callerStep}
			d := routeChange(ev, tt.changeType, tt.fromStep)
			require.Equal(t, tt.wantNext, d.NextStep)
			require.Equal(t, tt.wantCaller, d.UpdatedCallerStep)
			require.Equal(t, tt.wantSkip, d.SkipReason != "")
		})
	}
}

func TestGatePromptOrder(t *testing.T) {
	g := GateStatus{
		OfferAccepted:  true,
		BillingMissing: []string{"company", "country"},
	}
	require.Contains(t, g.Prompt(), "invoice details")
	require.Contains(t, g.Prompt(), "company")

	g = GateStatus{
		OfferAccepted: true, BillingComplete: true,
		DepositRequired: true, DepositAmount: 360,
	}
	require.Contains(t, g.Prompt(), "360.00")

	g = GateStatus{
		OfferAccepted: true, BillingComplete: true,
		DepositRequired: true, DepositPaid: true,
	}
	require.Empty(t, g.Prompt())
}
