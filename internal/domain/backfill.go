package domain

// BackfillEvent fills missing fields of a loaded event with safe defaults.
// Idempotent: existing values are preserved. Every event passes through
// this on load so that documents written by older builds keep working.
func BackfillEvent(e *EventRecord) {
	if e.Status == "" {
		e.Status = EventOpen
	}
	if e.CurrentStep < StepIntake || e.CurrentStep > StepConfirmation {
		e.CurrentStep = StepIntake
	}
	if !e.ThreadState.Valid() {
		e.ThreadState = ThreadInProgress
	}
	if e.SiteVisitState.Status == "" {
		e.SiteVisitState.Status = VisitIdle
	}
	if e.Offers == nil {
		e.Offers = []Offer{}
	}
	if e.Products == nil {
		e.Products = []ProductLine{}
	}
	if e.SelectedCatering == nil {
		e.SelectedCatering = []string{}
	}
	if e.Captured == nil {
		e.Captured = map[string]any{}
	}
	if e.CapturedSources == nil {
		e.CapturedSources = []string{}
	}
	if e.DeferredIntents == nil {
		e.DeferredIntents = []string{}
	}
	if e.PendingHILRequests == nil {
		e.PendingHILRequests = []HILRequestRef{}
	}
	if e.HILHistory == nil {
		e.HILHistory = []HILHistoryEntry{}
	}
	if e.Audit == nil {
		e.Audit = []AuditEntry{}
	}
	if e.Logs == nil {
		e.Logs = []string{}
	}
	if e.CandidateDates == nil {
		e.CandidateDates = []CandidateDate{}
	}
	if e.DateProposalHistory == nil {
		e.DateProposalHistory = []string{}
	}
}

// Backfill normalizes a loaded document: container allocation plus
// per-event defaults.
func Backfill(db *Database) {
	if db.Events == nil {
		db.Events = []*EventRecord{}
	}
	if db.Clients == nil {
		db.Clients = map[string]*ClientRecord{}
	}
	if db.Tasks == nil {
		db.Tasks = []*Task{}
	}
	for _, e := range db.Events {
		BackfillEvent(e)
	}
	for _, c := range db.Clients {
		if c.History == nil {
			c.History = []HistoryEntry{}
		}
		if c.EventIDs == nil {
			c.EventIDs = []string{}
		}
	}
}
