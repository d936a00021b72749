package orders

// Derive turns one observed change into zero or more lifecycle events.
//
// The rules apply independently, so one change may yield several events:
//   - first observation always yields created, plus declined if it is already declined;
//   - acceptance is read from the explicit accepted flag, and an order that is already
//     accepted on first sight still yields accepted;
//   - a transition into the declined status yields declined once;
//   - a processing status change yields the event of the current stage when it is ready or later.
//     Intermediate stages skipped between polls are not synthesized.
//
// Derive never modifies change and returns the same events for the same input.
func Derive(change TransactionChange) []OrderEvent {
	var types []EventType

	created := change.Action == ActionCreated
	updated := change.Action == ActionUpdated

	if created {
		types = append(types, EventCreated)
		if intIs(change.Status, StatusDeclined) {
			types = append(types, EventDeclined)
		}
	}

	if boolIs(change.IsAccepted) && (created || !boolIs(change.OldIsAccepted)) {
		types = append(types, EventAccepted)
	}

	if updated && !intIs(change.OldStatus, StatusDeclined) && intIs(change.Status, StatusDeclined) {
		types = append(types, EventDeclined)
	}

	if updated && !intEqual(change.ProcessingStatus, change.OldProcessingStatus) && change.ProcessingStatus != nil {
		if st, rank, ok := stageOf(*change.ProcessingStatus); ok && rank >= readyRank {
			types = append(types, st.EventType)
		}
	}

	if len(types) == 0 {
		return nil
	}

	events := make([]OrderEvent, 0, len(types))
	for _, t := range types {
		events = append(events, newEvent(change, t))
	}
	return events
}

// newEvent copies the carried-through fields of change into a fresh event.
func newEvent(change TransactionChange, t EventType) OrderEvent {
	ev := OrderEvent{
		TransactionID: change.TransactionID,
		CustomerID:    copyPtr(change.CustomerID),
		ServiceMode:   change.ServiceMode,
		EventType:     t,
		IncomeAmount:  copyPtr(change.IncomeAmount),
		PayedSum:      copyPtr(change.PayedSum),
	}
	if !change.DateStart.IsZero() {
		d := change.DateStart
		ev.OrderDate = &d
	}
	return ev
}

func intIs(p *int, v int) bool { return p != nil && *p == v }

func boolIs(p *bool) bool { return p != nil && *p }

func intEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
