package orders

// StatusDeclined is the coarse transaction status the POS uses for declined/cancelled orders.
const StatusDeclined = 4

// ProcessingStatus codes of the fulfillment stage, in increasing order.
const (
	ProcessingCreated   = 10
	ProcessingAccepted  = 20
	ProcessingReady     = 30
	ProcessingEnRoute   = 40
	ProcessingDelivered = 50
	ProcessingClosed    = 60
)

// Stage maps one processing status code to the lifecycle event it represents.
type Stage struct {
	Status    int
	EventType EventType
}

// stages is ordered by rank. En route (40) has no customer-facing event and is intentionally absent.
var stages = []Stage{
	{Status: ProcessingCreated, EventType: EventCreated},
	{Status: ProcessingAccepted, EventType: EventAccepted},
	{Status: ProcessingReady, EventType: EventReady},
	{Status: ProcessingDelivered, EventType: EventDelivered},
	{Status: ProcessingClosed, EventType: EventClosed},
}

// stageOf returns the stage and its rank for a processing status code.
func stageOf(status int) (Stage, int, bool) {
	for rank, st := range stages {
		if st.Status == status {
			return st, rank, true
		}
	}
	return Stage{}, -1, false
}

// readyRank is the lowest rank that the fulfillment rule may emit.
var readyRank = func() int {
	_, rank, _ := stageOf(ProcessingReady)
	return rank
}()
