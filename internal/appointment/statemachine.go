package appointment

// Event names a lifecycle trigger.
type Event string

const (
	EventCreate     Event = "create"
	EventReschedule Event = "reschedule"
	EventCancel     Event = "cancel"
	// EventBeginSession and EventEndSession are driven by the external
	// session collaborator, not by patient or provider requests.
	EventBeginSession Event = "begin_session"
	EventEndSession   Event = "end_session"
	// EventBlock and EventUnblock are provider slot management.
	EventBlock   Event = "block"
	EventUnblock Event = "unblock"
)

type transitionKey struct {
	from  Status
	event Event
}

// transitions is the authoritative table. Actor guards (who may trigger
// an event) are enforced by the orchestrators, not here.
var transitions = map[transitionKey]Status{
	{statusNone, EventCreate}: StatusScheduled,
	{statusNone, EventBlock}:  StatusBlocked,

	{StatusScheduled, EventReschedule}: StatusScheduled,
	{StatusConfirmed, EventReschedule}: StatusScheduled,

	{StatusScheduled, EventCancel}:  StatusCancelled,
	{StatusConfirmed, EventCancel}:  StatusCancelled,
	{StatusInProgress, EventCancel}: StatusCancelled,

	{StatusScheduled, EventBeginSession}: StatusInProgress,
	{StatusConfirmed, EventBeginSession}: StatusInProgress,
	{StatusInProgress, EventEndSession}:  StatusCompleted,

	// A provider clears their own block; patients never touch it.
	{StatusBlocked, EventUnblock}: StatusCancelled,
}

// Transition returns the status resulting from applying event to from.
// Terminal states reject every event with a ConflictError naming the
// current status; unknown combinations are rejected the same way.
func Transition(from Status, event Event) (Status, error) {
	if from.Terminal() {
		return "", &ConflictError{Reason: ReasonTerminal, CurrentStatus: from}
	}
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		return "", &ConflictError{Reason: ReasonInvalidState, CurrentStatus: from}
	}
	return to, nil
}
