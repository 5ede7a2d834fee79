package models

// Status is the closed set of lifecycle states a case record can be in.
// Exactly one value at any time; there are no parallel states.
type Status string

const (
	// StatusNew is the intake state. No officer is assigned yet.
	StatusNew Status = "NEW"
	// StatusAssigned means an officer has been designated but no
	// investigative work is recorded yet.
	StatusAssigned Status = "ASSIGNED"
	// StatusInProgress means investigation has begun (first note, or a
	// declined close request).
	StatusInProgress Status = "IN_PROGRESS"
	// StatusPendingClose means the assigned officer has proposed closure
	// and a supervising role has yet to resolve it.
	StatusPendingClose Status = "PENDING_CLOSE"
	// StatusClosed is terminal: the case was resolved.
	StatusClosed Status = "CLOSED"
	// StatusDeclined is terminal: the case was rejected at intake.
	StatusDeclined Status = "DECLINED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusPendingClose, StatusClosed, StatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether the record is immutable. No operation may mutate
// a record whose status is terminal.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusDeclined
}

// transitions encodes the legal transition relation. Reassignment back to
// ASSIGNED is legal from every open working state: it restarts the
// investigation clock without clearing notes or close-request history.
var transitions = map[Status][]Status{
	StatusNew:          {StatusAssigned, StatusDeclined},
	StatusAssigned:     {StatusAssigned, StatusInProgress, StatusPendingClose, StatusClosed},
	StatusInProgress:   {StatusAssigned, StatusPendingClose, StatusClosed},
	StatusPendingClose: {StatusAssigned, StatusInProgress, StatusClosed},
	StatusClosed:       {},
	StatusDeclined:     {},
}

// CanTransitionTo reports whether the transition relation permits moving
// from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
