package auction

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
)

var validNext = map[Status]map[Status]bool{
	StatusDraft:     {StatusScheduled: true},
	StatusScheduled: {StatusLive: true},
	StatusLive:      {StatusCompleted: true},
	StatusCompleted: {},
}

// CanTransition reports whether from -> to is a step of the linear lifecycle.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Open reports whether the auction is listed to buyers.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusLive
}
