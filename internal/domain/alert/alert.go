package alert

import (
	"time"

	"github.com/oshokin/safeguardian/internal/domain/geo"
)

// Urgency classifies a dispatch request.
type Urgency string

const (
	// UrgencySOS is a manual or synthetic SOS that reached dispatch.
	UrgencySOS Urgency = "sos"
	// UrgencyAutoCheckin is the periodic low-priority location broadcast.
	UrgencyAutoCheckin Urgency = "auto-checkin"
	// UrgencyDangerDetected comes from an external detection signal.
	UrgencyDangerDetected Urgency = "danger-detected"
)

// Valid reports whether u is a known urgency tier.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencySOS, UrgencyAutoCheckin, UrgencyDangerDetected:
		return true
	default:
		return false
	}
}

// Priority is the delivery priority of a single message.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Status is the delivery status of a message.
type Status int

const (
	StatusSent Status = iota
	StatusDelivered
	StatusRead
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusRead:
		return "read"
	default:
		return "unknown"
	}
}

// ParseStatus converts the textual form back to a Status.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "sent":
		return StatusSent, true
	case "delivered":
		return StatusDelivered, true
	case "read":
		return StatusRead, true
	default:
		return StatusSent, false
	}
}

// Trigger is the context a dispatch is made for.
type Trigger struct {
	Urgency Urgency
	// Location is nil when unavailable.
	Location *geo.Point
	// Label classifies a detected danger, used only for message text.
	Label string
}

// Message is one outbound notification to one contact for one incident.
type Message struct {
	ID          string
	BatchID     string
	ContactID   string
	ContactName string
	Phone       string
	Urgency     Urgency
	Priority    Priority
	Text        string
	// Location is nil when unavailable.
	Location *geo.Point
	// LocationText is the map link or geo.Unavailable.
	LocationText string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Status       Status
}

// Advance moves the message to status to. It returns false when that would
// not move the status forward.
func (m *Message) Advance(to Status, at time.Time) bool {
	if to <= m.Status {
		return false
	}

	m.Status = to
	m.UpdatedAt = at

	return true
}

// Clone returns a copy that shares nothing mutable with m.
func (m *Message) Clone() *Message {
	cloned := *m

	if m.Location != nil {
		loc := *m.Location
		cloned.Location = &loc
	}

	return &cloned
}

// Batch is the set of messages produced by one dispatch.
type Batch struct {
	ID        string
	Urgency   Urgency
	Messages  []*Message
	CreatedAt time.Time
	// FamilyCount is the number of family members alerted by this batch.
	FamilyCount int
}
