package dispatch

import (
	"fmt"

	"github.com/oshokin/safeguardian/internal/domain/alert"
)

const (
	sosPrimaryFormat = "🚨 EMERGENCY! I need help! My current location: %s"
	sosFamilyFormat  = "🚨 EMERGENCY! I need immediate help! My current location: %s"
	checkinFormat    = "I'm checking in. My current location: %s"
	dangerFormat     = "🚨 EMERGENCY ALERT: Dangerous sound %q detected. My current location: %s"

	// defaultDangerLabel names a detection event that carried no label.
	defaultDangerLabel = "Unknown sound"
)

// messageKind tells the primary SOS message apart from broadcast ones.
type messageKind int

const (
	kindIndividual messageKind = iota
	kindBroadcast
)

func renderText(trigger alert.Trigger, kind messageKind, location string) string {
	switch trigger.Urgency {
	case alert.UrgencySOS:
		if kind == kindIndividual {
			return fmt.Sprintf(sosPrimaryFormat, location)
		}

		return fmt.Sprintf(sosFamilyFormat, location)
	case alert.UrgencyDangerDetected:
		label := trigger.Label
		if label == "" {
			label = defaultDangerLabel
		}

		return fmt.Sprintf(dangerFormat, label, location)
	default:
		return fmt.Sprintf(checkinFormat, location)
	}
}

func priorityFor(u alert.Urgency) alert.Priority {
	if u == alert.UrgencyAutoCheckin {
		return alert.PriorityNormal
	}

	return alert.PriorityHigh
}
