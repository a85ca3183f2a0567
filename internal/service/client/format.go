package client

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/sos"
)

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}

	return "disabled"
}

// formatSnapshot renders an SOS snapshot on one line.
func formatSnapshot(snap sos.Snapshot) string {
	line := "state=" + snap.State.String()

	if snap.State == sos.StateArming {
		line += fmt.Sprintf(" countdown=%d", snap.Countdown)
	}

	if !snap.StartedAt.IsZero() {
		line += " started=" + snap.StartedAt.Format(time.RFC3339)
	}

	if snap.Trigger.Source != "" {
		line += " source=" + string(snap.Trigger.Source)
	}

	if snap.Trigger.Label != "" {
		line += fmt.Sprintf(" label=%q", snap.Trigger.Label)
	}

	if snap.BatchID != "" {
		line += " batch=" + snap.BatchID
	}

	return line + " siren=" + onOff(snap.Siren)
}

func formatMessage(m *alert.Message) string {
	return fmt.Sprintf("%s %s -> %s (%s) [%s/%s] %s",
		m.UpdatedAt.Format(time.TimeOnly), m.Urgency, m.ContactName, m.Phone, m.Priority, m.Status, m.Text)
}

func writeContacts(out io.Writer, contacts []*contact.Contact) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, "ID\tNAME\tPHONE\tEMAIL\tRELATIONSHIP\tPRIMARY\tFAMILY"); err != nil {
		return err
	}

	for _, c := range contacts {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Phone, c.Email, c.Relationship, mark(c.IsPrimary), mark(c.IsFamily))
		if err != nil {
			return err
		}
	}

	return w.Flush()
}

func writeMessages(out io.Writer, messages []*alert.Message) error {
	if len(messages) == 0 {
		_, err := fmt.Fprintln(out, "No messages")

		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, "TIME\tURGENCY\tTO\tPRIORITY\tSTATUS\tTEXT"); err != nil {
		return err
	}

	for _, m := range messages {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.CreatedAt.Format(time.TimeOnly), m.Urgency, m.ContactName, m.Priority, m.Status, m.Text)
		if err != nil {
			return err
		}
	}

	return w.Flush()
}

func mark(v bool) string {
	if v {
		return "yes"
	}

	return "-"
}
