package wire

import (
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/sos"
)

const contractPath = "../../api/safeguardian/v1/safety.proto"

var (
	messageDecl = regexp.MustCompile(`^message (\w+) \{`)
	fieldDecl   = regexp.MustCompile(`^(?:optional |repeated )?[\w.]+ (\w+) = \d+;`)
)

// contractFields returns the JSON key set of every message in the contract.
func contractFields(t *testing.T) map[string]map[string]bool {
	t.Helper()

	raw, err := os.ReadFile(contractPath)
	require.NoError(t, err)

	out := make(map[string]map[string]bool)

	var current string

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)

		if m := messageDecl.FindStringSubmatch(line); m != nil {
			current = m[1]
			out[current] = make(map[string]bool)

			continue
		}

		if line == "}" {
			current = ""

			continue
		}

		if m := fieldDecl.FindStringSubmatch(line); m != nil && current != "" {
			out[current][jsonName(m[1])] = true
		}
	}

	return out
}

// jsonName converts a proto field name to its proto3 JSON name.
func jsonName(field string) string {
	parts := strings.Split(field, "_")
	for i := 1; i < len(parts); i++ {
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}

	return strings.Join(parts, "")
}

// TestContract_DocumentsEveryKey checks that each key the encoders emit is
// declared on the matching message of safety.proto.
func TestContract_DocumentsEveryKey(t *testing.T) {
	t.Parallel()

	fields := contractFields(t)
	now := time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)
	name := "Mom"
	family := true

	records := map[string]*structpb.Struct{
		"Actor":          ActorToStruct(Actor{Hostname: "h", Username: "u"}),
		"ActorRequest":   WithActor(Actor{}),
		"Point":          PointToStruct(geo.Point{Lat: 1, Lng: 2}),
		"Contact":        ContactToStruct(&contact.Contact{ID: "1", Name: "Mom"}),
		"Draft":          DraftToStruct(contact.Draft{Name: "Mom", Phone: "+15551234567"}),
		"Patch":          PatchToStruct("1", contact.Patch{Name: &name, IsFamily: &family}),
		"Message":        MessageToStruct(&alert.Message{ID: "m", CreatedAt: now, Location: &geo.Point{}}),
		"Batch":          BatchToStruct(&alert.Batch{ID: "b", CreatedAt: now}),
		"Snapshot":       SnapshotToStruct(sos.Snapshot{State: sos.StateArming, StartedAt: now}),
		"Notification":   NotificationToStruct(notify.Notification{Title: "t"}),
		"DetectionEvent": DetectionEventToStruct(detect.Event{Label: "Scream"}),
	}

	for message, record := range records {
		declared, ok := fields[message]
		require.True(t, ok, "message %s is missing from the contract", message)

		for key := range record.GetFields() {
			require.True(t, declared[key], "%s.%s is not documented", message, key)
		}
	}
}
