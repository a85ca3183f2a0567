package wire

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safeguardian/internal/sos"
)

// SnapshotToStruct converts an SOS snapshot into its wire record.
func SnapshotToStruct(s sos.Snapshot) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"state":     structpb.NewStringValue(s.State.String()),
			"countdown": structpb.NewNumberValue(float64(s.Countdown)),
			"startedAt": timestamp(s.StartedAt),
			"source":    structpb.NewStringValue(string(s.Trigger.Source)),
			"label":     structpb.NewStringValue(s.Trigger.Label),
			"batchId":   structpb.NewStringValue(s.BatchID),
			"siren":     structpb.NewBoolValue(s.Siren),
		},
	}
}

// SnapshotFromStruct converts a wire record back into an SOS snapshot.
func SnapshotFromStruct(s *structpb.Struct) sos.Snapshot {
	state, _ := sos.ParseState(str(s, "state"))

	return sos.Snapshot{
		State:     state,
		Countdown: int(number(s, "countdown")),
		StartedAt: parseTimestamp(s, "startedAt"),
		Trigger: sos.Trigger{
			Source: sos.Source(str(s, "source")),
			Label:  str(s, "label"),
		},
		BatchID: str(s, "batchId"),
		Siren:   boolean(s, "siren"),
	}
}
