package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/safeguardian/internal/config"
	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/service/common"
	"github.com/oshokin/safeguardian/internal/sos"
	"github.com/oshokin/safeguardian/internal/wire"
)

// Options configures how safetyctl reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Out receives command output; stdout when nil.
	Out io.Writer
}

// DefaultActivateRetryFor bounds how long ActivateSOS keeps retrying.
const DefaultActivateRetryFor = 30 * time.Second

// Remote is the subset of the server API used by safetyctl.
type Remote interface {
	ActivateSOS(ctx context.Context, actor wire.Actor) (bool, sos.Snapshot, error)
	CancelSOS(ctx context.Context, actor wire.Actor) (bool, sos.Snapshot, error)
	SOSState(ctx context.Context) (sos.Snapshot, error)
	SetSiren(ctx context.Context, enabled bool) (sos.Snapshot, error)
	ListContacts(ctx context.Context) ([]*contact.Contact, error)
	ListFamily(ctx context.Context) ([]*contact.Contact, error)
	AddContact(ctx context.Context, draft contact.Draft) (*contact.Contact, error)
	UpdateContact(ctx context.Context, id string, patch contact.Patch) (*contact.Contact, error)
	DeleteContact(ctx context.Context, id string) error
	SetPrimary(ctx context.Context, id string) error
	ToggleAutoCheckin(ctx context.Context, enabled bool) (bool, bool, error)
	SetNotifications(ctx context.Context, enabled bool) (bool, error)
	Messages(ctx context.Context) ([]*alert.Message, error)
	SendTestAlert(ctx context.Context) (*alert.Batch, error)
	ReportLocation(ctx context.Context, p geo.Point) error
	ReportDanger(ctx context.Context, event detect.Event) error
	Watch(ctx context.Context, handlers common.WatchHandlers) error
	Close() error
}

// Session runs safetyctl operations against one server connection.
type Session struct {
	remote Remote
	actor  wire.Actor
	out    io.Writer

	// retryFor bounds ActivateSOS retries.
	retryFor time.Duration
}

// Open loads the configuration and connects to the server.
func Open(ctx context.Context, opts *Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return nil, err
	}

	c, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Connected to safety server", "server_address", serverAddress)

	return NewSession(c, actor, opts.Out), nil
}

// NewSession wraps an established remote.
func NewSession(remote Remote, actor wire.Actor, out io.Writer) *Session {
	if out == nil {
		out = os.Stdout
	}

	return &Session{
		remote:   remote,
		actor:    actor,
		out:      out,
		retryFor: DefaultActivateRetryFor,
	}
}

// Close releases the connection.
func (s *Session) Close() error {
	return s.remote.Close()
}

// ActivateSOS starts the SOS countdown, retrying with exponential backoff
// while the server is unreachable.
func (s *Session) ActivateSOS(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = s.retryFor

	var (
		accepted bool
		snap     sos.Snapshot
	)

	operation := func() error {
		var err error

		accepted, snap, err = s.remote.ActivateSOS(ctx, s.actor)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	onRetry := func(err error, next time.Duration) {
		logger.WarnKV(ctx, "SOS activation failed, retrying", "error", err, "retry_in", next)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), onRetry); err != nil {
		return err
	}

	if !accepted {
		_, err := fmt.Fprintf(s.out, "SOS already in progress: %s\n", formatSnapshot(snap))

		return err
	}

	_, err := fmt.Fprintf(s.out, "SOS activated: %s\n", formatSnapshot(snap))

	return err
}

// CancelSOS aborts the countdown.
func (s *Session) CancelSOS(ctx context.Context) error {
	accepted, snap, err := s.remote.CancelSOS(ctx, s.actor)
	if err != nil {
		return err
	}

	if !accepted {
		_, err = fmt.Fprintf(s.out, "Nothing to cancel: %s\n", formatSnapshot(snap))

		return err
	}

	_, err = fmt.Fprintln(s.out, "SOS cancelled")

	return err
}

// ShowState prints the SOS snapshot.
func (s *Session) ShowState(ctx context.Context) error {
	snap, err := s.remote.SOSState(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(s.out, formatSnapshot(snap))

	return err
}

// SetSiren switches the siren setting.
func (s *Session) SetSiren(ctx context.Context, enabled bool) error {
	snap, err := s.remote.SetSiren(ctx, enabled)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.out, "Siren %s\n", onOff(snap.Siren))

	return err
}

// ListContacts prints the directory, or only family members.
func (s *Session) ListContacts(ctx context.Context, familyOnly bool) error {
	list := s.remote.ListContacts
	if familyOnly {
		list = s.remote.ListFamily
	}

	contacts, err := list(ctx)
	if err != nil {
		return err
	}

	return writeContacts(s.out, contacts)
}

// AddContact creates a contact and prints it.
func (s *Session) AddContact(ctx context.Context, draft contact.Draft) error {
	created, err := s.remote.AddContact(ctx, draft)
	if err != nil {
		return err
	}

	return writeContacts(s.out, []*contact.Contact{created})
}

// UpdateContact patches a contact and prints it.
func (s *Session) UpdateContact(ctx context.Context, id string, patch contact.Patch) error {
	updated, err := s.remote.UpdateContact(ctx, id, patch)
	if err != nil {
		return err
	}

	return writeContacts(s.out, []*contact.Contact{updated})
}

// DeleteContact removes a contact.
func (s *Session) DeleteContact(ctx context.Context, id string) error {
	if err := s.remote.DeleteContact(ctx, id); err != nil {
		return err
	}

	_, err := fmt.Fprintf(s.out, "Contact %s deleted\n", id)

	return err
}

// SetPrimary promotes a contact.
func (s *Session) SetPrimary(ctx context.Context, id string) error {
	if err := s.remote.SetPrimary(ctx, id); err != nil {
		return err
	}

	_, err := fmt.Fprintf(s.out, "Contact %s is now primary\n", id)

	return err
}

// ToggleCheckin switches periodic check-ins.
func (s *Session) ToggleCheckin(ctx context.Context, enabled bool) error {
	changed, now, err := s.remote.ToggleAutoCheckin(ctx, enabled)
	if err != nil {
		return err
	}

	if !changed {
		_, err = fmt.Fprintf(s.out, "Auto check-in already %s\n", onOff(now))

		return err
	}

	_, err = fmt.Fprintf(s.out, "Auto check-in %s\n", onOff(now))

	return err
}

// SetNotifications switches user-facing notifications.
func (s *Session) SetNotifications(ctx context.Context, enabled bool) error {
	now, err := s.remote.SetNotifications(ctx, enabled)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.out, "Notifications %s\n", onOff(now))

	return err
}

// ListMessages prints the message log, newest first.
func (s *Session) ListMessages(ctx context.Context) error {
	messages, err := s.remote.Messages(ctx)
	if err != nil {
		return err
	}

	return writeMessages(s.out, messages)
}

// SendTestAlert sends a test batch and prints its messages.
func (s *Session) SendTestAlert(ctx context.Context) error {
	batch, err := s.remote.SendTestAlert(ctx)
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintf(s.out, "Test batch %s sent to %d contacts\n", batch.ID, len(batch.Messages)); err != nil {
		return err
	}

	return writeMessages(s.out, batch.Messages)
}

// ReportLocation sends the device position.
func (s *Session) ReportLocation(ctx context.Context, p geo.Point) error {
	if err := s.remote.ReportLocation(ctx, p); err != nil {
		return err
	}

	_, err := fmt.Fprintf(s.out, "Location reported: %s\n", geo.Describe(&p))

	return err
}

// ReportDanger sends a detection event.
func (s *Session) ReportDanger(ctx context.Context, label string) error {
	event := detect.Event{Label: label, Source: "safetyctl"}
	if err := s.remote.ReportDanger(ctx, event); err != nil {
		return err
	}

	_, err := fmt.Fprintf(s.out, "Danger %q reported\n", label)

	return err
}

// Watch prints server events until ctx is done.
func (s *Session) Watch(ctx context.Context) error {
	return s.remote.Watch(ctx, common.WatchHandlers{
		Message: func(m *alert.Message) {
			_, _ = fmt.Fprintf(s.out, "[message] %s\n", formatMessage(m))
		},
		SOS: func(snap sos.Snapshot) {
			_, _ = fmt.Fprintf(s.out, "[sos] %s\n", formatSnapshot(snap))
		},
		Notification: func(n notify.Notification) {
			_, _ = fmt.Fprintf(s.out, "[notification] %s: %s\n", n.Title, n.Body)
		},
	})
}

// retryable reports whether an activation error may go away on its own.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return true
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
