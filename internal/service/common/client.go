//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/safeguardian/internal/config"
	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/domain/geo"
	"github.com/oshokin/safeguardian/internal/notify"
	pb "github.com/oshokin/safeguardian/internal/pb/v1"
	"github.com/oshokin/safeguardian/internal/sos"
	"github.com/oshokin/safeguardian/internal/wire"
)

// Client wraps the gRPC SafetyService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the safety server.
	conn *grpc.ClientConn
	// api is the SafetyService client interface.
	api pb.SafetyServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the safety server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial safety server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewSafetyServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// ActivateSOS starts the SOS countdown on behalf of actor.
func (c *Client) ActivateSOS(ctx context.Context, actor wire.Actor) (bool, sos.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ActivateSOS(callCtx, wire.WithActor(actor))
	if err != nil {
		return false, sos.Snapshot{}, fmt.Errorf("activate SOS: %w", err)
	}

	return decodeSOSResponse(resp)
}

// CancelSOS aborts the SOS countdown on behalf of actor.
func (c *Client) CancelSOS(ctx context.Context, actor wire.Actor) (bool, sos.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.CancelSOS(callCtx, wire.WithActor(actor))
	if err != nil {
		return false, sos.Snapshot{}, fmt.Errorf("cancel SOS: %w", err)
	}

	return decodeSOSResponse(resp)
}

// SOSState returns the current SOS snapshot.
func (c *Client) SOSState(ctx context.Context) (sos.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetSOSState(callCtx, &emptypb.Empty{})
	if err != nil {
		return sos.Snapshot{}, fmt.Errorf("get SOS state: %w", err)
	}

	return wire.SnapshotFromStruct(resp), nil
}

// SetSiren switches the siren setting.
func (c *Client) SetSiren(ctx context.Context, enabled bool) (sos.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetSiren(callCtx, wrapperspb.Bool(enabled))
	if err != nil {
		return sos.Snapshot{}, fmt.Errorf("set siren: %w", err)
	}

	return wire.SnapshotFromStruct(resp), nil
}

// ListContacts returns every contact in directory order.
func (c *Client) ListContacts(ctx context.Context) ([]*contact.Contact, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListContacts(callCtx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	return wire.ContactsFromList(resp), nil
}

// ListFamily returns the family members.
func (c *Client) ListFamily(ctx context.Context) ([]*contact.Contact, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListFamily(callCtx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("list family: %w", err)
	}

	return wire.ContactsFromList(resp), nil
}

// AddContact creates a contact.
func (c *Client) AddContact(ctx context.Context, draft contact.Draft) (*contact.Contact, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.AddContact(callCtx, wire.DraftToStruct(draft))
	if err != nil {
		return nil, fmt.Errorf("add contact: %w", err)
	}

	return wire.ContactFromStruct(resp), nil
}

// UpdateContact applies patch to the contact with id.
func (c *Client) UpdateContact(ctx context.Context, id string, patch contact.Patch) (*contact.Contact, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.UpdateContact(callCtx, wire.PatchToStruct(id, patch))
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}

	return wire.ContactFromStruct(resp), nil
}

// DeleteContact removes the contact with id.
func (c *Client) DeleteContact(ctx context.Context, id string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.DeleteContact(callCtx, wrapperspb.String(id)); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	return nil
}

// SetPrimary makes the contact with id primary.
func (c *Client) SetPrimary(ctx context.Context, id string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.SetPrimary(callCtx, wrapperspb.String(id)); err != nil {
		return fmt.Errorf("set primary contact: %w", err)
	}

	return nil
}

// ToggleAutoCheckin switches periodic check-ins. It reports whether the
// setting changed and its resulting value.
func (c *Client) ToggleAutoCheckin(ctx context.Context, enabled bool) (bool, bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ToggleAutoCheckin(callCtx, wrapperspb.Bool(enabled))
	if err != nil {
		return false, false, fmt.Errorf("toggle auto check-in: %w", err)
	}

	fields := resp.GetFields()

	return fields["changed"].GetBoolValue(), fields["enabled"].GetBoolValue(), nil
}

// SetNotifications switches user-facing notifications.
func (c *Client) SetNotifications(ctx context.Context, enabled bool) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetNotifications(callCtx, wrapperspb.Bool(enabled))
	if err != nil {
		return false, fmt.Errorf("set notifications: %w", err)
	}

	return resp.GetValue(), nil
}

// Messages returns the retained alert messages, newest first.
func (c *Client) Messages(ctx context.Context) ([]*alert.Message, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListMessages(callCtx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return wire.MessagesFromList(resp), nil
}

// SendTestAlert sends a labelled test batch.
func (c *Client) SendTestAlert(ctx context.Context) (*alert.Batch, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SendTestAlert(callCtx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("send test alert: %w", err)
	}

	return wire.BatchFromStruct(resp), nil
}

// ReportLocation sends the device position.
func (c *Client) ReportLocation(ctx context.Context, p geo.Point) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.ReportLocation(callCtx, wire.PointToStruct(p)); err != nil {
		return fmt.Errorf("report location: %w", err)
	}

	return nil
}

// ReportDanger sends a detection event.
func (c *Client) ReportDanger(ctx context.Context, event detect.Event) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.ReportDanger(callCtx, wire.DetectionEventToStruct(event)); err != nil {
		return fmt.Errorf("report danger: %w", err)
	}

	return nil
}

// WatchHandlers receives WatchAlerts events. Nil handlers are skipped.
type WatchHandlers struct {
	Message      func(*alert.Message)
	SOS          func(sos.Snapshot)
	Notification func(notify.Notification)
}

// Watch streams server events into handlers until ctx is done or the server
// ends the stream. The call timeout does not apply.
func (c *Client) Watch(ctx context.Context, handlers WatchHandlers) error {
	stream, err := c.api.WatchAlerts(ctx, &emptypb.Empty{})
	if err != nil {
		return fmt.Errorf("watch alerts: %w", err)
	}

	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil //nolint:nilerr // Cancellation is the normal way to stop watching.
			}

			return fmt.Errorf("receive alert event: %w", err)
		}

		dispatchEvent(event, handlers)
	}
}

func dispatchEvent(event *structpb.Struct, handlers WatchHandlers) {
	kind := event.GetFields()["type"].GetStringValue()
	payload := event.GetFields()[kind].GetStructValue()

	switch kind {
	case "message":
		if handlers.Message != nil {
			handlers.Message(wire.MessageFromStruct(payload))
		}
	case "sos":
		if handlers.SOS != nil {
			handlers.SOS(wire.SnapshotFromStruct(payload))
		}
	case "notification":
		if handlers.Notification != nil {
			handlers.Notification(wire.NotificationFromStruct(payload))
		}
	}
}

func decodeSOSResponse(resp *structpb.Struct) (bool, sos.Snapshot, error) {
	fields := resp.GetFields()

	return fields["accepted"].GetBoolValue(), wire.SnapshotFromStruct(fields["sos"].GetStructValue()), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
