// Package dispatch turns a trigger into alert messages for the right
// recipients, tracks their simulated delivery status and publishes every
// creation and status change to subscribers.
//
// Recipient policy:
//   - sos: the primary contact gets an individual message and every family
//     member gets a high-priority broadcast message;
//   - auto-checkin: family members, or the whole directory when there are none;
//   - danger-detected: same recipients as auto-checkin, escalated text.
//
// Each batch owns two one-shot timers that move its messages to Delivered and
// then Read. Close cancels them.
package dispatch
