// Package alert defines outbound alert messages, their delivery status
// lifecycle, urgency tiers and the trigger context a dispatch is made for.
package alert
