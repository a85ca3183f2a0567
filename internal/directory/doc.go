// Package directory owns the emergency contact list and enforces its
// invariants: exactly one primary contact while the list is non-empty,
// family flags derived from the relationship label, and stable insertion
// order. Every mutation is persisted before it becomes visible.
package directory
