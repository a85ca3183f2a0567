// Package contact contains the emergency contact model, its input shapes
// (Draft for creation, Patch for partial updates), input validation and the
// error taxonomy returned by the contact directory.
package contact
