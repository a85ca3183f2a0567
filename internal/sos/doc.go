// Package sos implements the SOS session state machine:
//
//	Idle --Activate--> Arming --countdown reaches 0--> Dispatched --hold--> Cooldown --> Idle
//	Arming --Cancel--> Idle
//
// Activation outside Idle and cancellation outside Arming are logged no-ops.
package sos
