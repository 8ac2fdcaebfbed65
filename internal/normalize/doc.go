// Package normalize converts raw upstream live events into canonical events.
//
// Normalization is pure apart from timestamps and attack damage rolls: one
// raw event maps to zero or more canonical events (chat commands and gifts
// fan out, unrecognized social subtypes are dropped).
package normalize
