// Package live owns the upstream connection lifecycle.
//
// The Pool holds at most one upstream connection per tenant and wires its
// callbacks to normalization and fan-out. The SubscriberRegistry counts
// downstream viewers per tenant. The Janitor periodically reclaims
// connections that are both unwatched and idle.
package live
