// Package realtime is the downstream transport boundary.
//
// A centrifuge node carries one channel per tenant. The Gateway translates
// channel subscriptions into subscriber counts and upstream connect
// requests; the NodePublisher feeds broadcast payloads into the node.
package realtime
