// Package broadcast fans canonical events out to tenant channels.
//
// The channel name is derived from the event's tenant id and nothing else,
// so no delivery path exists from one tenant's feed to another tenant's
// subscribers.
package broadcast
