package realtime

import (
	"github.com/centrifugal/centrifuge"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
)

// NodePublisher adapts the centrifuge node to the broadcast publisher
// contract.
type NodePublisher struct {
	node *centrifuge.Node
}

// NewNodePublisher creates a publisher delivering through node.
func NewNodePublisher(node *centrifuge.Node) *NodePublisher {
	return &NodePublisher{node: node}
}

// Publish sends data to every subscriber of channel.
func (p *NodePublisher) Publish(channel string, data []byte) error {
	_, err := p.node.Publish(channel, data)
	return err
}

// PresenceChecker reports connected viewers straight from the transport.
type PresenceChecker struct {
	node *centrifuge.Node
}

// NewPresenceChecker creates a checker reading node presence.
func NewPresenceChecker(node *centrifuge.Node) *PresenceChecker {
	return &PresenceChecker{node: node}
}

// ViewerCount returns the number of transport clients subscribed to a
// tenant's channel, zero when presence is unavailable.
func (p *PresenceChecker) ViewerCount(tenantID string) int {
	stats, err := p.node.PresenceStats(domain.TenantChannel(tenantID))
	if err != nil {
		return 0
	}
	return stats.NumClients
}
