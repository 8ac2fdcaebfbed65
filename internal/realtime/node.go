package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/vamnguyen/tiktok-live-games/internal/metrics"
)

// NewNode creates the centrifuge node with slog-backed logging. The node
// carries no client handlers yet; AttachGateway wires them once the rest
// of the pipeline exists.
func NewNode(logLevel string) (*centrifuge.Node, error) {
	conf := centrifuge.Config{LogLevel: parseCentrifugeLogLevel(logLevel), LogHandler: slogHandler}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	node.OnConnecting(onConnecting)

	return node, nil
}

// AttachGateway wires the node's client lifecycle to the gateway. The
// gateway needs the connection pool, which publishes through the node, so
// the handlers attach after construction. Must run before node.Run.
func AttachGateway(node *centrifuge.Node, gateway *Gateway) {
	node.OnConnect(onConnect(gateway))
}

// onConnecting admits every viewer with a generated identity. Overlays
// carry no credentials; isolation comes from channel membership.
func onConnecting(_ context.Context, _ centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
	return centrifuge.ConnectReply{
		Credentials: &centrifuge.Credentials{UserID: uuid.NewString()},
	}, nil
}

func onConnect(gateway *Gateway) func(client *centrifuge.Client) {
	return func(client *centrifuge.Client) {
		slog.Debug("Client connected", "client_id", client.ID())
		metrics.WebsocketClientsActive.Inc()

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			tenantID, ok := gateway.Admit(e.Channel)
			if !ok {
				slog.Warn("Rejected subscription", "client_id", client.ID(), "channel", e.Channel)
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorUnknownChannel)
				return
			}
			if !gateway.Joined(client, tenantID) {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorLimitExceeded)
				return
			}

			options := centrifuge.SubscribeOptions{EmitPresence: true}
			cb(centrifuge.SubscribeReply{Options: options}, nil)
		})

		client.OnUnsubscribe(func(e centrifuge.UnsubscribeEvent) {
			gateway.Left(client.ID(), e.Channel)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Client disconnected", "client_id", client.ID(), "reason", e.Reason)
			metrics.WebsocketClientsActive.Dec()
			gateway.Gone(client.ID())
		})
	}
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelDebug:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelTrace:
		slog.Debug(entry.Message, attrs...)
	}
}

func parseCentrifugeLogLevel(level string) centrifuge.LogLevel {
	switch level {
	case "debug":
		return centrifuge.LogLevelDebug
	case "warn":
		return centrifuge.LogLevelWarn
	case "error":
		return centrifuge.LogLevelError
	default:
		return centrifuge.LogLevelInfo
	}
}
