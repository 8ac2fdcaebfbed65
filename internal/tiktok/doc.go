// Package tiktok speaks the TikTok live frontend protocols: room lookup
// over the web API and the webcast websocket feed. It implements
// domain.LiveSource so nothing outside this package touches protocol
// details.
package tiktok
