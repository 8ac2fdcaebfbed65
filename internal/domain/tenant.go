package domain

import "strings"

// ChannelNamespace prefixes every downstream isolation channel. One channel
// per tenant; the channel name is the only routing key for broadcasts.
const ChannelNamespace = "tiktok:"

// maxTenantIDLength bounds tenant ids well above the longest TikTok
// username so garbage input cannot grow the pool maps unbounded.
const maxTenantIDLength = 64

// NormalizeTenantID canonicalizes a raw tenant identifier: trimmed,
// lower-cased, leading @ stripped. Returns ErrInvalidTenantID when nothing
// usable remains.
func NormalizeTenantID(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = strings.TrimPrefix(id, "@")
	if id == "" || len(id) > maxTenantIDLength {
		return "", ErrInvalidTenantID
	}
	return id, nil
}

// TenantChannel returns the downstream channel carrying a tenant's events.
func TenantChannel(tenantID string) string {
	return ChannelNamespace + tenantID
}

// TenantFromChannel extracts the tenant id from a downstream channel name.
func TenantFromChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, ChannelNamespace)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
