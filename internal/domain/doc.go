// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (event.go, live.go, tenant.go, errors.go) hold the
// shared vocabulary: canonical events, the upstream feed contracts, tenant
// identity rules. Interfaces live here on the consumer side, which keeps the
// import graph acyclic.
package domain
