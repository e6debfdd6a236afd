// Package swarm connects peers that share a topic.
//
// Ownership boundary:
// - topic identifiers
// - announcing (server role) and browsing (client role) through Discovery
// - the TCP listener and dialer feeding raw connections to a handler
// - the flushed readiness signal of a join
//
// Swarm knows nothing about board events; every accepted or dialed
// connection is handed to the ConnHandler as-is.
package swarm
