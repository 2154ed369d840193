// Package coord is the client surface of the external coordination service
// that arbitrates resource leases across cooperating processes. The service
// is the authoritative cross-process source of truth; this package only
// speaks to it, it never stores lease state of its own beyond the holder
// token. Redis and in-memory implementations are provided.
package coord
