// Package audit implements the operator log of the band enforcer.
//
// The log is append-only plain text, one "<timestamp>: <message>" line per
// event. Router commands are recorded through LogAction with their result
// code and latency. Size-based rotation is delegated to lumberjack and is
// off unless configured.
package audit
