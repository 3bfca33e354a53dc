// Package adapter defines the Router Control Interface the band enforcer drives.
//
// Router adapters implement a vendor protocol (see the hilink subpackage) behind
// the RouterControl capability set. Vendor failures are normalized to a small
// error vocabulary so callers can classify them without knowing the transport.
package adapter
