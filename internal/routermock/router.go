// Package routermock emulates the subset of the HiLink HTTP/XML API the band
// enforcer uses, including the firmware habit of preferring a noisier band.
package routermock

import (
	"sync"

	"github.com/radio-control/bandlock/internal/band"
)

// Config describes the emulated router and its radio environment.
type Config struct {
	Username string
	Password string

	// Available lists the bands with coverage at the emulated site.
	Available band.Set

	// Preference is the firmware's own ranking when several bands are allowed.
	Preference band.Set

	// StickyWrites is how many single-band candidate writes the firmware
	// ignores before honoring the candidate.
	StickyWrites int

	// RequireLogin rejects configuration writes without a session.
	RequireLogin bool
}

// DefaultConfig models a B715 that prefers B3 over B28.
func DefaultConfig() Config {
	return Config{
		Username:     "admin",
		Password:     "admin",
		Available:    band.Set{"B3", "B7", "B20", "B28"},
		Preference:   band.Set{"B3", "B7", "B28", "B20"},
		RequireLogin: true,
	}
}

// Router is the thread-safe emulated router state.
type Router struct {
	mu sync.Mutex

	cfg Config

	mode        string
	networkBand string
	allowed     band.Set
	candidate   band.ID
	dataOn      bool
	sticky      int

	sessionID string
	tokens    map[string]bool
	loggedIn  bool

	// Fault injection
	omitBand  bool
	faultCode int
	detached  bool

	calls []string
}

// New creates a router attached according to cfg with every band allowed.
func New(cfg Config) *Router {
	allowed, _ := band.SetFromMask("7FFFFFFFFFFFFFFF")
	return &Router{
		cfg:         cfg,
		mode:        "00",
		networkBand: "3FFFFFFF",
		allowed:     allowed,
		dataOn:      true,
		sticky:      cfg.StickyWrites,
		tokens:      make(map[string]bool),
	}
}

// Attached returns the band the emulated modem is currently using.
func (r *Router) Attached() band.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attachedLocked()
}

// attachedLocked derives the attachment from the current settings.
func (r *Router) attachedLocked() band.ID {
	if r.detached || !r.dataOn {
		return band.None
	}
	if r.mode == "01" || r.mode == "02" {
		return band.None
	}

	usable := make(band.Set, 0, len(r.allowed))
	for _, id := range r.allowed {
		if r.cfg.Available.Contains(id) {
			usable = append(usable, id)
		}
	}
	if usable.Contains(r.candidate) {
		return r.candidate
	}
	for _, id := range r.cfg.Preference {
		if usable.Contains(id) {
			return id
		}
	}
	return usable.Primary()
}

// applyBandList models the order-sensitive band API: a single-band write
// narrows the candidate, a wider write restores the acceptable list.
func (r *Router) applyBandList(bands band.Set) {
	if len(bands) == 1 {
		if r.sticky > 0 {
			r.sticky--
		} else {
			r.candidate = bands[0]
		}
	}
	r.allowed = bands
}

// SetDetached simulates losing all coverage.
func (r *Router) SetDetached(detached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached = detached
}

// SetOmitBand makes the signal document lack the <band> element.
func (r *Router) SetOmitBand(omit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.omitBand = omit
}

// SetFaultCode answers every API call with the given HiLink error code (0 clears).
func (r *Router) SetFaultCode(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faultCode = code
}

// AllowedBands returns the current LTE band list.
func (r *Router) AllowedBands() band.Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(band.Set(nil), r.allowed...)
}

// Mode returns the current network mode code.
func (r *Router) Mode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// DataOn reports the data switch position.
func (r *Router) DataOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dataOn
}

// LoggedIn reports whether a session is open.
func (r *Router) LoggedIn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loggedIn
}

// Calls returns the request log as "METHOD path" entries.
func (r *Router) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
