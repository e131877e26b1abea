package panel

import (
	"slices"
	"sync"
)

// Fixed focus targets every host provides.
const (
	FocusPanelBody = "panel-body"
	FocusTrigger   = "trigger"
)

// FocusHost is the keyboard focus of the host page. Elements are named by
// opaque keys; the panel body and trigger use the fixed keys above.
type FocusHost interface {
	// Active returns the key of the focused element, or "".
	Active() string
	Focus(key string) error
	// Connected reports whether key still names an element on the page.
	Connected(key string) bool
	// PanelFocusables lists the focusable elements inside the panel in tab order.
	PanelFocusables() []string
}

// VirtualFocus is an in-memory FocusHost for headless runs and tests.
type VirtualFocus struct {
	mu         sync.Mutex
	active     string
	detached   map[string]bool
	focusables []string
}

// NewVirtualFocus returns a host with focus on active.
func NewVirtualFocus(active string, panelFocusables ...string) *VirtualFocus {
	return &VirtualFocus{active: active, detached: make(map[string]bool), focusables: panelFocusables}
}

func (v *VirtualFocus) Active() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

func (v *VirtualFocus) Focus(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = key
	return nil
}

func (v *VirtualFocus) Connected(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return key != "" && !v.detached[key]
}

func (v *VirtualFocus) PanelFocusables() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.focusables)
}

// SetPanelFocusables replaces the focusable list.
func (v *VirtualFocus) SetPanelFocusables(keys ...string) {
	v.mu.Lock()
	v.focusables = keys
	v.mu.Unlock()
}

// Detach marks key as removed from the page.
func (v *VirtualFocus) Detach(key string) {
	v.mu.Lock()
	v.detached[key] = true
	v.mu.Unlock()
}
