// Package input resolves which devices a motion pattern addresses. The
// first stage is data-driven: user-editable configuration entries match
// event tags at resolution time. The second stage guards dispatch:
// only connected devices whose capability set supports the pattern's
// command kind survive.
package input

import (
	"strings"

	"hapticrig/simulator/internal/device"
	"hapticrig/simulator/internal/message"
)

// Action names the motion a pattern performs, which fixes the command
// kind a target device must support.
type Action string

const (
	ActionScalar Action = "scalar"
	ActionLinear Action = "linear"
	ActionRotate Action = "rotate"
)

// Kind maps the action onto the command kind it requires.
func (a Action) Kind() message.Kind {
	switch a {
	case ActionLinear:
		return message.KindLinearCmd
	case ActionRotate:
		return message.KindRotateCmd
	default:
		return message.KindScalarCmd
	}
}

// Pattern describes the motion to apply to the resolved device set.
type Pattern struct {
	Name   string
	Action Action
}

// DeviceConfig is one user-editable roster entry: a device name, an
// enabled flag, and the event tags it responds to.
type DeviceConfig struct {
	Name    string   `json:"name"`
	Enabled bool     `json:"enabled"`
	Events  []string `json:"events"`
}

// Params is the immutable result of resolution: the selector of device
// names a pattern may address, alongside the originating events and
// pattern.
type Params struct {
	Selector []string
	Pattern  Pattern
	Events   []string
}

// SanitizeNames canonicalizes tags and names for comparison: trimmed
// of surrounding whitespace and lower-cased.
func SanitizeNames(list []string) []string {
	out := make([]string, 0, len(list))
	for _, entry := range list {
		out = append(out, strings.ToLower(strings.TrimSpace(entry)))
	}
	return out
}

// ParseList splits a comma-separated tag string, canonicalizing each
// segment and silently dropping empty ones.
func ParseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ReadList filters empty entries from a length-prefixed list supplied
// by a caller that cannot express an absent element, so padding slots
// never surface as parse errors.
func ReadList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if len(entry) > 0 {
			out = append(out, entry)
		}
	}
	return out
}

// Resolve maps event tags and the configured roster onto the device
// names a pattern addresses. An empty event list matches every enabled
// entry; otherwise an entry survives when any requested tag appears in
// its own tag set after canonicalization. Resolution never fails: no
// match simply yields an empty selector.
func Resolve(events []string, pattern Pattern, configs []DeviceConfig) Params {
	requested := SanitizeNames(events)
	selector := make([]string, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		if len(requested) == 0 || anyTagMatches(requested, SanitizeNames(cfg.Events)) {
			selector = append(selector, cfg.Name)
		}
	}
	return Params{
		Selector: selector,
		Pattern:  pattern,
		Events:   append([]string(nil), events...),
	}
}

func anyTagMatches(requested, configured []string) bool {
	for _, want := range requested {
		for _, have := range configured {
			if want == have {
				return true
			}
		}
	}
	return false
}

// FilterDevices narrows a connected roster to the devices the params
// may dispatch to: name matches the selector and the capability set
// supports the pattern's command kind.
func (p Params) FilterDevices(roster []message.Device) []message.Device {
	selected := SanitizeNames(p.Selector)
	required := p.Pattern.Action.Kind()
	out := make([]message.Device, 0, len(roster))
	for _, d := range roster {
		if !containsName(selected, d.DeviceName) {
			continue
		}
		if !device.Supports(d, required) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func containsName(selected []string, name string) bool {
	canon := strings.ToLower(strings.TrimSpace(name))
	for _, s := range selected {
		if s == canon {
			return true
		}
	}
	return false
}
