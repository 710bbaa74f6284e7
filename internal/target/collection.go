// Package target collects the models to serve. A Collection keeps targets in
// the order they were chosen and guarantees that service ids, and the unit
// names derived from them, are unique.
package target

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"llmsvc/pkg/types"
)

var (
	ErrDuplicateID = errors.New("service id already in use")
	ErrInvalidID   = errors.New("service id has no usable characters")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName maps a service id to a name safe for file systems and
// systemd: '/' becomes '-', anything outside [A-Za-z0-9._-] is dropped.
func SanitizeName(id string) string {
	return unsafeChars.ReplaceAllString(strings.ReplaceAll(id, "/", "-"), "")
}

// UnitName is the systemd unit for a service id.
func UnitName(prefix, id string) string {
	name := SanitizeName(id)
	if prefix != "" {
		name = prefix + "-" + name
	}
	return name + ".service"
}

type Collection struct {
	items []types.Target
	ids   map[string]struct{}
	names map[string]struct{}
}

func NewCollection() *Collection {
	return &Collection{ids: map[string]struct{}{}, names: map[string]struct{}{}}
}

// Taken reports whether id, or another id with the same sanitized name, is
// already collected.
func (c *Collection) Taken(id string) bool {
	if _, ok := c.ids[id]; ok {
		return true
	}
	_, ok := c.names[SanitizeName(id)]
	return ok
}

// CheckID validates a candidate service id without adding it.
func (c *Collection) CheckID(id string) error {
	if strings.TrimSpace(id) == "" || SanitizeName(id) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if c.Taken(id) {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	return nil
}

// UniqueID returns candidate if free, else candidate-2, candidate-3, ...
func (c *Collection) UniqueID(candidate string) string {
	if !c.Taken(candidate) {
		return candidate
	}
	for n := 2; ; n++ {
		id := fmt.Sprintf("%s-%d", candidate, n)
		if !c.Taken(id) {
			return id
		}
	}
}

// Add appends t. The id must already be unique; collisions are resolved by
// the caller before appending.
func (c *Collection) Add(t types.Target) error {
	if err := c.CheckID(t.ServiceID); err != nil {
		return err
	}
	c.items = append(c.items, t)
	c.ids[t.ServiceID] = struct{}{}
	c.names[SanitizeName(t.ServiceID)] = struct{}{}
	return nil
}

func (c *Collection) Len() int { return len(c.items) }

// Targets returns a copy of the collected targets in order.
func (c *Collection) Targets() []types.Target {
	return append([]types.Target(nil), c.items...)
}
