// Package source provides build-request source abstractions for the
// scheduler. Each source type (filesystem watch, HTTP, database poll) is a
// concrete strategy implementing the Source interface; the scheduler reads
// from whichever are configured without caring which kind produced a given
// request.
package source

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Type identifies a source strategy.
type Type string

// BuildRequest is a unit of work a Source hands to the scheduler: build a
// BVH over the scene at ScenePath using SceneFormat, optionally carrying a
// caller-assigned Priority.
type BuildRequest struct {
	ScenePath   string
	SceneFormat string
	Priority    int
	ReceivedAt  time.Time
}

// Event wraps a BuildRequest with the source that produced it, so the
// scheduler can route Ack/Nack back to the right place.
type Event struct {
	Request    BuildRequest
	SourceType Type
	SourceName string
	metadata   map[string]string
}

// NewEvent wraps req as an Event from the given source.
func NewEvent(req BuildRequest, sourceType Type, sourceName string) *Event {
	return &Event{Request: req, SourceType: sourceType, SourceName: sourceName}
}

// WithMetadata attaches a metadata key/value and returns the event for
// chaining.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.metadata == nil {
		e.metadata = make(map[string]string)
	}
	e.metadata[key] = value
	return e
}

// GetMetadata reads a metadata value, returning "" if absent.
func (e *Event) GetMetadata(key string) string {
	if e.metadata == nil {
		return ""
	}
	return e.metadata[key]
}

// Source defines the strategy interface for build-request sources. Each
// concrete implementation (fswatch, http, database) implements this.
type Source interface {
	// Type returns the source type constant defined by the strategy.
	Type() Type

	// Name returns the instance name, distinguishing multiple instances
	// of the same type.
	Name() string

	// Start starts the source.
	Start(ctx context.Context) error

	// Stop stops the source gracefully.
	Stop() error

	// Requests returns a channel that emits build-request events.
	Requests() <-chan *Event

	// Ack acknowledges that a request was processed successfully.
	Ack(ctx context.Context, event *Event) error

	// Nack indicates request processing failed and may need retry.
	Nack(ctx context.Context, event *Event, reason string) error

	// HealthCheck reports whether the source is usable.
	HealthCheck(ctx context.Context) error
}

// Config holds the configuration for one source instance.
type Config struct {
	Type    Type                   `yaml:"type" mapstructure:"type"`
	Name    string                 `yaml:"name" mapstructure:"name"`
	Enabled bool                   `yaml:"enabled" mapstructure:"enabled"`
	Options map[string]interface{} `yaml:"options" mapstructure:"options"`
}

// GetString retrieves a string option with a default value.
func (c *Config) GetString(key, defaultValue string) string {
	if c.Options == nil {
		return defaultValue
	}
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultValue
}

// GetInt retrieves an int option with a default value.
func (c *Config) GetInt(key string, defaultValue int) int {
	if c.Options == nil {
		return defaultValue
	}
	switch v := c.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

// GetDuration retrieves a duration option, accepting a parseable string
// (e.g. "2s") or a plain number of seconds.
func (c *Config) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if c.Options == nil {
		return defaultValue
	}
	switch v := c.Options[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v) * time.Second
	}
	return defaultValue
}

// GetBool retrieves a bool option with a default value.
func (c *Config) GetBool(key string, defaultValue bool) bool {
	if c.Options == nil {
		return defaultValue
	}
	if v, ok := c.Options[key].(bool); ok {
		return v
	}
	return defaultValue
}

// Creator builds a Source from a Config.
type Creator func(cfg *Config) (Source, error)

var (
	registry   = make(map[Type]Creator)
	registryMu sync.RWMutex
)

// Register registers a Creator for a source Type. Concrete sources call
// this from their own init().
func Register(t Type, creator Creator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = creator
}

// IsRegistered reports whether t has a registered Creator.
func IsRegistered(t Type) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[t]
	return ok
}

// RegisteredTypes lists every registered source Type.
func RegisteredTypes() []Type {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// CreateSource builds a Source from cfg using the registered Creator for
// cfg.Type.
func CreateSource(cfg *Config) (Source, error) {
	registryMu.RLock()
	creator, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("source: unknown source type %q (registered: %v)", cfg.Type, RegisteredTypes())
	}
	return creator(cfg)
}

// CreateSources builds a Source for every enabled entry in configs.
func CreateSources(configs []*Config) ([]Source, error) {
	var sources []Source
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		src, err := CreateSource(cfg)
		if err != nil {
			return nil, fmt.Errorf("source: create %q: %w", cfg.Name, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
