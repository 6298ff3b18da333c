// Package metadata merges the physical schema (pkg/schema) with a
// multi-level override tree, enforces visibility cascading, and exposes
// the discovery-surface projection the API layer serves.
package metadata

// AttributeOverride carries every presentation-layer field an override
// config may set on one physical column. A nil pointer field means "not
// specified" and defers to the merge rule's defaults.
type AttributeOverride struct {
	DisplayName        *string
	Visible            *bool
	Description        *string
	Placeholder        *string
	Scale              *int
	DataType           *string
	DataFormat         *string
	ValueMap           map[string]string
	Reference          *string
	DisplayPriority    *int
	DisplayOrder       *int
	CurrencySymbol     *string
	CurrencySymbolCode *int
	CacheConfig        *CacheConfig
}

// CacheConfig declares an attribute cardinality-safe for the
// attribute-value cache and tunes its refresh cadence.
type CacheConfig struct {
	Enabled bool
	TTL     int // seconds
}

// EntityOverride carries presentation fields for one entity plus its
// attribute overrides.
type EntityOverride struct {
	DisplayName *string
	Visible     *bool
	Description *string
	Attributes  map[string]AttributeOverride
}

// NetworkOverride carries presentation fields for one network plus its
// entity overrides.
type NetworkOverride struct {
	DisplayName *string
	Visible     *bool
	Description *string
	Entities    map[string]EntityOverride
}

// PlatformOverride carries presentation fields for one platform plus its
// network overrides. Visible defaults to false unless explicitly true —
// the platform level is the only level where an unset Visible does not
// inherit from a parent (there is none).
type PlatformOverride struct {
	DisplayName *string
	Visible     *bool
	Description *string
	Networks    map[string]NetworkOverride
}

// OverrideTree is the full configured override config, keyed by platform
// name, loaded once at startup and never mutated afterward.
type OverrideTree map[string]PlatformOverride

// Platform is the merged, discovery-surface projection of one platform.
type Platform struct {
	Name        string
	DisplayName string
	Description string
}

// Network is the merged projection of one network.
type Network struct {
	Name        string
	DisplayName string
	Description string
}

// Entity is the merged projection of one entity, including a count of
// its visible attributes.
type Entity struct {
	Name        string
	DisplayName string
	Description string
	Count       int
}

// Attribute is the merged projection of one physical column, the exact
// JSON shape the discovery surface serializes.
type Attribute struct {
	Name               string
	DisplayName        string
	DataType           string
	KeyType            string
	Cardinality        *int
	Entity             string
	Description        string
	Placeholder        string
	Scale              int
	DataFormat         string
	ValueMap           map[string]string
	Reference          string
	DisplayPriority    int
	DisplayOrder       int
	CurrencySymbol     string
	CurrencySymbolCode int
	CacheConfig        *CacheConfig
}
