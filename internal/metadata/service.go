package metadata

import (
	"sort"

	"github.com/blockwatch-labs/tzindexer/pkg/schema"
)

// Service answers discovery queries against a MergedTree built once at
// startup from the physical schema and the configured override tree.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	tree MergedTree
}

// New builds a Service from the physical registry and override tree.
func New(physical schema.Registry, overrides OverrideTree) *Service {
	return &Service{tree: Merge(physical, overrides)}
}

// ListPlatforms returns every effectively visible platform.
func (s *Service) ListPlatforms() []Platform {
	out := make([]Platform, 0, len(s.tree.order))
	for _, name := range s.tree.order {
		p := s.tree.platforms[name]
		if p.visible {
			out = append(out, p.projection)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListNetworks returns the visible networks of one visible platform.
func (s *Service) ListNetworks(platform string) ([]Network, error) {
	p, err := s.resolvePlatform(platform)
	if err != nil {
		return nil, err
	}
	out := make([]Network, 0, len(p.order))
	for _, name := range p.order {
		n := p.networks[name]
		if n.visible {
			out = append(out, n.projection)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListEntities returns the visible entities of one visible network.
func (s *Service) ListEntities(platform, network string) ([]Entity, error) {
	n, err := s.resolveNetwork(platform, network)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(n.order))
	for _, name := range n.order {
		e := n.entities[name]
		if e.visible {
			out = append(out, e.projection)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListAttributes returns the visible attributes of one visible entity, in
// display order.
func (s *Service) ListAttributes(platform, network, entity string) ([]Attribute, error) {
	e, err := s.resolveEntity(platform, network, entity)
	if err != nil {
		return nil, err
	}
	out := make([]Attribute, 0, len(e.order))
	for _, name := range e.order {
		a := e.attributes[name]
		if a.visible {
			out = append(out, a.projection)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayPriority > out[j].DisplayPriority || (out[i].DisplayPriority == out[j].DisplayPriority && out[i].DisplayOrder < out[j].DisplayOrder) })
	return out, nil
}

// ResolveAttribute returns one visible attribute's merged projection, the
// lookup AttributeQueryEngine uses before validating a predicate operand.
func (s *Service) ResolveAttribute(platform, network, entity, attribute string) (Attribute, error) {
	e, err := s.resolveEntity(platform, network, entity)
	if err != nil {
		return Attribute{}, err
	}
	a, ok := e.attributes[attribute]
	if !ok {
		return Attribute{}, &UnknownPathError{Path: path(platform, network, entity, attribute)}
	}
	if !a.visible {
		return Attribute{}, &HiddenPathError{Path: path(platform, network, entity, attribute)}
	}
	return a.projection, nil
}

// EntityVisible reports whether platform/network/entity resolves to a
// visible entity, without erroring on an unknown or hidden path.
func (s *Service) EntityVisible(platform, network, entity string) bool {
	_, err := s.resolveEntity(platform, network, entity)
	return err == nil
}

// CacheableAttribute identifies one visible attribute whose override
// config enables the attribute-value cache.
type CacheableAttribute struct {
	Platform, Network, Entity, Attribute string
	Config                               CacheConfig
}

// ListCacheableAttributes walks every visible platform/network/entity/
// attribute and returns the ones with CacheConfig.Enabled set, the set
// RefreshCache's background scheduler drives.
func (s *Service) ListCacheableAttributes() []CacheableAttribute {
	var out []CacheableAttribute
	for _, platformName := range s.tree.order {
		p := s.tree.platforms[platformName]
		if !p.visible {
			continue
		}
		for _, networkName := range p.order {
			n := p.networks[networkName]
			if !n.visible {
				continue
			}
			for _, entityName := range n.order {
				e := n.entities[entityName]
				if !e.visible {
					continue
				}
				for _, attrName := range e.order {
					a := e.attributes[attrName]
					if !a.visible || a.projection.CacheConfig == nil || !a.projection.CacheConfig.Enabled {
						continue
					}
					out = append(out, CacheableAttribute{
						Platform: platformName, Network: networkName,
						Entity: entityName, Attribute: attrName,
						Config: *a.projection.CacheConfig,
					})
				}
			}
		}
	}
	return out
}

func (s *Service) resolvePlatform(platform string) (mergedPlatform, error) {
	p, ok := s.tree.platforms[platform]
	if !ok {
		return mergedPlatform{}, &UnknownPathError{Path: path(platform)}
	}
	if !p.visible {
		return mergedPlatform{}, &HiddenPathError{Path: path(platform)}
	}
	return p, nil
}

func (s *Service) resolveNetwork(platform, network string) (mergedNetwork, error) {
	p, err := s.resolvePlatform(platform)
	if err != nil {
		return mergedNetwork{}, err
	}
	n, ok := p.networks[network]
	if !ok {
		return mergedNetwork{}, &UnknownPathError{Path: path(platform, network)}
	}
	if !n.visible {
		return mergedNetwork{}, &HiddenPathError{Path: path(platform, network)}
	}
	return n, nil
}

func (s *Service) resolveEntity(platform, network, entity string) (mergedEntity, error) {
	n, err := s.resolveNetwork(platform, network)
	if err != nil {
		return mergedEntity{}, err
	}
	e, ok := n.entities[entity]
	if !ok {
		return mergedEntity{}, &UnknownPathError{Path: path(platform, network, entity)}
	}
	if !e.visible {
		return mergedEntity{}, &HiddenPathError{Path: path(platform, network, entity)}
	}
	return e, nil
}

func path(parts ...string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "/" + p
	}
	return out
}
