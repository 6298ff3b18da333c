package metadata

import (
	"strings"
	"unicode"

	"github.com/blockwatch-labs/tzindexer/pkg/schema"
)

type mergedAttribute struct {
	visible    bool
	projection Attribute
}

type mergedEntity struct {
	visible    bool
	projection Entity
	attributes map[string]mergedAttribute
	order      []string
}

type mergedNetwork struct {
	visible    bool
	projection Network
	entities   map[string]mergedEntity
	order      []string
}

type mergedPlatform struct {
	visible    bool
	projection Platform
	networks   map[string]mergedNetwork
	order      []string
}

// MergedTree is the immutable result of merging a physical schema.Registry
// with an OverrideTree. It never retains a reference into either input.
type MergedTree struct {
	platforms map[string]mergedPlatform
	order     []string
}

// Merge combines the physical schema with the configured override tree.
// It never mutates either argument. Visibility cascades top-down: a node
// unspecified at its own level inherits its parent's effective
// visibility; the platform level has no parent and defaults to hidden.
func Merge(physical schema.Registry, overrides OverrideTree) MergedTree {
	tree := MergedTree{platforms: make(map[string]mergedPlatform, len(physical.Platforms))}

	for _, p := range physical.Platforms {
		po := overrides[p.Name] // zero value if absent

		platformVisible := boolOr(po.Visible, false)

		mp := mergedPlatform{
			visible: platformVisible,
			projection: Platform{
				Name:        p.Name,
				DisplayName: strOr(po.DisplayName, titleCase(p.Name)),
				Description: strOr(po.Description, ""),
			},
			networks: make(map[string]mergedNetwork, len(p.Networks)),
		}

		for _, n := range p.Networks {
			no := po.Networks[n.Name]
			networkVisible := platformVisible && boolOr(no.Visible, platformVisible)

			mn := mergedNetwork{
				visible: networkVisible,
				projection: Network{
					Name:        n.Name,
					DisplayName: strOr(no.DisplayName, titleCase(n.Name)),
					Description: strOr(no.Description, ""),
				},
				entities: make(map[string]mergedEntity, len(n.Entities)),
			}

			for _, e := range n.Entities {
				eo := no.Entities[e.Name]
				entityVisible := networkVisible && boolOr(eo.Visible, networkVisible)

				me := mergedEntity{
					visible: entityVisible,
					attributes: make(map[string]mergedAttribute, len(e.Columns)),
				}

				visibleCount := 0
				for i, c := range e.Columns {
					ao := eo.Attributes[c.Name]
					attrVisible := entityVisible && boolOr(ao.Visible, entityVisible)
					if attrVisible {
						visibleCount++
					}

					keyType := ""
					if i == 0 {
						keyType = "primary"
					}

					attr := Attribute{
						Name:               c.Name,
						DisplayName:        strOr(ao.DisplayName, titleCase(c.Name)),
						DataType:           strOr(ao.DataType, string(c.Type)),
						KeyType:            keyType,
						Entity:             e.Name,
						Description:        strOr(ao.Description, c.Comment),
						Placeholder:        strOr(ao.Placeholder, ""),
						Scale:              intOr(ao.Scale, 0),
						DataFormat:         strOr(ao.DataFormat, ""),
						ValueMap:           ao.ValueMap,
						Reference:          strOr(ao.Reference, ""),
						DisplayPriority:    intOr(ao.DisplayPriority, 0),
						DisplayOrder:       intOr(ao.DisplayOrder, i),
						CurrencySymbol:     strOr(ao.CurrencySymbol, ""),
						CurrencySymbolCode: intOr(ao.CurrencySymbolCode, 0),
						CacheConfig:        ao.CacheConfig,
					}

					me.attributes[c.Name] = mergedAttribute{visible: attrVisible, projection: attr}
					me.order = append(me.order, c.Name)
				}

				me.projection = Entity{
					Name:        e.Name,
					DisplayName: strOr(eo.DisplayName, titleCase(e.Name)),
					Description: strOr(eo.Description, ""),
					Count:       visibleCount,
				}

				mn.entities[e.Name] = me
				mn.order = append(mn.order, e.Name)
			}

			mp.networks[n.Name] = mn
			mp.order = append(mp.order, n.Name)
		}

		tree.platforms[p.Name] = mp
		tree.order = append(tree.order, p.Name)
	}

	return tree
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func strOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// titleCase is the displayName default: a capitalized identifier built
// from a camelCase or snake_case physical name, e.g. "blockLevel" or
// "block_level" becomes "Block Level".
func titleCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			continue
		case i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]):
			b.WriteRune(' ')
			b.WriteRune(r)
			continue
		case i == 0 || runes[i-1] == '_' || runes[i-1] == '-' || runes[i-1] == ' ':
			b.WriteRune(unicode.ToUpper(r))
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
