package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configAttribute mirrors AttributeOverride's on-disk YAML shape.
type configAttribute struct {
	DisplayName        *string           `yaml:"displayName"`
	Visible            *bool             `yaml:"visible"`
	Description        *string           `yaml:"description"`
	Placeholder        *string           `yaml:"placeholder"`
	Scale              *int              `yaml:"scale"`
	DataType           *string           `yaml:"dataType"`
	DataFormat         *string           `yaml:"dataFormat"`
	ValueMap           map[string]string `yaml:"valueMap"`
	Reference          *string           `yaml:"reference"`
	DisplayPriority    *int              `yaml:"displayPriority"`
	DisplayOrder       *int              `yaml:"displayOrder"`
	CurrencySymbol     *string           `yaml:"currencySymbol"`
	CurrencySymbolCode *int              `yaml:"currencySymbolCode"`
	CacheConfig        *struct {
		Enabled bool `yaml:"enabled"`
		TTL     int  `yaml:"ttl"`
	} `yaml:"cacheConfig"`
}

type configEntity struct {
	DisplayName *string                    `yaml:"displayName"`
	Visible     *bool                      `yaml:"visible"`
	Description *string                    `yaml:"description"`
	Attributes  map[string]configAttribute `yaml:"attributes"`
}

type configNetwork struct {
	DisplayName *string                 `yaml:"displayName"`
	Visible     *bool                   `yaml:"visible"`
	Description *string                 `yaml:"description"`
	Entities    map[string]configEntity `yaml:"entities"`
}

type configPlatform struct {
	DisplayName *string                  `yaml:"displayName"`
	Visible     *bool                    `yaml:"visible"`
	Description *string                  `yaml:"description"`
	Networks    map[string]configNetwork `yaml:"networks"`
}

// LoadOverrideTree reads the metadata override config from path. A
// missing file is not an error — it yields an empty tree, under which
// every platform defaults to hidden.
func LoadOverrideTree(path string) (OverrideTree, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return OverrideTree{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: read override config: %w", err)
	}

	var raw map[string]configPlatform
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("metadata: parse override config %s: %w", path, err)
	}

	tree := make(OverrideTree, len(raw))
	for name, cp := range raw {
		tree[name] = convertPlatform(cp)
	}
	return tree, nil
}

func convertPlatform(cp configPlatform) PlatformOverride {
	po := PlatformOverride{
		DisplayName: cp.DisplayName,
		Visible:     cp.Visible,
		Description: cp.Description,
		Networks:    make(map[string]NetworkOverride, len(cp.Networks)),
	}
	for name, cn := range cp.Networks {
		po.Networks[name] = convertNetwork(cn)
	}
	return po
}

func convertNetwork(cn configNetwork) NetworkOverride {
	no := NetworkOverride{
		DisplayName: cn.DisplayName,
		Visible:     cn.Visible,
		Description: cn.Description,
		Entities:    make(map[string]EntityOverride, len(cn.Entities)),
	}
	for name, ce := range cn.Entities {
		no.Entities[name] = convertEntity(ce)
	}
	return no
}

func convertEntity(ce configEntity) EntityOverride {
	eo := EntityOverride{
		DisplayName: ce.DisplayName,
		Visible:     ce.Visible,
		Description: ce.Description,
		Attributes:  make(map[string]AttributeOverride, len(ce.Attributes)),
	}
	for name, ca := range ce.Attributes {
		ao := AttributeOverride{
			DisplayName:        ca.DisplayName,
			Visible:            ca.Visible,
			Description:        ca.Description,
			Placeholder:        ca.Placeholder,
			Scale:              ca.Scale,
			DataType:           ca.DataType,
			DataFormat:         ca.DataFormat,
			ValueMap:           ca.ValueMap,
			Reference:          ca.Reference,
			DisplayPriority:    ca.DisplayPriority,
			DisplayOrder:       ca.DisplayOrder,
			CurrencySymbol:     ca.CurrencySymbol,
			CurrencySymbolCode: ca.CurrencySymbolCode,
		}
		if ca.CacheConfig != nil {
			ao.CacheConfig = &CacheConfig{Enabled: ca.CacheConfig.Enabled, TTL: ca.CacheConfig.TTL}
		}
		eo.Attributes[name] = ao
	}
	return eo
}
