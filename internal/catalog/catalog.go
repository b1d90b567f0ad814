// Package catalog holds the static provisioning configuration: the module
// catalog with per-module role templates, pricing plans, supported currencies
// and organization types. The data ships embedded with the binary and is
// immutable after load.
package catalog

import (
	"fmt"
	"strings"
	"sync"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var rawCatalog []byte

// Role is a named permission template inside a module. The CRUD flags are
// fixed configuration data, never derived at runtime.
type Role struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Create bool     `yaml:"create"`
	Read   bool     `yaml:"read"`
	Update bool     `yaml:"update"`
	Delete bool     `yaml:"delete"`
	Extras []string `yaml:"extras"`
}

// Module is a product module selectable during signup.
type Module struct {
	Key       string `yaml:"key"`
	Name      string `yaml:"name"`
	Mandatory bool   `yaml:"mandatory"`
	Roles     []Role `yaml:"roles"`
}

// Plan is a pricing plan. MaxUsers of zero means unlimited.
type Plan struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	MonthlyUSD int    `yaml:"monthly_usd"`
	MaxUsers   int    `yaml:"max_users"`
}

// Catalog is the loaded configuration. All lookups are read-only.
type Catalog struct {
	OrganizationTypes []string `yaml:"organization_types"`
	Currencies        []string `yaml:"currencies"`
	Plans             []Plan   `yaml:"plans"`
	Modules           []Module `yaml:"modules"`

	moduleIndex map[string]*Module
	roleIndex   map[string]map[string]*Role
	planIndex   map[string]*Plan
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, parsed once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(rawCatalog)
	})
	return defaultCat, defaultErr
}

// Parse decodes and indexes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	if len(c.Modules) == 0 {
		return fmt.Errorf("catalog: no modules defined")
	}
	c.moduleIndex = make(map[string]*Module, len(c.Modules))
	c.roleIndex = make(map[string]map[string]*Role, len(c.Modules))
	for i := range c.Modules {
		mod := &c.Modules[i]
		key := strings.TrimSpace(mod.Key)
		if key == "" {
			return fmt.Errorf("catalog: module %d has empty key", i)
		}
		if _, dup := c.moduleIndex[key]; dup {
			return fmt.Errorf("catalog: duplicate module key %q", key)
		}
		if len(mod.Roles) == 0 {
			return fmt.Errorf("catalog: module %q has no roles", key)
		}
		c.moduleIndex[key] = mod
		roles := make(map[string]*Role, len(mod.Roles))
		for j := range mod.Roles {
			role := &mod.Roles[j]
			if role.ID == "" {
				return fmt.Errorf("catalog: module %q role %d has empty id", key, j)
			}
			if _, dup := roles[role.ID]; dup {
				return fmt.Errorf("catalog: module %q duplicate role %q", key, role.ID)
			}
			roles[role.ID] = role
		}
		c.roleIndex[key] = roles
	}
	mandatory := false
	for _, mod := range c.Modules {
		if mod.Mandatory {
			mandatory = true
		}
	}
	if !mandatory {
		return fmt.Errorf("catalog: at least one mandatory module is required")
	}
	c.planIndex = make(map[string]*Plan, len(c.Plans))
	for i := range c.Plans {
		plan := &c.Plans[i]
		if plan.ID == "" {
			return fmt.Errorf("catalog: plan %d has empty id", i)
		}
		c.planIndex[plan.ID] = plan
	}
	return nil
}

// Module returns the module for the given key.
func (c *Catalog) Module(key string) (Module, bool) {
	mod, ok := c.moduleIndex[key]
	if !ok {
		return Module{}, false
	}
	return *mod, true
}

// Role returns the permission template for a module/role pair.
func (c *Catalog) Role(moduleKey, roleID string) (Role, bool) {
	roles, ok := c.roleIndex[moduleKey]
	if !ok {
		return Role{}, false
	}
	role, ok := roles[roleID]
	if !ok {
		return Role{}, false
	}
	return *role, true
}

// Plan returns the pricing plan for the given id.
func (c *Catalog) Plan(id string) (Plan, bool) {
	plan, ok := c.planIndex[id]
	if !ok {
		return Plan{}, false
	}
	return *plan, true
}

// MandatoryModules lists keys of modules that every tenant receives.
func (c *Catalog) MandatoryModules() []string {
	var keys []string
	for _, mod := range c.Modules {
		if mod.Mandatory {
			keys = append(keys, mod.Key)
		}
	}
	return keys
}

// IsOrganizationType reports whether t is a supported organization type.
func (c *Catalog) IsOrganizationType(t string) bool {
	for _, known := range c.OrganizationTypes {
		if known == t {
			return true
		}
	}
	return false
}

// IsCurrency reports whether code is a supported primary currency.
func (c *Catalog) IsCurrency(code string) bool {
	for _, known := range c.Currencies {
		if known == code {
			return true
		}
	}
	return false
}
