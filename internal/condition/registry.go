package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// Definition is the persisted form of a condition: a registered id plus its
// configuration, stored alongside the promotion or tax type that owns it.
type Definition struct {
	ID     string         `json:"id"`
	Config map[string]any `json:"config,omitempty"`
}

// GroupDefinition is the persisted form of a condition group.
type GroupDefinition struct {
	Operator   string       `json:"operator,omitempty"`
	Conditions []Definition `json:"conditions,omitempty"`
}

// Factory builds a configured condition from its persisted config.
type Factory func(r *Registry, cfg map[string]any) (Condition, error)

// Registry maps condition ids to factories. It replaces the host framework's
// annotation scanning with an explicit table assembled at startup.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry builds a registry with all built-in conditions registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(IDOrderItemQuantity, newOrderItemQuantity)
	r.Register(IDOrderTotalPrice, newOrderTotalPrice)
	r.Register(IDOrderCurrency, newOrderCurrency)
	r.Register(IDOrderItemProduct, newOrderItemProduct)
	return r
}

// Register adds (or replaces) a factory under the given id.
func (r *Registry) Register(id string, f Factory) {
	r.factories[id] = f
}

// Build constructs the condition a definition describes.
func (r *Registry) Build(def Definition) (Condition, error) {
	f, ok := r.factories[def.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, def.ID)
	}
	c, err := f(r, def.Config)
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", def.ID, err)
	}
	return c, nil
}

// BuildGroup constructs a group from its persisted definition.
func (r *Registry) BuildGroup(def GroupDefinition) (Group, error) {
	operator := GroupOperator(strings.ToUpper(strings.TrimSpace(def.Operator)))
	if operator == "" {
		operator = And
	}
	if operator != And && operator != Or {
		return Group{}, fmt.Errorf("%w: group operator %q", ErrInvalidConfig, def.Operator)
	}
	g := Group{Operator: operator}
	for _, cd := range def.Conditions {
		c, err := r.Build(cd)
		if err != nil {
			return Group{}, err
		}
		g.Conditions = append(g.Conditions, c)
	}
	return g, nil
}

// config readers: persisted configs arrive as generic JSON maps, so numbers
// may be float64 and lists may be []any.

func cfgString(cfg map[string]any, key string) string {
	switch v := cfg[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func cfgStrings(cfg map[string]any, key string) []string {
	var out []string
	switch v := cfg[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func cfgGroup(r *Registry, cfg map[string]any, key string) (*Group, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, nil
	}
	defs, err := decodeDefinitions(raw)
	if err != nil {
		return nil, err
	}
	g, err := r.BuildGroup(GroupDefinition{
		Operator:   cfgString(cfg, key+"_operator"),
		Conditions: defs,
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func decodeDefinitions(raw any) ([]Definition, error) {
	items, ok := raw.([]any)
	if !ok {
		if defs, ok := raw.([]Definition); ok {
			return defs, nil
		}
		return nil, fmt.Errorf("%w: conditions must be a list", ErrInvalidConfig)
	}
	var defs []Definition
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: condition entry must be an object", ErrInvalidConfig)
		}
		def := Definition{ID: cfgString(m, "id")}
		if cfg, ok := m["config"].(map[string]any); ok {
			def.Config = cfg
		}
		defs = append(defs, def)
	}
	return defs, nil
}
