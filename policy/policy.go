package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brokerdesk/authcore/condition"
	"github.com/brokerdesk/authcore/permission"
	"github.com/brokerdesk/authcore/session"
)

// File is the on-disk policy document.
type File struct {
	Issuer       string                          `yaml:"issuer"`
	Hierarchy    []string                        `yaml:"hierarchy"`
	Roles        map[string]map[string]GrantSpec `yaml:"roles"`
	Privileges   map[string]map[string]GrantSpec `yaml:"privileges"`
	RiskCeilings map[string]int                  `yaml:"risk_ceilings"`
	Conditions   []condition.Rule                `yaml:"conditions"`
	Operations   []OperationSpec                 `yaml:"operations"`
}

// GrantSpec is a mask given either as an action list or as a hex string.
//
//	deal: [VIEW, EDIT]
//	deal: "0x0005"
type GrantSpec struct {
	Actions []string
	Hex     string
}

// UnmarshalYAML accepts both the scalar hex form and the sequence form.
func (g *GrantSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		g.Hex = strings.TrimSpace(value.Value)
		return nil
	case yaml.SequenceNode:
		return value.Decode(&g.Actions)
	default:
		return fmt.Errorf("line %d: grant must be an action list or a hex mask", value.Line)
	}
}

func (g GrantSpec) mask(table *permission.ActionTable) (permission.Mask, error) {
	if g.Hex != "" {
		return permission.DecodeMask(g.Hex)
	}
	return table.EncodeNames(g.Actions)
}

// RequirementSpec is one required permission of an operation.
type RequirementSpec struct {
	Resource string   `yaml:"resource"`
	Actions  []string `yaml:"actions"`
}

// OperationSpec declares a protected operation.
type OperationSpec struct {
	Name                   string            `yaml:"name"`
	Requires               []RequirementSpec `yaml:"requires"`
	RequireAll             *bool             `yaml:"require_all"`
	Sensitivity            string            `yaml:"sensitivity"`
	GeoRestricted          bool              `yaml:"geo_restricted"`
	AllowedRegions         []string          `yaml:"allowed_regions"`
	MinDataProtectionLevel int               `yaml:"min_data_protection_level"`
	// Parameters names the runtime parameters every invocation supplies.
	// Conditions bound to a declared parameter are unmet when it is absent.
	Parameters []string `yaml:"parameters"`
}

// Operation is a compiled operation declaration.
type Operation struct {
	Name        string
	Required    []permission.Required
	RequireAll  bool
	Requirement session.Requirement
	Parameters  []string
}

// Compiled holds frozen tables built from a [File].
type Compiled struct {
	Issuer       string
	Hierarchy    *permission.Hierarchy
	Roles        *permission.GrantTable
	Privileges   *permission.GrantTable
	RiskCeilings map[session.Sensitivity]int
	Vocabulary   *condition.Vocabulary
	Operations   []Operation
}

// Load reads and parses the policy file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a policy document. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	return &f, nil
}

// Compile validates the document against the action table and builds the
// frozen tables. Roles named in grants must be part of the hierarchy; an
// empty hierarchy means the platform default.
func (f *File) Compile(table *permission.ActionTable) (*Compiled, error) {
	if table == nil {
		table = permission.Canonical()
	}

	order := permission.DefaultOrder
	if len(f.Hierarchy) > 0 {
		order = make([]permission.Role, 0, len(f.Hierarchy))
		for _, name := range f.Hierarchy {
			order = append(order, permission.ParseRole(name))
		}
	}
	hierarchy, err := permission.NewHierarchy(order)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: %w", err)
	}

	roles := permission.NewGrantTable()
	for _, name := range sortedKeys(f.Roles) {
		role := permission.ParseRole(name)
		if !hierarchy.Contains(role) {
			return nil, fmt.Errorf("roles: %w: %q", permission.ErrUnknownRole, name)
		}
		if err := grantAll(roles, table, string(role), f.Roles[name]); err != nil {
			return nil, fmt.Errorf("roles.%s: %w", name, err)
		}
	}
	roles.Freeze()

	privileges := permission.NewGrantTable()
	for _, tag := range sortedKeys(f.Privileges) {
		if strings.TrimSpace(tag) == "" {
			return nil, fmt.Errorf("privileges: empty privilege tag")
		}
		if err := grantAll(privileges, table, tag, f.Privileges[tag]); err != nil {
			return nil, fmt.Errorf("privileges.%s: %w", tag, err)
		}
	}
	privileges.Freeze()

	ceilings := session.DefaultRiskCeilings()
	for name, c := range f.RiskCeilings {
		tier, err := session.ParseSensitivity(name)
		if err != nil {
			return nil, fmt.Errorf("risk_ceilings: %w", err)
		}
		if c < 0 || c > 100 {
			return nil, fmt.Errorf("risk_ceilings.%s: %d outside [0, 100]", name, c)
		}
		ceilings[tier] = c
	}

	rules := f.Conditions
	if len(rules) == 0 {
		rules = condition.DefaultRules
	}
	vocab, err := condition.NewVocabulary(rules...)
	if err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}

	ops, err := compileOperations(f.Operations, table)
	if err != nil {
		return nil, err
	}

	return &Compiled{
		Issuer:       strings.TrimSpace(f.Issuer),
		Hierarchy:    hierarchy,
		Roles:        roles,
		Privileges:   privileges,
		RiskCeilings: ceilings,
		Vocabulary:   vocab,
		Operations:   ops,
	}, nil
}

func grantAll(g *permission.GrantTable, table *permission.ActionTable, holder string, byResource map[string]GrantSpec) error {
	for _, resource := range sortedKeys(byResource) {
		m, err := byResource[resource].mask(table)
		if err != nil {
			return fmt.Errorf("%s: %w", resource, err)
		}
		if err := g.Grant(holder, resource, m); err != nil {
			return err
		}
	}
	return nil
}

func compileOperations(specs []OperationSpec, table *permission.ActionTable) ([]Operation, error) {
	seen := make(map[string]struct{}, len(specs))
	out := make([]Operation, 0, len(specs))
	for i, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("operations[%d]: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("operations[%d]: duplicate operation %q", i, name)
		}
		seen[name] = struct{}{}

		op := Operation{Name: name, RequireAll: true}
		if spec.RequireAll != nil {
			op.RequireAll = *spec.RequireAll
		}
		for j, r := range spec.Requires {
			if strings.TrimSpace(r.Resource) == "" {
				return nil, fmt.Errorf("operations.%s.requires[%d]: resource is required", name, j)
			}
			actions := make([]permission.Action, 0, len(r.Actions))
			for _, a := range r.Actions {
				actions = append(actions, permission.ParseAction(a))
			}
			if _, err := table.Encode(actions); err != nil {
				return nil, fmt.Errorf("operations.%s.requires[%d]: %w", name, j, err)
			}
			op.Required = append(op.Required, permission.Required{Resource: r.Resource, Actions: actions})
		}

		sens, err := session.ParseSensitivity(spec.Sensitivity)
		if err != nil {
			return nil, fmt.Errorf("operations.%s: %w", name, err)
		}
		op.Requirement = session.Requirement{
			Sensitivity:            sens,
			GeoRestricted:          spec.GeoRestricted,
			AllowedRegions:         append([]string(nil), spec.AllowedRegions...),
			MinDataProtectionLevel: spec.MinDataProtectionLevel,
		}
		if err := op.Requirement.Validate(); err != nil {
			return nil, fmt.Errorf("operations.%s: %w", name, err)
		}
		params, err := ValidateParameters(spec.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operations.%s: %w", name, err)
		}
		op.Parameters = params
		out = append(out, op)
	}
	return out, nil
}

// ValidateParameters trims names and rejects empty or repeated entries.
func ValidateParameters(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, errors.New("parameters contain an empty entry")
		}
		if slices.Contains(out, n) {
			return nil, fmt.Errorf("duplicate parameter %q", n)
		}
		out = append(out, n)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
