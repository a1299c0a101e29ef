package registry

// Classification is the ordered risk tier assigned to a tool. It controls
// which rate budget the tool draws from; whether a tool is blocked under
// read-only mode is governed by SideEffect alone.
type Classification string

const (
	ClassLow      Classification = "low"
	ClassMedium   Classification = "medium"
	ClassHigh     Classification = "high"
	ClassCritical Classification = "critical"
)

// classRank orders tiers from least to most restricted.
var classRank = map[Classification]int{
	ClassLow:      0,
	ClassMedium:   1,
	ClassHigh:     2,
	ClassCritical: 3,
}

// Normalize maps an unknown or empty classification to the strictest tier.
// Tools registered without an explicit tier default up, never down.
func (c Classification) Normalize() Classification {
	if _, ok := classRank[c]; !ok {
		return ClassCritical
	}
	return c
}

// Valid reports whether c is one of the four known tiers.
func (c Classification) Valid() bool {
	_, ok := classRank[c]
	return ok
}

// Classifications lists all tiers in ascending strictness.
// The order is fixed; callers iterate it when building per-tier state.
func Classifications() []Classification {
	return []Classification{ClassLow, ClassMedium, ClassHigh, ClassCritical}
}

// Parameter describes one argument a tool accepts.
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"` // "string", "number", "integer", "boolean", "object", "array"
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
}

// ToolDescriptor is one registrable capability. Descriptors are created once
// at startup from a static catalog and never mutated afterwards.
type ToolDescriptor struct {
	Name           string
	Category       string
	Description    string
	Parameters     []Parameter
	Classification Classification
	SideEffect     bool
	// Endpoint is the collaborator reference: where invocations of this
	// tool are forwarded. Empty for tools bound in code.
	Endpoint string

	// argSchema is the compiled JSON schema for the parameter list,
	// built at registration. Nil when the tool takes no parameters.
	argSchema *compiledSchema
}
