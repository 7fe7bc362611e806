// Package catalog implements the layered artifact store: discovery, front
// matter parsing, and tiered precedence merging for prompts and workflows.
package catalog

// Tier identifies which layer an artifact was loaded from. Higher tiers
// override lower ones when names collide.
type Tier int

const (
	TierBuiltin Tier = iota
	TierUser
	TierProject
)

func (t Tier) String() string {
	switch t {
	case TierBuiltin:
		return "builtin"
	case TierUser:
		return "user"
	case TierProject:
		return "project"
	default:
		return "unknown"
	}
}

// ArgumentDescriptor describes one named argument a prompt accepts.
type ArgumentDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	TypeHint    string `json:"type_hint,omitempty" yaml:"type_hint,omitempty"`
}

// Prompt is a parameterized, templated text artifact.
type Prompt struct {
	Name        string
	Title       string
	Description string
	Arguments   []ArgumentDescriptor
	Template    string
	SourceTier  Tier
	// Path is the absolute file path the artifact was loaded from; for
	// builtin artifacts it is the path inside the embedded filesystem
	// (e.g. "prompts/greet.md").
	Path string
	// StrictVariables elevates an undefined template variable from an empty
	// string to a RenderError::UndefinedVariable (SPEC_FULL C3 additional
	// detail), set via the front-matter key "strict_variables".
	StrictVariables bool
}

// ArgumentByName returns the argument descriptor with the given name, and
// whether it was found.
func (p *Prompt) ArgumentByName(name string) (ArgumentDescriptor, bool) {
	for _, a := range p.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return ArgumentDescriptor{}, false
}
