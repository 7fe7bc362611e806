package engine

import (
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/liquid"
)

// RenderPrompt binds args against prompt's argument descriptors (rendered
// arguments first, then front-matter defaults, per §4.3's resolution
// order) and renders its template in a child scope. It is the shared path
// between ExecutePrompt action evaluation and the tool protocol's
// render_prompt surface (§6), so both honor the same MissingArgument and
// strict-mode behavior.
func RenderPrompt(snap *catalog.Snapshot, prompt *catalog.Prompt, rendered map[string]string, ambient map[string]Value) (string, *ActionError) {
	childVars := map[string]Value{}
	for k, v := range ambient {
		childVars[k] = v
	}
	for _, argDesc := range prompt.Arguments {
		if v, ok := rendered[argDesc.Name]; ok {
			childVars[argDesc.Name] = v
			continue
		}
		if argDesc.Default != "" {
			childVars[argDesc.Name] = argDesc.Default
			continue
		}
		if argDesc.Required {
			return "", &ActionError{Kind: ErrMissingArgument, Message: "missing required argument: " + argDesc.Name}
		}
	}
	for name, v := range rendered {
		childVars[name] = v
	}

	scope := liquid.NewScope(childVars)
	scope.Strict = prompt.StrictVariables

	out, err := liquid.Render(prompt.Template, scope, catalogResolver{snap})
	if err != nil {
		return "", &ActionError{Kind: ErrRender, Message: err.Error()}
	}
	return out, nil
}
