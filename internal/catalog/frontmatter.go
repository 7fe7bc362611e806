package catalog

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// frontMatter is the front matter shape shared by prompts and workflows.
// Keys other than the fields below are ignored when decoding.
type frontMatter struct {
	Name        string               `json:"name,omitempty" yaml:"name,omitempty"`
	Title       string               `json:"title,omitempty" yaml:"title,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Arguments   []ArgumentDescriptor `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Tags        []string             `json:"tags,omitempty" yaml:"tags,omitempty"`
	Category    string               `json:"category,omitempty" yaml:"category,omitempty"`
	StrictVariables bool             `json:"strict_variables,omitempty" yaml:"strict_variables,omitempty"`
}

// splitFrontMatter splits a Markdown artifact file into its YAML front
// matter (if present) and body. The front matter block is delimited by a
// line containing exactly "---" at the start of the file and a second such
// line terminating it.
func splitFrontMatter(content string) (yamlBlock string, body string, hasFrontMatter bool) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") && normalized != "---" {
		return "", normalized, false
	}

	rest := strings.TrimPrefix(normalized, "---\n")
	idx := strings.Index(rest, "\n---\n")
	if idx == -1 {
		// Allow a trailing "---" with no final newline (end of file).
		if strings.HasSuffix(rest, "\n---") {
			return rest[:len(rest)-4], "", true
		}
		return "", normalized, false
	}

	yamlBlock = rest[:idx]
	body = rest[idx+len("\n---\n"):]
	return yamlBlock, body, true
}

// parseFrontMatter unmarshals a YAML front matter block into frontMatter,
// returning a positioned Diagnostic on malformed YAML rather than an error,
// matching the load-continues-on-bad-artifact policy of the artifact store.
func parseFrontMatter(file, yamlBlock string) (frontMatter, *Diagnostic) {
	var raw map[string]any
	if strings.TrimSpace(yamlBlock) == "" {
		return frontMatter{}, nil
	}

	if err := yaml.Unmarshal([]byte(yamlBlock), &raw); err != nil {
		line, column, message := extractYAMLPosition(err)
		d := newParseDiagnostic(file, line, column, "ParseError", "malformed front matter: %s", message)
		d.Context = sourceContext(yamlBlock, line)
		return frontMatter{}, &d
	}

	fm, err := unmarshalFromMap(raw)
	if err != nil {
		d := newParseDiagnostic(file, 0, 0, "ParseError", "malformed front matter: %s", err.Error())
		return frontMatter{}, &d
	}
	return fm, nil
}

// unmarshalFromMap converts a generic YAML-decoded map into the typed
// frontMatter struct by round-tripping through JSON, which gives us
// consistent numeric/string coercion without hand-writing a field-by-field
// converter for every front-matter key.
func unmarshalFromMap(raw map[string]any) (frontMatter, error) {
	var fm frontMatter
	buf, err := json.Marshal(raw)
	if err != nil {
		return fm, err
	}
	if err := json.Unmarshal(buf, &fm); err != nil {
		return fm, err
	}
	return fm, nil
}

// nameFromPath derives an artifact name from its path relative to a source
// root, stripping the .md or .md.liquid extension and joining remaining
// path segments with "/".
func nameFromPath(relPath string) string {
	p := filepath.ToSlash(relPath)
	p = strings.TrimSuffix(p, ".md.liquid")
	p = strings.TrimSuffix(p, ".md")
	return p
}
