// Package builtin embeds the artifacts shipped in the program image: the
// lowest-precedence tier of the layered artifact store.
package builtin

import "embed"

//go:embed prompts workflows
var FS embed.FS
