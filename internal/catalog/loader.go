package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog/builtin"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/workflow"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/logger"
)

var loaderLog = logger.New("catalog:loader")

// Loader builds catalog Snapshots by reading the three tiers in precedence
// order (builtin, user, project) and overlaying them by artifact name.
type Loader struct {
	// UserDir is the root of the user tier, typically
	// <user-home>/.swissarmyhammer. Empty disables this tier.
	UserDir string
	// ProjectDir is the root of the project tier, typically
	// <project-root>/.swissarmyhammer. Empty disables this tier.
	ProjectDir string
	// BuiltinFS backs the builtin tier. Defaults to the embedded builtin.FS;
	// overridable in tests so fixtures don't have to live in the real
	// embedded asset tree.
	BuiltinFS fs.FS
}

// NewLoader builds a Loader from the conventional locations: the user's
// home directory and the nearest ancestor of the working directory
// containing a .swissarmyhammer directory.
func NewLoader() *Loader {
	l := &Loader{BuiltinFS: builtin.FS}
	if home, err := os.UserHomeDir(); err == nil {
		l.UserDir = filepath.Join(home, ".swissarmyhammer")
	}
	if wd, err := os.Getwd(); err == nil {
		if root, ok := findProjectRoot(wd); ok {
			l.ProjectDir = root
		}
	}
	return l
}

// findProjectRoot walks up from dir looking for a .swissarmyhammer
// directory, returning its path.
func findProjectRoot(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, ".swissarmyhammer")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load builds a fresh Snapshot from all three tiers. Malformed artifacts are
// omitted and reported as Diagnostics rather than failing the whole load.
func (l *Loader) Load() *Snapshot {
	snap := &Snapshot{
		Prompts:   map[string]*Prompt{},
		Workflows: map[string]*workflow.Workflow{},
	}

	builtinFSys := l.BuiltinFS
	if builtinFSys == nil {
		builtinFSys = builtin.FS
	}
	l.loadTier(snap, embedFS{fs: builtinFSys}, "", TierBuiltin)
	if l.UserDir != "" {
		l.loadTier(snap, osFS{root: l.UserDir}, l.UserDir, TierUser)
	}
	if l.ProjectDir != "" {
		l.loadTier(snap, osFS{root: l.ProjectDir}, l.ProjectDir, TierProject)
	}

	return snap
}

// tierFS abstracts over embed.FS (builtin) and the OS filesystem (user,
// project) so loadTier doesn't need to care which backs a given tier.
type tierFS interface {
	fs.FS
	AbsPath(relPath string) string
}

type embedFS struct{ fs fs.FS }

func (e embedFS) Open(name string) (fs.File, error) { return e.fs.Open(name) }
func (embedFS) AbsPath(relPath string) string        { return "" }

type osFS struct{ root string }

func (o osFS) Open(name string) (fs.File, error) { return os.Open(filepath.Join(o.root, name)) }
func (o osFS) AbsPath(relPath string) string      { return filepath.Join(o.root, relPath) }

func (l *Loader) loadTier(snap *Snapshot, tfs tierFS, rootDescription string, tier Tier) {
	l.loadKind(snap, tfs, tier, "prompts", func(name, body, file string, fm frontMatter, tier Tier) {
		p := &Prompt{
			Name:            firstNonEmpty(fm.Name, name),
			Title:           fm.Title,
			Description:     fm.Description,
			Arguments:       fm.Arguments,
			Template:        body,
			SourceTier:      tier,
			Path:            file,
			StrictVariables: fm.StrictVariables,
		}
		if existing, ok := snap.Prompts[p.Name]; ok {
			if existing.SourceTier > tier {
				return
			}
			if existing.SourceTier == tier {
				snap.Diagnostics = append(snap.Diagnostics, newWarnDiagnostic(file, 0, 0, "DuplicateName", "duplicate prompt name %q in %s tier; last one loaded wins", p.Name, tier))
			}
		}
		snap.Prompts[p.Name] = p
	})

	l.loadKind(snap, tfs, tier, "workflows", func(name, body, file string, fm frontMatter, tier Tier) {
		wtier := workflow.Tier(tier)
		w, err := workflow.Parse(workflow.ParseInput{
			Name:        firstNonEmpty(fm.Name, name),
			Title:       fm.Title,
			Description: fm.Description,
			Category:    fm.Category,
			Tags:        fm.Tags,
			Tier:        wtier,
			Path:        file,
			Body:        body,
		})
		if err != nil {
			snap.Diagnostics = append(snap.Diagnostics, newParseDiagnostic(file, 0, 0, "ParseError", "%v", err))
			return
		}
		if existing, ok := snap.Workflows[w.Name]; ok {
			if existing.SourceTier > workflow.Tier(tier) {
				return
			}
			if existing.SourceTier == workflow.Tier(tier) {
				snap.Diagnostics = append(snap.Diagnostics, newWarnDiagnostic(file, 0, 0, "DuplicateName", "duplicate workflow name %q in %s tier; last one loaded wins", w.Name, tier))
			}
		}
		snap.Workflows[w.Name] = w
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// loadKind walks tfs/<kind> for .md and .md.liquid files, parses front
// matter, and invokes onArtifact with the decoded body for each.
func (l *Loader) loadKind(snap *Snapshot, tfs tierFS, tier Tier, kind string, onArtifact func(name, body, file string, fm frontMatter, tier Tier)) {
	err := fs.WalkDir(tfs, kind, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // directory absent for this tier; not an error
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".md") && !strings.HasSuffix(path, ".md.liquid") {
			return nil
		}

		data, err := fs.ReadFile(tfs, path)
		if err != nil {
			loaderLog.Printf("failed to read %s: %v", path, err)
			return nil
		}

		relToKind := strings.TrimPrefix(path, kind+"/")
		name := nameFromPath(relToKind)

		yamlBlock, body, _ := splitFrontMatter(string(data))
		absPath := tfs.AbsPath(path)

		fm, diag := parseFrontMatter(firstNonEmpty(absPath, path), yamlBlock)
		if diag != nil {
			snap.Diagnostics = append(snap.Diagnostics, *diag)
			return nil
		}

		onArtifact(name, body, firstNonEmpty(absPath, path), fm, tier)
		return nil
	})
	if err != nil {
		loaderLog.Printf("walk error under %s: %v", kind, err)
	}
}
