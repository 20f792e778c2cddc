package gomod

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// Requirements reads the go.mod at repoPath and returns its require
// directives, with replaced modules swapped for their replacement when the
// replacement is itself a versioned module.
func Requirements(repoPath string) ([]module.Version, error) {
	gomodPath := filepath.Join(repoPath, "go.mod")

	data, err := os.ReadFile(gomodPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no go.mod found at %s", gomodPath)
		}
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}

	f, err := modfile.Parse(gomodPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}

	replaced := make(map[string]module.Version, len(f.Replace))
	for _, rep := range f.Replace {
		replaced[rep.Old.Path] = rep.New
	}

	reqs := make([]module.Version, 0, len(f.Require))
	for _, req := range f.Require {
		mod := req.Mod
		if rep, ok := replaced[mod.Path]; ok {
			if rep.Version == "" {
				// Local directory replacement; nothing to download.
				continue
			}
			mod = rep
		}
		reqs = append(reqs, mod)
	}
	return reqs, nil
}

// MissingFromCache returns the requirements of the go.mod at repoPath that
// have no extracted copy in modCache (the GOMODCACHE directory).
func MissingFromCache(repoPath, modCache string) ([]module.Version, error) {
	reqs, err := Requirements(repoPath)
	if err != nil {
		return nil, err
	}

	var missing []module.Version
	for _, req := range reqs {
		escPath, err := module.EscapePath(req.Path)
		if err != nil {
			return nil, fmt.Errorf("escaping module path %q: %w", req.Path, err)
		}
		escVersion, err := module.EscapeVersion(req.Version)
		if err != nil {
			return nil, fmt.Errorf("escaping version %q of %s: %w", req.Version, req.Path, err)
		}

		dir := filepath.Join(modCache, filepath.FromSlash(escPath)+"@"+escVersion)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			missing = append(missing, req)
		}
	}
	return missing, nil
}

// DefaultModCache mirrors the go command's GOMODCACHE resolution.
func DefaultModCache() string {
	if dir := os.Getenv("GOMODCACHE"); dir != "" {
		return dir
	}
	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		gopath = filepath.Join(home, "go")
	}
	return filepath.Join(filepath.SplitList(gopath)[0], "pkg", "mod")
}
