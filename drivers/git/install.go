package git

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/spf13/afero"
)

const (
	// MergeDriverName is the gitattributes merge driver hookup registers.
	MergeDriverName = "railsschema"

	hookShebang = "#!/bin/bash\n"
)

// InstallOptions configures Install.
type InstallOptions struct {
	// Command is the executable name written into the hook.
	Command string
	// SchemaPath is the schema file routed to the merge driver, relative to
	// the directory passed to Install. Empty skips merge driver registration.
	SchemaPath string
}

// InstallResult reports what Install changed.
type InstallResult struct {
	HookPath         string
	AlreadyInstalled bool
	MergeDriver      bool
}

// Install adds a post-checkout hook invoking opts.Command to the repository
// containing dir and registers the schema merge driver.
func Install(fs afero.Fs, dir string, opts InstallOptions) (InstallResult, error) {
	if opts.Command == "" {
		opts.Command = "hookup"
	}

	gitDir, repo, err := discover(dir)
	if err != nil {
		return InstallResult{}, err
	}

	hooksDir := filepath.Join(gitDir, "hooks")
	if err := fs.MkdirAll(hooksDir, 0o755); err != nil {
		return InstallResult{}, fmt.Errorf("creating hooks directory: %w", err)
	}

	result := InstallResult{HookPath: filepath.Join(hooksDir, "post-checkout")}
	result.AlreadyInstalled, err = appendHook(fs, result.HookPath, opts.Command)
	if err != nil {
		return result, err
	}

	if opts.SchemaPath != "" {
		opts.SchemaPath, err = topLevelPath(repo, dir, opts.SchemaPath)
		if err != nil {
			return result, err
		}
		if err := registerMergeDriver(fs, repo, gitDir, opts); err != nil {
			return result, err
		}
		result.MergeDriver = true
	}
	return result, nil
}

// discover finds the git directory of the repository containing dir.
func discover(dir string) (string, *gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	storage, ok := repo.Storer.(*filesystem.Storage)
	if !ok {
		return "", nil, fmt.Errorf("repository at %s is not stored on disk", dir)
	}
	return storage.Filesystem().Root(), repo, nil
}

// topLevelPath rewrites p, relative to dir, as a slash-separated path relative
// to the repository's top level, which is how git attributes name files.
func topLevelPath(repo *gogit.Repository, dir, p string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	root, err := resolvedAbs(wt.Filesystem.Root())
	if err != nil {
		return "", err
	}
	sub, err := resolvedAbs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, sub)
	if err != nil {
		return "", fmt.Errorf("locating %s in %s: %w", dir, root, err)
	}
	return filepath.ToSlash(filepath.Join(rel, p)), nil
}

func resolvedAbs(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func appendHook(fs afero.Fs, hookPath, command string) (bool, error) {
	existing, err := afero.ReadFile(fs, hookPath)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reading hook: %w", err)
	}
	if len(existing) == 0 {
		existing = []byte(hookShebang)
	}

	mentioned := regexp.MustCompile(`(?m)^[^#]*\b` + regexp.QuoteMeta(command) + `\b`)
	if mentioned.Match(existing) {
		return true, nil
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if !bytes.HasSuffix(existing, []byte("\n")) {
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "%s post-checkout \"$@\"\n", command)

	if err := afero.WriteFile(fs, hookPath, buf.Bytes(), 0o755); err != nil {
		return false, fmt.Errorf("writing hook: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := fs.Chmod(hookPath, 0o755); err != nil {
		return false, fmt.Errorf("making hook executable: %w", err)
	}
	return false, nil
}

func registerMergeDriver(fs afero.Fs, repo *gogit.Repository, gitDir string, opts InstallOptions) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("reading repository config: %w", err)
	}
	cfg.Raw.Section("merge").Subsection(MergeDriverName).
		SetOption("name", "Rails schema version resolver").
		SetOption("driver", opts.Command+" resolve-schema-conflict %A %O %B %L")
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("writing repository config: %w", err)
	}

	attrPath := filepath.Join(gitDir, "info", "attributes")
	line := opts.SchemaPath + " merge=" + MergeDriverName

	existing, err := afero.ReadFile(fs, attrPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading attributes: %w", err)
	}
	for _, l := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(l) == line {
			return nil
		}
	}

	if err := fs.MkdirAll(filepath.Dir(attrPath), 0o755); err != nil {
		return fmt.Errorf("creating info directory: %w", err)
	}
	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += line + "\n"
	if err := afero.WriteFile(fs, attrPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing attributes: %w", err)
	}
	return nil
}
