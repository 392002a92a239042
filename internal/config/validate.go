package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// PathKind says what is wrong with a watch path.
type PathKind int

const (
	// PathMissing means the path does not exist.
	PathMissing PathKind = iota + 1
	// PathNotDir means the path is not a directory.
	PathNotDir
	// PathDenied means the path is a protected system location.
	PathDenied
)

func (k PathKind) String() string {
	switch k {
	case PathMissing:
		return "does not exist"
	case PathNotDir:
		return "is not a directory"
	case PathDenied:
		return "is a protected system directory"
	default:
		return "is invalid"
	}
}

// PathError rejects a directory as a watch root.
type PathError struct {
	Path string
	Kind PathKind
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s", e.Path, e.Kind)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a setting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// deniedRoots are system directories that must never be mirrored. A path is
// denied when its first component is one of them (or it is the filesystem
// root), so /home/me/variables or /home/me/bin are fine.
var deniedRoots = map[string]bool{
	"etc":  true,
	"usr":  true,
	"bin":  true,
	"sbin": true,
	"var":  true,
	"dev":  true,
	"proc": true,
	"sys":  true,
	"boot": true,

	// Windows, matched case-insensitively after the volume name
	"windows":             true,
	"program files":       true,
	"program files (x86)": true,
	"system32":            true,
}

// ValidatePath checks that path can be watched and returns it absolute,
// with symlinks resolved.
func ValidatePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathError{Path: path, Kind: PathMissing, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &PathError{Path: abs, Kind: PathMissing, Err: err}
		}
		return "", &PathError{Path: abs, Kind: PathDenied, Err: err}
	}
	if !info.IsDir() {
		return "", &PathError{Path: abs, Kind: PathNotDir}
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	if isDenied(abs) {
		return "", &PathError{Path: abs, Kind: PathDenied}
	}
	return abs, nil
}

func isDenied(abs string) bool {
	rest := strings.TrimPrefix(abs, filepath.VolumeName(abs))
	rest = strings.Trim(filepath.ToSlash(rest), "/")
	if rest == "" {
		return true
	}

	first, _, _ := strings.Cut(rest, "/")
	return deniedRoots[strings.ToLower(first)]
}

// ValidateToken checks the shape of a GitHub personal access token.
func ValidateToken(token string) error {
	switch {
	case token == "":
		return &ValidationError{Field: "github_token", Reason: "is required"}
	case len(token) < 40:
		return &ValidationError{Field: "github_token", Reason: "is too short"}
	case !strings.HasPrefix(token, "ghp_") && !strings.HasPrefix(token, "github_pat_"):
		return &ValidationError{Field: "github_token", Reason: "must start with ghp_ or github_pat_"}
	}
	return nil
}

// ValidateIdentity checks the commit identity.
func ValidateIdentity(username, email string) error {
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "git_username", Reason: "is required"}
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return &ValidationError{Field: "git_email", Reason: "is not an email address"}
	}
	return nil
}

// Validate checks the settings needed to bootstrap and push. The token is
// not required when RemoteURL points somewhere that needs no token.
func (c *Config) Validate() error {
	if c.RemoteURL == "" {
		if err := ValidateToken(c.GitHubToken); err != nil {
			return err
		}
	}
	if err := ValidateIdentity(c.GitUsername, c.GitEmail); err != nil {
		return err
	}
	if c.Branch == "" {
		return &ValidationError{Field: "branch", Reason: "is required"}
	}
	if c.Debounce < 0 || c.SyncInterval < 0 {
		return &ValidationError{Field: "sync_interval", Reason: "must not be negative"}
	}
	return nil
}

// SanitizeRepoName turns a directory name into a repository name: letters
// and digits lowercased, '-' and '_' kept, anything else replaced by '-',
// and leading or trailing '-' trimmed.
func SanitizeRepoName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
