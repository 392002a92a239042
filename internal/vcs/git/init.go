package git

import "github.com/autogitsync/agsync/internal/vcs"

// init registers the git VCS implementation with the registry.
// This is called automatically when the package is imported:
//
//	import _ "github.com/autogitsync/agsync/internal/vcs/git"
func init() {
	vcs.Register(vcs.TypeGit, func(path string) (vcs.VCS, error) {
		return New(path)
	})
}
