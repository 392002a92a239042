package git

import (
	"context"
	"fmt"

	"github.com/autogitsync/agsync/internal/vcs"
)

// GetRemoteURL returns the configured URL of the named remote
func (g *Git) GetRemoteURL(ctx context.Context, name string) (string, error) {
	output, err := g.run(ctx, "remote", "get-url", name)
	if err != nil {
		return "", fmt.Errorf("failed to get url of remote %s: %w", name, err)
	}
	return vcs.TrimOutput(output), nil
}

// AddRemote adds a new remote
func (g *Git) AddRemote(ctx context.Context, name, url string) error {
	if _, err := g.run(ctx, "remote", "add", name, url); err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}
	return nil
}

// SetRemoteURL changes the URL of an existing remote
func (g *Git) SetRemoteURL(ctx context.Context, name, url string) error {
	if _, err := g.run(ctx, "remote", "set-url", name, url); err != nil {
		return fmt.Errorf("failed to set url of remote %s: %w", name, err)
	}
	return nil
}

// RemoveRemote removes a remote
func (g *Git) RemoveRemote(ctx context.Context, name string) error {
	if _, err := g.run(ctx, "remote", "remove", name); err != nil {
		return fmt.Errorf("failed to remove remote %s: %w", name, err)
	}
	return nil
}

// Push pushes a branch to the remote
func (g *Git) Push(ctx context.Context, opts vcs.PushOptions) error {
	remote := opts.Remote
	if remote == "" {
		remote = vcs.DefaultRemote
	}

	if opts.Ref == "" {
		return vcs.ErrDetached
	}

	args := []string{"push"}

	if opts.Force {
		args = append(args, "--force")
	}

	// Push the local branch to the same name on the remote
	args = append(args, remote, fmt.Sprintf("refs/heads/%s:refs/heads/%s", opts.Ref, opts.Ref))

	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", opts.Ref, remote, err)
	}

	return nil
}
