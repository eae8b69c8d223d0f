// SPDX-License-Identifier: MPL-2.0

package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// ShortHashLength is the length of Info.ShortHash.
const ShortHashLength = 8

var (
	// ErrNoRepository is returned when the source has no repository URL.
	ErrNoRepository = errors.New("no git repository configured")
	// ErrRefNotFound is returned when the remote has no matching branch.
	ErrRefNotFound = errors.New("branch not found on remote")
)

type (
	// Source identifies what to resolve.
	Source struct {
		RepoURL      string
		Branch       string
		Language     string
		ManifestFile string
	}

	// Info is the resolved metadata.
	Info struct {
		RepoURL        string
		Branch         string
		CommitHash     string
		ShortHash      string
		ProjectVersion string
	}

	// Resolver resolves Info for a Source.
	Resolver interface {
		Resolve(ctx context.Context, src Source) (*Info, error)
	}

	// RefLister returns the commit hash of branch on the remote at url. An
	// empty branch means the remote HEAD.
	RefLister func(ctx context.Context, url, branch string) (string, error)

	// FileFetcher returns the content of path at the tip of branch.
	FileFetcher func(ctx context.Context, url, branch, path string) ([]byte, error)

	// GitResolver implements Resolver with go-git.
	GitResolver struct {
		listRef   RefLister
		fetchFile FileFetcher
		logger    *slog.Logger
	}

	// Option configures a GitResolver.
	Option func(*GitResolver)
)

// WithRefLister replaces the remote ref lookup.
func WithRefLister(fn RefLister) Option {
	return func(r *GitResolver) { r.listRef = fn }
}

// WithFileFetcher replaces the manifest download.
func WithFileFetcher(fn FileFetcher) Option {
	return func(r *GitResolver) { r.fetchFile = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *GitResolver) { r.logger = logger }
}

// NewGitResolver creates a resolver that talks to remotes with go-git.
func NewGitResolver(opts ...Option) *GitResolver {
	r := &GitResolver{
		listRef:   listRemoteRef,
		fetchFile: fetchRemoteFile,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the commit metadata of src. A failure to determine the
// project version is logged and leaves ProjectVersion empty; only the
// commit lookup can fail.
func (r *GitResolver) Resolve(ctx context.Context, src Source) (*Info, error) {
	if src.RepoURL == "" {
		return nil, ErrNoRepository
	}

	hash, err := r.listRef(ctx, src.RepoURL, src.Branch)
	if err != nil {
		return nil, fmt.Errorf("resolve %s@%s: %w", src.RepoURL, src.Branch, err)
	}

	info := &Info{
		RepoURL:    src.RepoURL,
		Branch:     src.Branch,
		CommitHash: hash,
		ShortHash:  shortHash(hash),
	}

	if src.Language == "" || src.ManifestFile == "" {
		return info, nil
	}
	content, err := r.fetchFile(ctx, src.RepoURL, src.Branch, src.ManifestFile)
	if err != nil {
		r.logger.Warn("cannot fetch manifest file", "repo", src.RepoURL, "file", src.ManifestFile, "error", err)
		return info, nil
	}
	version, err := ParseVersion(src.Language, content)
	if err != nil {
		r.logger.Warn("cannot read project version", "file", src.ManifestFile, "error", err)
		return info, nil
	}
	info.ProjectVersion = version
	return info, nil
}

func shortHash(hash string) string {
	if len(hash) <= ShortHashLength {
		return hash
	}
	return hash[:ShortHashLength]
}

func newRemote(url string) *git.Remote {
	return git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
}

// listRemoteRef lists remote refs without cloning.
func listRemoteRef(ctx context.Context, url, branch string) (string, error) {
	refs, err := newRemote(url).ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list remote refs: %w", err)
	}
	return matchRef(refs, branch)
}

// matchRef picks the branch head. A HEAD symref is followed to its target.
func matchRef(refs []*plumbing.Reference, branch string) (string, error) {
	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	want := plumbing.HEAD
	if branch != "" {
		want = plumbing.NewBranchReferenceName(strings.TrimPrefix(branch, "refs/heads/"))
	}
	ref, ok := byName[want]
	if ok && ref.Type() == plumbing.SymbolicReference {
		ref, ok = byName[ref.Target()]
	}
	if !ok || ref.Hash().IsZero() {
		return "", fmt.Errorf("%w: %s", ErrRefNotFound, want.Short())
	}
	return ref.Hash().String(), nil
}

// fetchRemoteFile makes a depth-1, single-branch clone into memory and
// reads path from the tip commit.
func fetchRemoteFile(ctx context.Context, url, branch, path string) ([]byte, error) {
	opts := &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		NoCheckout:   true,
		Tags:         git.NoTags,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", url, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", head.Hash(), err)
	}
	file, err := commit.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", path, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return []byte(content), nil
}
