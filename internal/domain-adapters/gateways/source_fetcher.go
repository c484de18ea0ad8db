package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ochairo/keg/internal/domain/entities"
	"github.com/ochairo/keg/internal/domain/interfaces"
	domaingateways "github.com/ochairo/keg/internal/domain/interfaces/gateways"
)

// SourceFetcher checks out a formula's tagged source with go-git
type SourceFetcher struct {
	cacheDir string
	verifier domaingateways.SignatureVerifier
	progress io.Writer
	logger   interfaces.Logger
}

// NewSourceFetcher creates a fetcher that keeps checkouts below cacheDir.
// verifier may be nil when no formula declares a signing key.
func NewSourceFetcher(cacheDir string, verifier domaingateways.SignatureVerifier, progress io.Writer, logger interfaces.Logger) *SourceFetcher {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &SourceFetcher{
		cacheDir: cacheDir,
		verifier: verifier,
		progress: progress,
		logger:   logger,
	}
}

// CheckoutDir returns the cache location of a formula's checkout
func CheckoutDir(cacheDir, name string) string {
	return filepath.Join(cacheDir, name+"--git")
}

// Fetch clones the formula's tag, or reuses an existing checkout, and leaves
// the worktree at the pinned revision
func (s *SourceFetcher) Fetch(ctx context.Context, f *entities.Formula) (*entities.SourceCheckout, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	if f.Source.Tag == "" {
		return nil, fmt.Errorf("formula %s has no source tag", f.Name)
	}

	dir := CheckoutDir(s.cacheDir, f.Name)
	checkout := &entities.SourceCheckout{Dir: dir, Tag: f.Source.Tag}

	repo, err := gogit.PlainOpen(dir)
	switch {
	case err == nil:
		checkout.Reused = true
		if _, err := repo.Tag(f.Source.Tag); err != nil {
			if err := s.fetchTag(ctx, repo, f.Source.Tag); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, gogit.ErrRepositoryNotExists):
		s.logger.Info("cloning source",
			interfaces.F("url", f.Source.URL),
			interfaces.F("tag", f.Source.Tag))
		repo, err = gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
			URL:           f.Source.URL,
			ReferenceName: plumbing.NewTagReferenceName(f.Source.Tag),
			SingleBranch:  true,
			Depth:         1,
			Progress:      s.progress,
		})
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", f.Source.URL, err)
		}
	default:
		return nil, fmt.Errorf("open checkout %s: %w", dir, err)
	}

	commit, tagObj, err := resolveTag(repo, f.Source.Tag)
	if err != nil {
		return nil, err
	}
	if checkout.Reused && !pinned(f, commit) {
		// The cached tag may be stale; take the remote's before giving up
		s.logger.Info("cached tag does not match the pin, refetching",
			interfaces.F("tag", f.Source.Tag),
			interfaces.F("revision", commit.String()))
		if err := s.fetchTag(ctx, repo, f.Source.Tag); err != nil {
			s.logger.Warn("refetch failed", interfaces.F("tag", f.Source.Tag), interfaces.F("error", err))
		} else if commit, tagObj, err = resolveTag(repo, f.Source.Tag); err != nil {
			return nil, err
		}
	}
	if !pinned(f, commit) {
		return nil, fmt.Errorf("%w: %s is %s, want %s",
			entities.ErrRevisionMismatch, f.Source.Tag, commit, f.Source.Revision)
	}
	checkout.Revision = commit.String()

	if f.Source.SigningKey != "" {
		signer, err := s.verifyTag(ctx, f, tagObj)
		if err != nil {
			return nil, err
		}
		checkout.Signer = signer
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}
	if err := worktree.Checkout(&gogit.CheckoutOptions{Hash: commit, Force: true}); err != nil {
		return nil, fmt.Errorf("checkout %s: %w", commit, err)
	}

	s.logger.Debug("source ready",
		interfaces.F("dir", dir),
		interfaces.F("revision", checkout.Revision),
		interfaces.F("reused", checkout.Reused))
	return checkout, nil
}

// fetchTag fetches tag from origin, replacing a local tag of the same name
func (s *SourceFetcher) fetchTag(ctx context.Context, repo *gogit.Repository, tag string) error {
	refSpec := config.RefSpec(fmt.Sprintf("+refs/tags/%[1]s:refs/tags/%[1]s", tag))
	err := repo.FetchContext(ctx, &gogit.FetchOptions{
		RefSpecs: []config.RefSpec{refSpec},
		Depth:    1,
		Force:    true,
		Progress: s.progress,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch tag %s: %w", tag, err)
	}
	return nil
}

func pinned(f *entities.Formula, commit plumbing.Hash) bool {
	return f.Source.Revision == "" || commit.String() == f.Source.Revision
}

// resolveTag returns the commit a tag points at, peeling annotated tags.
// The tag object is nil for lightweight tags.
func resolveTag(repo *gogit.Repository, tag string) (plumbing.Hash, *object.Tag, error) {
	ref, err := repo.Tag(tag)
	if err != nil {
		return plumbing.ZeroHash, nil, fmt.Errorf("resolve tag %s: %w", tag, err)
	}

	tagObj, err := repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		commit, err := tagObj.Commit()
		if err != nil {
			return plumbing.ZeroHash, nil, fmt.Errorf("peel tag %s: %w", tag, err)
		}
		return commit.Hash, tagObj, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return ref.Hash(), nil, nil
	default:
		return plumbing.ZeroHash, nil, fmt.Errorf("read tag %s: %w", tag, err)
	}
}

func (s *SourceFetcher) verifyTag(ctx context.Context, f *entities.Formula, tagObj *object.Tag) (string, error) {
	if s.verifier == nil {
		return "", fmt.Errorf("formula %s declares a signing key but no verifier is configured", f.Name)
	}
	if tagObj == nil {
		return "", fmt.Errorf("tag %s is not annotated and cannot carry a signature", f.Source.Tag)
	}
	if tagObj.PGPSignature == "" {
		return "", fmt.Errorf("tag %s is not signed", f.Source.Tag)
	}

	// Only the formula's own key may vouch for its tag
	s.verifier.ClearKeyring()
	if err := s.verifier.ImportArmoredKey(f.Source.SigningKey); err != nil {
		return "", fmt.Errorf("import signing key: %w", err)
	}

	encoded := &plumbing.MemoryObject{}
	if err := tagObj.EncodeWithoutSignature(encoded); err != nil {
		return "", fmt.Errorf("encode tag %s: %w", f.Source.Tag, err)
	}
	reader, err := encoded.Reader()
	if err != nil {
		return "", fmt.Errorf("read tag %s: %w", f.Source.Tag, err)
	}
	//nolint:errcheck // Defer close on in-memory reader
	defer reader.Close()
	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read tag %s: %w", f.Source.Tag, err)
	}

	signer, err := s.verifier.VerifyDetached(ctx, payload, []byte(tagObj.PGPSignature))
	if err != nil {
		return "", fmt.Errorf("tag %s: %w", f.Source.Tag, err)
	}
	s.logger.Info("tag signature verified",
		interfaces.F("tag", f.Source.Tag),
		interfaces.F("signer", signer))
	return signer, nil
}
