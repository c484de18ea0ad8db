package gateways

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ochairo/keg/internal/domain/entities"
	"github.com/ochairo/keg/internal/external-adapters/gpg"
)

var testSignature = &object.Signature{
	Name:  "keg test",
	Email: "test@example.com",
	When:  time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC),
}

// seedCheckout creates a repository at the formula's checkout location with
// one commit tagged v1.18.0 and returns the commit hash
func seedCheckout(t *testing.T, cacheDir string, tagOpts *gogit.CreateTagOptions) (*gogit.Repository, plumbing.Hash) {
	t.Helper()

	dir := CheckoutDir(cacheDir, "apiserver-boot")
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "WORKSPACE"), []byte("workspace(name = \"apiserver_builder\")\n"), 0600); err != nil {
		t.Fatal(err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Add("WORKSPACE"); err != nil {
		t.Fatal(err)
	}
	hash, err := worktree.Commit("initial", &gogit.CommitOptions{Author: testSignature})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if _, err := repo.CreateTag("v1.18.0", hash, tagOpts); err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	return repo, hash
}

func testFormula(revision string) *entities.Formula {
	return &entities.Formula{
		Name: "apiserver-boot",
		Source: entities.FormulaSource{
			URL:      "/nonexistent/apiserver-builder-alpha.git",
			Using:    "git",
			Tag:      "v1.18.0",
			Revision: revision,
		},
	}
}

func newSigningKey(t *testing.T) (*openpgp.Entity, string) {
	t.Helper()

	entity, err := openpgp.NewEntity("keg test", "", "test@example.com", nil)
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return entity, buf.String()
}

func TestSourceFetcher_ReusesCheckoutAtPinnedRevision(t *testing.T) {
	cacheDir := t.TempDir()
	_, hash := seedCheckout(t, cacheDir, nil)

	fetcher := NewSourceFetcher(cacheDir, nil, nil, nil)
	checkout, err := fetcher.Fetch(context.Background(), testFormula(hash.String()))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !checkout.Reused {
		t.Error("expected the existing checkout to be reused")
	}
	if checkout.Revision != hash.String() {
		t.Errorf("Revision = %s, want %s", checkout.Revision, hash)
	}
	if checkout.Dir != CheckoutDir(cacheDir, "apiserver-boot") {
		t.Errorf("Dir = %s", checkout.Dir)
	}
	if checkout.Signer != "" {
		t.Errorf("Signer = %q, want empty for unsigned formula", checkout.Signer)
	}
}

func TestSourceFetcher_AnnotatedTagPeelsToCommit(t *testing.T) {
	cacheDir := t.TempDir()
	_, hash := seedCheckout(t, cacheDir, &gogit.CreateTagOptions{
		Tagger:  testSignature,
		Message: "v1.18.0",
	})

	checkout, err := NewSourceFetcher(cacheDir, nil, nil, nil).Fetch(context.Background(), testFormula(hash.String()))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if checkout.Revision != hash.String() {
		t.Errorf("Revision = %s, want commit %s", checkout.Revision, hash)
	}
}

func TestSourceFetcher_RevisionMismatch(t *testing.T) {
	cacheDir := t.TempDir()
	seedCheckout(t, cacheDir, nil)

	_, err := NewSourceFetcher(cacheDir, nil, nil, nil).Fetch(context.Background(),
		testFormula("95dca1d34e91d6e76c50fa4f272a77f573fd7558"))
	if !errors.Is(err, entities.ErrRevisionMismatch) {
		t.Errorf("Fetch() error = %v, want ErrRevisionMismatch", err)
	}
}

func TestSourceFetcher_RefetchesMovedTag(t *testing.T) {
	// upstream moved v1.18.0 to a new commit after the cache was populated
	originRoot := t.TempDir()
	origin, _ := seedCheckout(t, originRoot, nil)
	originDir := CheckoutDir(originRoot, "apiserver-boot")
	if err := os.WriteFile(filepath.Join(originDir, "BUILD.bazel"), []byte("# release\n"), 0600); err != nil {
		t.Fatal(err)
	}
	worktree, err := origin.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Add("BUILD.bazel"); err != nil {
		t.Fatal(err)
	}
	moved, err := worktree.Commit("release", &gogit.CommitOptions{Author: testSignature})
	if err != nil {
		t.Fatal(err)
	}
	if err := origin.DeleteTag("v1.18.0"); err != nil {
		t.Fatal(err)
	}
	if _, err := origin.CreateTag("v1.18.0", moved, nil); err != nil {
		t.Fatal(err)
	}

	cacheDir := t.TempDir()
	cached, stale := seedCheckout(t, cacheDir, nil)
	if stale == moved {
		t.Fatal("cached and upstream tags should differ")
	}
	if _, err := cached.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{originDir}}); err != nil {
		t.Fatal(err)
	}

	checkout, err := NewSourceFetcher(cacheDir, nil, nil, nil).Fetch(context.Background(), testFormula(moved.String()))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !checkout.Reused {
		t.Error("expected the existing checkout to be reused")
	}
	if checkout.Revision != moved.String() {
		t.Errorf("Revision = %s, want refetched %s", checkout.Revision, moved)
	}
	if _, err := os.Stat(filepath.Join(checkout.Dir, "BUILD.bazel")); err != nil {
		t.Errorf("worktree not at the refetched revision: %v", err)
	}
}

func TestSourceFetcher_SignedTag(t *testing.T) {
	entity, pub := newSigningKey(t)
	cacheDir := t.TempDir()
	_, hash := seedCheckout(t, cacheDir, &gogit.CreateTagOptions{
		Tagger:  testSignature,
		Message: "v1.18.0",
		SignKey: entity,
	})

	f := testFormula(hash.String())
	f.Source.SigningKey = pub

	checkout, err := NewSourceFetcher(cacheDir, gpg.NewVerifier(), nil, nil).Fetch(context.Background(), f)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if checkout.Signer == "" {
		t.Error("expected signer fingerprint")
	}
}

func TestSourceFetcher_SignedTagWrongKey(t *testing.T) {
	entity, _ := newSigningKey(t)
	_, otherPub := newSigningKey(t)
	cacheDir := t.TempDir()
	_, hash := seedCheckout(t, cacheDir, &gogit.CreateTagOptions{
		Tagger:  testSignature,
		Message: "v1.18.0",
		SignKey: entity,
	})

	f := testFormula(hash.String())
	f.Source.SigningKey = otherPub

	if _, err := NewSourceFetcher(cacheDir, gpg.NewVerifier(), nil, nil).Fetch(context.Background(), f); err == nil {
		t.Error("Fetch() should fail when the tag is signed by another key")
	}
}

func TestSourceFetcher_SigningKeyOnLightweightTag(t *testing.T) {
	_, pub := newSigningKey(t)
	cacheDir := t.TempDir()
	_, hash := seedCheckout(t, cacheDir, nil)

	f := testFormula(hash.String())
	f.Source.SigningKey = pub

	_, err := NewSourceFetcher(cacheDir, gpg.NewVerifier(), nil, nil).Fetch(context.Background(), f)
	if err == nil || !strings.Contains(err.Error(), "not annotated") {
		t.Errorf("Fetch() error = %v, want not annotated error", err)
	}
}

func TestSourceFetcher_CloneFailure(t *testing.T) {
	cacheDir := t.TempDir()

	_, err := NewSourceFetcher(cacheDir, nil, nil, nil).Fetch(context.Background(), testFormula(""))
	if err == nil || !strings.Contains(err.Error(), "clone") {
		t.Errorf("Fetch() error = %v, want clone error", err)
	}
}

func TestSourceFetcher_MissingTag(t *testing.T) {
	f := testFormula("")
	f.Source.Tag = ""

	if _, err := NewSourceFetcher(t.TempDir(), nil, nil, nil).Fetch(context.Background(), f); err == nil {
		t.Error("Fetch() should fail without a tag")
	}
}

func TestSourceFetcher_SigningKeyNotCarriedAcrossFormulas(t *testing.T) {
	entity, pub := newSigningKey(t)
	_, otherPub := newSigningKey(t)
	verifier := gpg.NewVerifier()
	opts := &gogit.CreateTagOptions{Tagger: testSignature, Message: "v1.18.0", SignKey: entity}

	firstCache := t.TempDir()
	_, hash := seedCheckout(t, firstCache, opts)
	f := testFormula(hash.String())
	f.Source.SigningKey = pub
	if _, err := NewSourceFetcher(firstCache, verifier, nil, nil).Fetch(context.Background(), f); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	// Same signer, but this formula trusts a different key
	secondCache := t.TempDir()
	_, hash = seedCheckout(t, secondCache, opts)
	f = testFormula(hash.String())
	f.Source.SigningKey = otherPub
	if _, err := NewSourceFetcher(secondCache, verifier, nil, nil).Fetch(context.Background(), f); err == nil {
		t.Error("Fetch() should not accept a key imported for another formula")
	}
}
