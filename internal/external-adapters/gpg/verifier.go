// Package gpg provides OpenPGP signature verification for signed git tags.
package gpg

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// armoredSignatureHeader prefixes ASCII-armored signatures
const armoredSignatureHeader = "-----BEGIN PGP SIGNATURE-----"

// Verifier checks detached OpenPGP signatures against an in-memory keyring
// built with ProtonMail's go-crypto
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a new GPG verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportArmoredKey adds the keys of an ASCII-armored public key block
func (v *Verifier) ImportArmoredKey(armored string) error {
	if strings.TrimSpace(armored) == "" {
		return fmt.Errorf("empty key block")
	}

	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	if len(entities) == 0 {
		return fmt.Errorf("no keys found in key block")
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifyDetached checks signature over payload and returns the signer's
// primary key fingerprint
func (v *Verifier) VerifyDetached(ctx context.Context, payload, signature []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("no GPG keys imported")
	}
	if len(signature) == 0 {
		return "", fmt.Errorf("empty signature")
	}

	var (
		signer *openpgp.Entity
		err    error
	)
	if bytes.HasPrefix(bytes.TrimSpace(signature), []byte(armoredSignatureHeader)) {
		signer, err = openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(payload), bytes.NewReader(signature), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(payload), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	return fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint), nil
}

// ClearKeyring drops every imported key
func (v *Verifier) ClearKeyring() {
	v.keyring = make(openpgp.EntityList, 0)
}
