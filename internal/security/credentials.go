// path: internal/security/credentials.go
package security

import (
	"context"
	"fmt"

	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// CredentialResolver decrypts stored credential rows into the value
// bundles adapters consume, and encrypts new values before they reach
// the store. It is the only place in the codebase that holds plaintext
// credential values outside of an adapter call.
type CredentialResolver struct {
	store  store.Store
	cipher *CredentialCipher
}

func NewCredentialResolver(s store.Store, cipher *CredentialCipher) *CredentialResolver {
	return &CredentialResolver{store: s, cipher: cipher}
}

func (r *CredentialResolver) Resolve(ctx context.Context, p store.Platform, accountRef string) (platform.Credential, error) {
	row, err := r.store.GetCredential(ctx, p, accountRef)
	if err != nil {
		return platform.Credential{}, err
	}

	values, err := r.cipher.Open(row.EncryptedBlob)
	if err != nil {
		return platform.Credential{}, fmt.Errorf("security: decrypt credential: %w", err)
	}

	return platform.Credential{AccountRef: row.AccountRef, Values: values}, nil
}

func (r *CredentialResolver) Store(ctx context.Context, p store.Platform, cred platform.Credential) error {
	blob, err := r.cipher.Seal(cred.Values)
	if err != nil {
		return fmt.Errorf("security: encrypt credential: %w", err)
	}

	return r.store.PutCredential(ctx, &store.PlatformCredential{
		Platform:      p,
		AccountRef:    cred.AccountRef,
		EncryptedBlob: blob,
	})
}
