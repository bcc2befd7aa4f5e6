// path: internal/store/errors.go
package store

import "errors"

var (
	ErrNotFound          = errors.New("store: record not found")
	ErrCredentialMissing = errors.New("store: no credential configured for platform/account")
	ErrNoOp              = errors.New("store: update affected zero rows")
	ErrNotEditable       = errors.New("store: post is no longer editable")
	ErrMediaInUse        = errors.New("store: media asset is linked to a scheduled or publishing post")
)

// DefaultAccountRef is used for platforms configured with a single
// account, which covers every platform in scope today: one credential
// row per platform rather than a full multi-tenant account model.
const DefaultAccountRef = "default"
