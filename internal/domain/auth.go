package domain

import "time"

// TokenTTL is the fixed validity window of an issued token. Revocation
// entries are retained exactly as long.
const TokenTTL = 24 * time.Hour

// Subject is the capability set every actor kind offers to the auth
// pipeline: an identity to mint tokens for and a credential to check.
type Subject interface {
	SubjectID() string
	SubjectKind() ActorKind
	CredentialHash() string
}

var _ Subject = (*Actor)(nil)
