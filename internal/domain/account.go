package domain

import "time"

// Account is created the first time a user signs in through the identity
// provider and refreshed (token fields only) on every later sign-in.
type Account struct {
	ID           string    `bson:"_id" json:"id"`
	Subject      string    `bson:"subject" json:"subject"` // identity-provider subject, unique
	AccessToken  string    `bson:"accessToken,omitempty" json:"-"`
	RefreshToken string    `bson:"refreshToken,omitempty" json:"-"`
	IDToken      string    `bson:"idToken,omitempty" json:"-"`
	TokenType    string    `bson:"tokenType,omitempty" json:"-"`
	Scope        string    `bson:"scope,omitempty" json:"-"`
	SessionState string    `bson:"sessionState,omitempty" json:"-"`
	ExpiresAt    *int64    `bson:"expiresAt,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// FolderKey is the per-user storage folder, the provider subject when known.
func (a *Account) FolderKey() string {
	if a.Subject != "" {
		return a.Subject
	}
	return a.ID
}

// Principal is the authenticated caller. It is passed explicitly into every
// service call; nothing reads identity from ambient state.
type Principal struct {
	AccountID string
	FolderKey string
}

// IsZero reports a missing identity.
func (p Principal) IsZero() bool {
	return p.AccountID == ""
}

// Folder returns the storage folder for the caller.
func (p Principal) Folder() string {
	if p.FolderKey != "" {
		return p.FolderKey
	}
	return p.AccountID
}
