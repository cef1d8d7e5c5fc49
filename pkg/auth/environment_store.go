package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvSessionID = "S3RIPPER_IMS_SID"
	EnvUserAgent = "S3RIPPER_USER_AGENT"
)

// EnvironmentStore exposes S3RIPPER_IMS_SID as a read-only account
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account under any name
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	sessionID := os.Getenv(EnvSessionID)
	if sessionID == "" {
		return nil, ErrCredentialsNotFound
	}

	if name == "" {
		name = "environment"
	}

	return &Account{
		Name:         name,
		SessionID:    sessionID,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the environment variable is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists reports whether S3RIPPER_IMS_SID is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvSessionID) != ""
}
