package ripper

import (
	"context"

	"s3ripper/pkg/catalog"
	"s3ripper/pkg/entitlement"
	"s3ripper/pkg/session"
)

// Authenticator turns a credential into a session
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*session.Session, error)
}

// PageWalker visits every page of a collection
type PageWalker interface {
	Walk(ctx context.Context, src catalog.TokenSource, collectionID string, limit int, fn catalog.PageFunc) error
}

// Claimer makes sure the session is entitled to an asset
type Claimer interface {
	Ensure(ctx context.Context, holder entitlement.Holder, assetID string) (bool, error)
}

// Saver downloads one payload into the output tree
type Saver interface {
	Save(ctx context.Context, assetURL, accessToken, destinationSubdir, explicitFilename string) (string, error)
}
