package entitlement

import (
	"context"
	"sync"

	errs "s3ripper/pkg/errors"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/substance"
)

// Purchaser issues the claim mutation
type Purchaser interface {
	PurchaseAsset(ctx context.Context, bearer, assetID string) (*substance.UserAccount, error)
}

// Holder is an authenticated session as seen by the gate
type Holder interface {
	AccessToken() string
	Entitlements() *Set
}

// Gate makes sure an asset is entitled before it is downloaded
type Gate struct {
	purchaser Purchaser
	logger    logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGate creates a gate that claims through purchaser
func NewGate(purchaser Purchaser, log logger.Logger) *Gate {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Gate{
		purchaser: purchaser,
		logger:    log.WithField("component", "entitlement"),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Ensure returns nil once assetID is in the holder's entitlement set. If it
// is already there no request is made. Otherwise the asset is claimed and
// the set is replaced with the list the server returned. Reports whether a
// claim succeeded; every error path reports false.
func (g *Gate) Ensure(ctx context.Context, holder Holder, assetID string) (bool, error) {
	set := holder.Entitlements()
	if set.Contains(assetID) {
		return false, nil
	}

	lock := g.lockFor(assetID)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have claimed it while we waited
	if set.Contains(assetID) {
		return false, nil
	}

	log := g.logger.WithField("asset_id", assetID)
	log.Info("Claiming asset")

	account, err := g.purchaser.PurchaseAsset(ctx, holder.AccessToken(), assetID)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if errs.TypeOf(err) != errs.ErrorTypePurchase {
			err = errs.Wrap(errs.ErrorTypePurchase, err, "claim request failed")
		}
		log.WithError(err).Warn("Claim failed")
		return false, err
	}

	set.replace(account.Assets)

	if !set.Contains(assetID) {
		return false, errs.Newf(errs.ErrorTypePurchase,
			"claim of asset %s succeeded but the account does not list it", assetID)
	}

	log.InfoWithFields("Asset claimed", map[string]interface{}{
		"entitled": set.Len(),
		"points":   account.Points,
	})
	return true, nil
}

func (g *Gate) lockFor(assetID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[assetID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[assetID] = l
	}
	return l
}
