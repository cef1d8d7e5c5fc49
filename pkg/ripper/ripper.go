package ripper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"s3ripper/internal/downloader"
	"s3ripper/pkg/catalog"
	"s3ripper/pkg/config"
	"s3ripper/pkg/entitlement"
	errs "s3ripper/pkg/errors"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/pacer"
	"s3ripper/pkg/session"
	"s3ripper/pkg/storage"
	"s3ripper/pkg/substance"
)

// Options control a run
type Options struct {
	CollectionIDs     []string
	PageLimit         int
	MinDelay          int
	MaxDelay          int
	OnPurchaseFailure string
	FreeOnly          bool
}

// OptionsFromConfig reads run options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CollectionIDs:     cfg.Collections.IDs,
		PageLimit:         cfg.Collections.PageLimit,
		MinDelay:          cfg.Pacing.MinDelay,
		MaxDelay:          cfg.Pacing.MaxDelay,
		OnPurchaseFailure: cfg.Claim.OnFailure,
		FreeOnly:          cfg.Claim.FreeOnly,
	}
}

// Deps are the components a Ripper drives
type Deps struct {
	Sessions   Authenticator
	Catalog    PageWalker
	Gate       Claimer
	Downloader Saver
	Pacer      pacer.Pacer
}

// Result summarizes a run
type Result struct {
	RunID       string
	Account     string
	Collections int
	Pages       int
	Items       int
	Files       int
	Claims      int
	Skipped     int
	// NotFound lists collection ids the catalog does not know
	NotFound []string
	// Incomplete lists collections that vanished after their first page
	Incomplete []string
	Paths      []string
	Duration   time.Duration
}

// Ripper orchestrates authentication, catalog walking, claiming and downloading
type Ripper struct {
	deps   Deps
	opts   Options
	logger logger.Logger
	now    func() time.Time
}

// New creates a Ripper from explicit components
func New(deps Deps, opts Options, log logger.Logger) *Ripper {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = substance.DefaultPageLimit
	}
	if opts.OnPurchaseFailure == "" {
		opts.OnPurchaseFailure = config.OnFailureAbort
	}
	if deps.Pacer == nil {
		deps.Pacer = pacer.Nop{}
	}
	return &Ripper{deps: deps, opts: opts, logger: log, now: time.Now}
}

// NewFromConfig wires the production components from configuration
func NewFromConfig(cfg *config.Config, log logger.Logger) (*Ripper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, err
	}
	log.WithField("output_dir", store.GetOutputDir()).Debug("Output directory ready")

	client := substance.NewClient(substance.OptionsFromConfig(cfg, log))

	return New(Deps{
		Sessions:   session.NewManager(client, log),
		Catalog:    catalog.NewClient(client, log),
		Gate:       entitlement.NewGate(client, log),
		Downloader: downloader.New(client, store, log),
		Pacer:      pacer.NewJittered(),
	}, OptionsFromConfig(cfg), log), nil
}

// Run authenticates with credential and rips every configured collection.
// The returned Result is populated even when Run fails part way.
func (r *Ripper) Run(ctx context.Context, credential string) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := r.logger.WithField("run_id", res.RunID)
	defer func() { res.Duration = time.Since(start) }()

	if len(r.opts.CollectionIDs) == 0 {
		return res, errs.New(errs.ErrorTypeInvalid, "no collection ids to rip")
	}

	sess, err := r.deps.Sessions.Authenticate(ctx, credential)
	if err != nil {
		return res, err
	}
	res.Account = accountLabel(sess)
	log.InfoWithFields("Logged in", map[string]interface{}{
		"account":  res.Account,
		"entitled": sess.Entitlements().Len(),
	})

	for _, id := range r.opts.CollectionIDs {
		colLog := log.WithField("collection_id", id)
		started, err := r.ripCollection(ctx, colLog, sess, id, res)
		if err != nil && errs.TypeOf(err) == errs.ErrorTypeNotFound {
			if started {
				colLog.WithError(err).Warn("Collection vanished part way; skipping the rest")
				res.Incomplete = append(res.Incomplete, id)
			} else {
				colLog.WithError(err).Warn("Collection not found; skipping")
				res.NotFound = append(res.NotFound, id)
			}
			continue
		}
		if err != nil {
			return res, err
		}
	}

	log.InfoWithFields("Run complete", map[string]interface{}{
		"collections": res.Collections,
		"pages":       res.Pages,
		"files":       res.Files,
		"claims":      res.Claims,
		"skipped":     res.Skipped,
		"not_found":   len(res.NotFound),
		"incomplete":  len(res.Incomplete),
	})
	return res, nil
}

// ripCollection walks one collection. started reports whether any page was
// delivered. Errors from processing items are returned as fatal even when
// their chain mentions not_found, so only a failed page fetch can isolate
// the collection.
func (r *Ripper) ripCollection(ctx context.Context, log logger.Logger, sess *session.Session, collectionID string, res *Result) (started bool, err error) {
	if err := r.checkSession(sess); err != nil {
		return false, err
	}

	var itemErr error
	err = r.deps.Catalog.Walk(ctx, sess, collectionID, r.opts.PageLimit, func(page int, col *substance.Collection) error {
		started = true
		if err := r.checkSession(sess); err != nil {
			itemErr = err
			return err
		}
		if page == 0 {
			res.Collections++
			log.InfoWithFields("Ripping collection", map[string]interface{}{
				"title": col.Title,
				"total": col.Assets.Total,
			})
		}
		res.Pages++

		for _, item := range col.Assets.Items {
			if err := r.ripItem(ctx, log, sess, col, item, res); err != nil {
				itemErr = err
				return err
			}
		}
		return nil
	})
	if itemErr != nil {
		return started, itemErr
	}
	return started, err
}

// checkSession fails with an auth error once the access token has expired,
// before any more catalog, claim or download calls are made with it.
func (r *Ripper) checkSession(sess *session.Session) error {
	if sess.Expired(r.now()) {
		return errs.Newf(errs.ErrorTypeAuth, "access token expired at %s; log in again",
			sess.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func (r *Ripper) ripItem(ctx context.Context, log logger.Logger, sess *session.Session, col *substance.Collection, item substance.AssetItem, res *Result) error {
	log = log.WithField("asset_id", item.ID)
	res.Items++

	downloads := item.Downloads()
	if len(downloads) == 0 {
		log.Debug("No downloadable attachments")
		return nil
	}

	if r.opts.FreeOnly && !item.Free && !sess.Entitlements().Contains(item.ID) {
		log.InfoWithFields("Skipping paid asset", map[string]interface{}{"cost": item.Cost})
		res.Skipped++
		return nil
	}

	claimed, err := r.deps.Gate.Ensure(ctx, sess, item.ID)
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypePurchase && r.opts.OnPurchaseFailure == config.OnFailureSkip {
			log.WithError(err).Warn("Claim failed; skipping asset")
			res.Skipped++
			return nil
		}
		return err
	}
	if claimed {
		res.Claims++
	}

	subdir := storage.JoinSegments(col.Title, item.Title)
	for _, dl := range downloads {
		if dl.URL == "" {
			log.WithField("attachment_id", dl.ID).Warn("Download attachment has no URL")
			continue
		}

		path, err := r.deps.Downloader.Save(ctx, dl.URL, sess.AccessToken(), subdir, "")
		logger.LogDownload(log, item.ID, path, err)
		if err != nil {
			return err
		}
		res.Files++
		res.Paths = append(res.Paths, path)

		seconds, err := r.deps.Pacer.Wait(ctx, r.opts.MinDelay, r.opts.MaxDelay)
		if err != nil {
			return err
		}
		log.DebugWithFields("Paused", map[string]interface{}{"seconds": seconds})
	}
	return nil
}

// accountLabel renders the account as "displayName (email)"
func accountLabel(sess *session.Session) string {
	name := sess.Ticket.DisplayName
	if name == "" {
		name = sess.Account.Name
	}
	email := sess.Ticket.Email
	if email == "" {
		email = sess.Account.Email
	}
	switch {
	case name != "" && email != "":
		return name + " (" + email + ")"
	case name != "":
		return name
	default:
		return email
	}
}
