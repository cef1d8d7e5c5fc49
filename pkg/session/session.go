package session

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"s3ripper/pkg/entitlement"
	errs "s3ripper/pkg/errors"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/substance"
)

// Identity is the IMS and catalog surface the manager needs
type Identity interface {
	Token(ctx context.Context, credential, userID string) (*substance.AuthTicket, error)
	User(ctx context.Context, bearer string) (*substance.UserAccount, error)
}

// Session is the authenticated context handed to every catalog, claim and
// download call. It replaces any notion of a process-wide token.
type Session struct {
	Ticket    substance.AuthTicket
	Account   substance.UserAccount
	ExpiresAt time.Time

	entitlements *entitlement.Set
}

// AccessToken returns the user-scoped bearer token
func (s *Session) AccessToken() string {
	return s.Ticket.AccessToken
}

// Entitlements returns the live entitlement set
func (s *Session) Entitlements() *entitlement.Set {
	return s.entitlements
}

// Expired reports whether the token is past its known expiry. A session
// with unknown expiry never reports expired.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Manager performs the IMS handshake and seeds the entitlement set
type Manager struct {
	identity Identity
	logger   logger.Logger
	now      func() time.Time
}

// NewManager creates a session manager
func NewManager(identity Identity, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		identity: identity,
		logger:   log.WithField("component", "session"),
		now:      time.Now,
	}
}

// Authenticate exchanges an ims_sid for a user-scoped session. The first
// token check yields a provisional ticket whose userId is required for the
// second; the second ticket replaces the first. The entitlement set is then
// seeded from the user query. On any failure no session is returned.
func (m *Manager) Authenticate(ctx context.Context, credential string) (*Session, error) {
	if credential == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "no IMS session id provided")
	}

	provisional, err := m.identity.Token(ctx, credential, "")
	if err != nil {
		return nil, err
	}
	if provisional.AccessToken == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "failed to retrieve access token; check the IMS session id")
	}
	if provisional.UserID == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "IMS did not return a user id")
	}
	m.logger.Debug("Provisional ticket issued")

	ticket, err := m.identity.Token(ctx, credential, provisional.UserID)
	if err != nil {
		return nil, err
	}
	if ticket.AccessToken == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "failed to retrieve access token with user id; check the IMS session id")
	}

	account, err := m.identity.User(ctx, ticket.AccessToken)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Ticket:       *ticket,
		Account:      *account,
		ExpiresAt:    tokenExpiry(ticket, m.now()),
		entitlements: entitlement.NewSet(account.Assets),
	}

	fields := map[string]interface{}{
		"entitled": sess.entitlements.Len(),
		"points":   account.Points,
	}
	if !sess.ExpiresAt.IsZero() {
		fields["expires_at"] = sess.ExpiresAt
	}
	m.logger.InfoWithFields("Session established", fields)

	return sess, nil
}

// tokenExpiry reads the expiry from the access token's claims without
// verifying its signature, falling back to the expires_in field of the
// IMS response. IMS tokens carry created_at and expires_in in milliseconds
// instead of the registered exp claim.
func tokenExpiry(ticket *substance.AuthTicket, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(ticket.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
		created, okCreated := millisClaim(claims["created_at"])
		lifetime, okLifetime := millisClaim(claims["expires_in"])
		if okCreated && okLifetime {
			return time.UnixMilli(created + lifetime)
		}
	}

	if ticket.ExpiresIn > 0 {
		return now.Add(time.Duration(ticket.ExpiresIn) * time.Millisecond)
	}
	return time.Time{}
}

func millisClaim(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case string:
		ms, err := strconv.ParseInt(n, 10, 64)
		return ms, err == nil && ms > 0
	case float64:
		return int64(n), n > 0
	default:
		return 0, false
	}
}
