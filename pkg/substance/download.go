package substance

import (
	"context"
	"net/http"
	"net/url"

	errs "s3ripper/pkg/errors"
)

// Download requests an attachment payload. The download service reads the
// access token from the accessToken query parameter, not from a header.
// The caller must close the response body.
func (c *Client) Download(ctx context.Context, assetURL, accessToken string) (*http.Response, error) {
	target, err := WithAccessToken(assetURL, accessToken)
	if err != nil {
		return nil, err
	}

	return c.send(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

// WithAccessToken returns assetURL with accessToken added to its query,
// keeping any parameters already present.
func WithAccessToken(assetURL, accessToken string) (string, error) {
	u, err := url.Parse(assetURL)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeInvalid, err, "invalid asset URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errs.Newf(errs.ErrorTypeInvalid, "asset URL %q is not absolute", logRedacted(u))
	}

	q := u.Query()
	q.Set(accessTokenParam, accessToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func logRedacted(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
