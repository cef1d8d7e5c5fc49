package substance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	errs "s3ripper/pkg/errors"
)

// Token runs one IMS token check with the given session id. The first
// handshake step passes an empty userID; the second passes the userId
// returned by the first. An answer without an access token is an auth
// error, as is any 4xx from IMS.
func (c *Client) Token(ctx context.Context, credential, userID string) (*AuthTicket, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("scope", c.scope)
	if userID != "" {
		form.Set("user_id", userID)
	}
	payload := form.Encode()

	resp, err := c.send(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.imsURL, strings.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: credential})
		return req, nil
	})
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeTransport || ctx.Err() != nil {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrorTypeAuth, err, "IMS token check rejected the session")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeTransport, err, "failed to read IMS response")
	}

	var ticket AuthTicket
	if err := json.Unmarshal(body, &ticket); err != nil {
		c.logger.ErrorWithFields("failed to parse IMS response", map[string]interface{}{
			"error":        err.Error(),
			"body_preview": bodyPreview(body),
		})
		return nil, errs.Wrap(errs.ErrorTypeAuth, err, "IMS returned an unreadable token response")
	}

	if ticket.AccessToken == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "IMS returned no access token; check the ims_sid value")
	}

	c.logger.DebugWithFields("IMS token issued", map[string]interface{}{
		"user_scoped":  userID != "",
		"account_type": ticket.AccountType,
	})

	return &ticket, nil
}
