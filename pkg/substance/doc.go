// Package substance is the HTTP client for the Adobe services behind
// Substance 3D Assets.
//
// It covers three collaborators:
//   - Adobe IMS token check (Token), authenticated by the ims_sid cookie
//   - the Substance 3D GraphQL API (Collection, User, PurchaseAsset),
//     authenticated by a bearer token
//   - the asset download service (Download), authenticated by an
//     accessToken query parameter
//
// Every request carries browser-like User-Agent, Origin and Referer headers
// and goes through the transport retry policy in package retry. Errors are
// *errors.Error values: auth, not_found, purchase and parsing describe what
// the service said; transport means retries ran out.
//
// Example usage:
//
//	client := substance.NewClient(substance.OptionsFromConfig(cfg, log))
//	ticket, err := client.Token(ctx, sid, "")
//	page, err := client.Collection(ctx, ticket.AccessToken, "abc123", 0, 60)
//	for _, item := range page.Assets.Items {
//	    for _, d := range item.Downloads() {
//	        resp, err := client.Download(ctx, d.URL, ticket.AccessToken)
//	        ...
//	    }
//	}
package substance
