package substance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AuthTicket is one IMS token check response. Only the fields used by the
// ripper are decoded; the rest of the payload is ignored.
type AuthTicket struct {
	UserID      string `json:"userId"`
	AuthID      string `json:"authId"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   Millis `json:"expires_in"`
	AccountType string `json:"account_type"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CountryCode string `json:"countryCode"`
}

// Millis is a millisecond count that IMS sends either as a JSON string or
// as a number.
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*m = 0
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid millisecond value %s: %w", data, err)
	}
	*m = Millis(n)
	return nil
}

// Collection is one page of a collection as returned by the catalog
type Collection struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	ImageURL string    `json:"imageUrl"`
	Assets   AssetPage `json:"assets"`
}

// AssetPage holds the items of one page plus pagination state
type AssetPage struct {
	Total   int         `json:"total"`
	HasMore bool        `json:"hasMore"`
	Items   []AssetItem `json:"items"`
}

// AssetItem is a catalog asset
type AssetItem struct {
	ID                       string      `json:"id"`
	Title                    string      `json:"title"`
	Tags                     []string    `json:"tags"`
	Status                   string      `json:"status"`
	Categories               []string    `json:"categories"`
	Cost                     int         `json:"cost"`
	New                      bool        `json:"new"`
	Free                     bool        `json:"free"`
	Licenses                 []string    `json:"licenses"`
	DownloadsRecentlyUpdated bool        `json:"downloadsRecentlyUpdated"`
	Thumbnail                *Thumbnail  `json:"thumbnail"`
	CreatedAt                string      `json:"createdAt"`
	Attachments              Attachments `json:"attachments"`
}

// Thumbnail is the preview image of an asset
type Thumbnail struct {
	ID   string   `json:"id"`
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

// Downloads returns the attachments of the item that carry a payload
func (a AssetItem) Downloads() []DownloadAttachment {
	var out []DownloadAttachment
	for _, att := range a.Attachments {
		if d, ok := att.(DownloadAttachment); ok {
			out = append(out, d)
		}
	}
	return out
}

// Attachment is one of PreviewAttachment, DownloadAttachment or
// IgnoredAttachment.
type Attachment interface {
	Common() AttachmentInfo
	attachment()
}

// AttachmentInfo holds the fields every attachment variant shares
type AttachmentInfo struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Tags  []string `json:"tags"`
}

// PreviewAttachment is a rendered preview; never downloaded
type PreviewAttachment struct {
	AttachmentInfo
	Kind string
	URL  string
}

// DownloadAttachment points at a downloadable payload
type DownloadAttachment struct {
	AttachmentInfo
	URL string
}

// IgnoredAttachment is any attachment type the ripper does not know
type IgnoredAttachment struct {
	AttachmentInfo
	Typename string
}

func (a PreviewAttachment) Common() AttachmentInfo  { return a.AttachmentInfo }
func (a DownloadAttachment) Common() AttachmentInfo { return a.AttachmentInfo }
func (a IgnoredAttachment) Common() AttachmentInfo  { return a.AttachmentInfo }

func (PreviewAttachment) attachment()  {}
func (DownloadAttachment) attachment() {}
func (IgnoredAttachment) attachment()  {}

// Attachments decodes a heterogeneous attachment list by __typename
type Attachments []Attachment

type rawAttachment struct {
	AttachmentInfo
	Kind     string `json:"kind"`
	URL      string `json:"url"`
	Typename string `json:"__typename"`
}

func (as *Attachments) UnmarshalJSON(data []byte) error {
	var raws []rawAttachment
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(Attachments, 0, len(raws))
	for _, r := range raws {
		switch r.Typename {
		case "DownloadAttachment":
			out = append(out, DownloadAttachment{AttachmentInfo: r.AttachmentInfo, URL: r.URL})
		case "PreviewAttachment":
			out = append(out, PreviewAttachment{AttachmentInfo: r.AttachmentInfo, Kind: r.Kind, URL: r.URL})
		default:
			out = append(out, IgnoredAttachment{AttachmentInfo: r.AttachmentInfo, Typename: r.Typename})
		}
	}
	*as = out
	return nil
}

// UserAccount is the authenticated user as seen by the catalog, including
// the ids of every asset the account is entitled to.
type UserAccount struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Points int      `json:"points"`
	Assets AssetIDs `json:"assets"`
}

// AssetIDs accepts either a list of id strings or a list of objects with
// an id field.
type AssetIDs []string

func (ids *AssetIDs) UnmarshalJSON(data []byte) error {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		*ids = plain
		return nil
	}

	var objects []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &objects); err != nil {
		return fmt.Errorf("asset id list: %w", err)
	}
	out := make(AssetIDs, 0, len(objects))
	for _, o := range objects {
		if o.ID != "" {
			out = append(out, o.ID)
		}
	}
	*ids = out
	return nil
}

// empty reports whether the document carries neither id nor title
func (c *Collection) empty() bool {
	return c.ID == "" && c.Title == ""
}

// validate checks the fields the ripper cannot work without
func (c *Collection) validate() error {
	if c.ID == "" {
		return fmt.Errorf("collection is missing its id")
	}
	if c.Title == "" {
		return fmt.Errorf("collection %s is missing its title", c.ID)
	}
	if c.Assets.Total < 0 {
		return fmt.Errorf("collection %s reports negative total %d", c.ID, c.Assets.Total)
	}
	for i, item := range c.Assets.Items {
		if item.ID == "" {
			return fmt.Errorf("collection %s item %d is missing its id", c.ID, i)
		}
		if item.Title == "" {
			return fmt.Errorf("asset %s is missing its title", item.ID)
		}
	}
	return nil
}
