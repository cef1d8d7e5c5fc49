package substance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	errs "s3ripper/pkg/errors"
	"s3ripper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points both IMS and GraphQL at one httptest server and
// disables backoff delays.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Options{
		IMSURL:        server.URL + "/ims/check/v6/token?jslVersion=test",
		GraphQLURL:    server.URL + "/beta/graphql",
		MaxAttempts:   5,
		BackoffFactor: 0,
		Logger:        logger.NewTestLogger(),
	})
	return client, server
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func decodeGraphQL(t *testing.T, r *http.Request) graphQLRequest {
	t.Helper()
	var req graphQLRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Options{Logger: logger.NewNopLogger()})

	assert.Equal(t, DefaultIMSURL, client.imsURL)
	assert.Equal(t, DefaultGraphQLURL, client.graphqlURL)
	assert.Equal(t, DefaultClientID, client.clientID)
	assert.Equal(t, DefaultUserAgent, client.headers["User-Agent"])
	assert.Equal(t, DefaultOrigin, client.headers["Origin"])
	assert.Equal(t, DefaultOrigin, client.headers["Referer"])
	assert.Equal(t, 5, client.retry.MaxAttempts)
}

func TestToken(t *testing.T) {
	t.Run("sends form, cookie and browser headers", func(t *testing.T) {
		var got url.Values
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "test", r.URL.Query().Get("jslVersion"))
			assert.Equal(t, "application/x-www-form-urlencoded;charset=UTF-8", r.Header.Get("Content-Type"))
			assert.Equal(t, DefaultOrigin, r.Header.Get("Referer"))
			assert.Contains(t, r.Header.Get("User-Agent"), "Chrome/137")

			cookie, err := r.Cookie("ims_sid")
			require.NoError(t, err)
			assert.Equal(t, "sid-123", cookie.Value)

			require.NoError(t, r.ParseForm())
			got = r.PostForm
			writeJSON(t, w, map[string]interface{}{
				"userId":       "user@AdobeID",
				"access_token": "tok-2",
				"expires_in":   "86399999",
				"displayName":  "Ada",
				"email":        "ada@example.com",
				"unknownField": []int{1, 2},
			})
		})

		ticket, err := client.Token(context.Background(), "sid-123", "user@AdobeID")
		require.NoError(t, err)

		assert.Equal(t, "substance-source", got.Get("client_id"))
		assert.Equal(t, DefaultScope, got.Get("scope"))
		assert.Equal(t, "user@AdobeID", got.Get("user_id"))
		assert.Equal(t, "tok-2", ticket.AccessToken)
		assert.Equal(t, Millis(86399999), ticket.ExpiresIn)
		assert.Equal(t, "Ada", ticket.DisplayName)
	})

	t.Run("first step omits user_id", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			_, present := r.PostForm["user_id"]
			assert.False(t, present)
			writeJSON(t, w, map[string]interface{}{"userId": "u", "access_token": "tok-1", "expires_in": 1000})
		})

		ticket, err := client.Token(context.Background(), "sid", "")
		require.NoError(t, err)
		assert.Equal(t, Millis(1000), ticket.ExpiresIn)
	})

	t.Run("missing access token is an auth error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]interface{}{"error": "invalid_credentials"})
		})

		ticket, err := client.Token(context.Background(), "bad", "")
		assert.Nil(t, ticket)
		assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
	})

	t.Run("4xx is an auth error without retry", func(t *testing.T) {
		var calls int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := client.Token(context.Background(), "bad", "")
		assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestTransportRetries(t *testing.T) {
	t.Run("recovers from transient 5xx", func(t *testing.T) {
		var calls int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			writeJSON(t, w, map[string]interface{}{"userId": "u", "access_token": "tok"})
		})

		_, err := client.Token(context.Background(), "sid", "")
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("exhausted retries surface as transport error", func(t *testing.T) {
		var calls int32
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.Collection(context.Background(), "tok", "col", 0, 60)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrorTypeTransport))
		assert.True(t, errs.Is(err, errs.ErrorTypeRateLimit))
		assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
	})

	t.Run("cancelled context stops immediately", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.User(ctx, "tok")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

const collectionPageJSON = `{
  "data": {
    "collection": {
      "id": "col-1",
      "title": "Bricks",
      "imageUrl": "https://img.example/col-1.png",
      "assets": {
        "total": 2,
        "hasMore": false,
        "items": [
          {
            "id": "a-1",
            "title": "Red Brick",
            "free": true,
            "cost": 0,
            "tags": ["brick"],
            "thumbnail": {"id": "t-1", "url": "https://img.example/t.png", "tags": [], "__typename": "Thumbnail"},
            "futureField": {"nested": true},
            "attachments": [
              {"id": "p-1", "tags": [], "label": "preview", "kind": "image", "url": "https://img.example/p.png", "__typename": "PreviewAttachment"},
              {"id": "d-1", "tags": ["sbsar"], "label": "Red Brick.sbsar", "url": "https://dl.example/d-1", "__typename": "DownloadAttachment"},
              {"id": "x-1", "tags": [], "label": "video", "__typename": "VideoAttachment"}
            ],
            "__typename": "Asset"
          },
          {"id": "a-2", "title": "Grey Brick", "cost": 15, "attachments": [], "__typename": "Asset"}
        ],
        "__typename": "AssetPage"
      },
      "__typename": "Collection"
    }
  }
}`

func TestCollection(t *testing.T) {
	t.Run("sends paging variables and decodes attachments", func(t *testing.T) {
		var req graphQLRequest
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/beta/graphql", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			req = decodeGraphQL(t, r)
			io.WriteString(w, collectionPageJSON)
		})

		col, err := client.Collection(context.Background(), "tok", "col-1", 2, 60)
		require.NoError(t, err)

		assert.Equal(t, "Collection", req.OperationName)
		assert.Equal(t, "col-1", req.Variables["id"])
		assert.Equal(t, float64(2), req.Variables["page"])
		assert.Equal(t, float64(60), req.Variables["limit"])
		assert.Equal(t, "sameAsIds", req.Variables["sort"])
		assert.Equal(t, "asc", req.Variables["sortDir"])

		assert.Equal(t, "Bricks", col.Title)
		assert.Equal(t, 2, col.Assets.Total)
		require.Len(t, col.Assets.Items, 2)

		item := col.Assets.Items[0]
		require.Len(t, item.Attachments, 3)
		assert.IsType(t, PreviewAttachment{}, item.Attachments[0])
		assert.IsType(t, DownloadAttachment{}, item.Attachments[1])
		ignored, ok := item.Attachments[2].(IgnoredAttachment)
		require.True(t, ok)
		assert.Equal(t, "VideoAttachment", ignored.Typename)

		downloads := item.Downloads()
		require.Len(t, downloads, 1)
		assert.Equal(t, "https://dl.example/d-1", downloads[0].URL)
		assert.Equal(t, "Red Brick.sbsar", downloads[0].Common().Label)

		assert.Empty(t, col.Assets.Items[1].Downloads())
		assert.Equal(t, 15, col.Assets.Items[1].Cost)
	})

	notFound := []struct {
		name string
		body string
	}{
		{"null collection is not found", `{"data":{"collection":null}}`},
		{"empty collection is not found", `{"data":{"collection":{}}}`},
		{"collection without id or title is not found", `{"data":{"collection":{"assets":{"total":0,"hasMore":false,"items":[]}}}}`},
		{"absent collection is not found", `{"data":{}}`},
	}
	for _, tt := range notFound {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})

			col, err := client.Collection(context.Background(), "tok", "missing", 0, 60)
			assert.Nil(t, col)
			assert.Equal(t, errs.ErrorTypeNotFound, errs.TypeOf(err))
		})
	}

	t.Run("collection without id is a parsing error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":{"collection":{"title":"T","assets":{"total":0,"hasMore":false,"items":[]}}}}`)
		})

		_, err := client.Collection(context.Background(), "tok", "c", 0, 60)
		assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
	})

	t.Run("missing title is a parsing error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":{"collection":{"id":"c","title":"T","assets":{"total":1,"hasMore":false,"items":[{"id":"a-1","attachments":[]}]}}}}`)
		})

		_, err := client.Collection(context.Background(), "tok", "c", 0, 60)
		assert.True(t, errs.Is(err, errs.ErrorTypeParsing))
	})

	t.Run("unauthenticated graphql error is an auth error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":null,"errors":[{"message":"token expired","extensions":{"code":"UNAUTHENTICATED"}}]}`)
		})

		_, err := client.Collection(context.Background(), "tok", "c", 0, 60)
		assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
	})

	t.Run("401 is an auth error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.Collection(context.Background(), "tok", "c", 0, 60)
		assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
		assert.False(t, errs.Is(err, errs.ErrorTypeTransport))
	})
}

func TestUser(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"id strings", `{"data":{"user":{"id":"u-1","name":"Ada","points":40,"assets":["a-1","a-2"]}}}`},
		{"id objects", `{"data":{"user":{"id":"u-1","name":"Ada","points":40,"assets":[{"id":"a-1"},{"id":"a-2"}]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "User", decodeGraphQL(t, r).OperationName)
				io.WriteString(w, tt.body)
			})

			user, err := client.User(context.Background(), "tok")
			require.NoError(t, err)
			assert.Equal(t, AssetIDs{"a-1", "a-2"}, user.Assets)
			assert.Equal(t, 40, user.Points)
		})
	}

	t.Run("no user is an auth error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":{"user":null}}`)
		})

		_, err := client.User(context.Background(), "tok")
		assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
	})
}

func TestPurchaseAsset(t *testing.T) {
	t.Run("returns the server entitlement list", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			req := decodeGraphQL(t, r)
			assert.Equal(t, "PurchaseAsset", req.OperationName)
			assert.Equal(t, "a-9", req.Variables["assetId"])
			io.WriteString(w, `{"data":{"purchaseAsset":{"id":"u-1","points":25,"assets":["a-9","a-1"]}}}`)
		})

		account, err := client.PurchaseAsset(context.Background(), "tok", "a-9")
		require.NoError(t, err)
		assert.Equal(t, AssetIDs{"a-9", "a-1"}, account.Assets)
	})

	t.Run("business rejection is a purchase error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":{"purchaseAsset":null},"errors":[{"message":"not enough points"}]}`)
		})

		_, err := client.PurchaseAsset(context.Background(), "tok", "a-9")
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrorTypePurchase))
		assert.Contains(t, err.Error(), "not enough points")
	})

	t.Run("empty payload is a purchase error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":{}}`)
		})

		_, err := client.PurchaseAsset(context.Background(), "tok", "a-9")
		assert.True(t, errs.Is(err, errs.ErrorTypePurchase))
	})
}

func TestDownload(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "tok", r.URL.Query().Get("accessToken"))
		assert.Equal(t, "1", r.URL.Query().Get("v"))
		w.Header().Set("Content-Disposition", `attachment; filename="brick.sbsar"`)
		io.WriteString(w, "payload")
	})

	resp, err := client.Download(context.Background(), server.URL+"/files/a-1?v=1", "tok")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, `attachment; filename="brick.sbsar"`, resp.Header.Get("Content-Disposition"))
}

func TestWithAccessToken(t *testing.T) {
	got, err := WithAccessToken("https://dl.example/a?b=c", "t k")
	require.NoError(t, err)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "c", u.Query().Get("b"))
	assert.Equal(t, "t k", u.Query().Get("accessToken"))

	_, err = WithAccessToken("/relative/path", "t")
	assert.True(t, errs.Is(err, errs.ErrorTypeInvalid))
}

func TestMillisUnmarshal(t *testing.T) {
	var v struct {
		A Millis `json:"a"`
		B Millis `json:"b"`
		C Millis `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"120","b":340,"c":null}`), &v))
	assert.Equal(t, Millis(120), v.A)
	assert.Equal(t, Millis(340), v.B)
	assert.Equal(t, Millis(0), v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
}
