package substance

const (
	// DefaultIMSURL is the Adobe IMS token check endpoint
	DefaultIMSURL = "https://adobeid-na1.services.adobe.com/ims/check/v6/token?jslVersion=v2-v0.31.0-2-g1e8a8a8"

	// DefaultGraphQLURL is the Substance 3D Assets GraphQL endpoint
	DefaultGraphQLURL = "https://source-api.substance3d.com/beta/graphql"

	// DefaultOrigin is sent as both Origin and Referer
	DefaultOrigin = "https://substance3d.adobe.com/"

	DefaultClientID = "substance-source"
	DefaultScope    = "account_type,openid,AdobeID,read_organizations"

	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

	// DefaultPageLimit is the number of assets requested per collection page
	DefaultPageLimit = 60

	// Sort order that keeps page boundaries stable between requests
	collectionSort    = "sameAsIds"
	collectionSortDir = "asc"

	sessionCookie    = "ims_sid"
	accessTokenParam = "accessToken"
)

const (
	operationCollection = "Collection"
	operationUser       = "User"
	operationPurchase   = "PurchaseAsset"
)

const collectionQuery = `query Collection($id: String!, $search: String, $page: Int, $limit: Int = 20, $sort: AssetSort = sameAsIds, $sortDir: SortDir = asc, $filters: AssetFilters) {
  collection(id: $id) {
    id
    title
    imageUrl
    assets(
      sort: $sort
      sortDir: $sortDir
      page: $page
      limit: $limit
      filters: $filters
      search: $search
    ) {
      total
      hasMore
      items {
        ...AssetAttachmentsFragment
        __typename
      }
      __typename
    }
    __typename
  }
}

fragment AssetAttachmentsFragment on Asset {
  ...AssetFragment
  attachments {
    id
    tags
    label
    ... on PreviewAttachment {
      kind
      url
      __typename
    }
    ... on DownloadAttachment {
      url
      __typename
    }
    __typename
  }
  __typename
}

fragment AssetFragment on Asset {
  id
  title
  tags
  status
  categories
  cost
  new
  free
  licenses
  downloadsRecentlyUpdated
  thumbnail {
    id
    url
    tags
    __typename
  }
  createdAt
  __typename
}`

const userQuery = `query User {
  user {
    id
    name
    email
    points
    assets
    __typename
  }
}`

const purchaseMutation = `mutation PurchaseAsset($assetId: String!) {
  purchaseAsset(assetId: $assetId) {
    id
    points
    assets
    __typename
  }
}`
