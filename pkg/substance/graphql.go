package substance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	errs "s3ripper/pkg/errors"
)

type graphQLRequest struct {
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
	Query         string                 `json:"query"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors GraphQLErrors   `json:"errors"`
}

// GraphQLError is one entry of a GraphQL errors array
type GraphQLError struct {
	Message    string        `json:"message"`
	Path       []interface{} `json:"path"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// GraphQLErrors is the errors array of a GraphQL response
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		msgs = append(msgs, ge.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

func (e GraphQLErrors) unauthenticated() bool {
	for _, ge := range e {
		switch ge.Extensions.Code {
		case "UNAUTHENTICATED", "FORBIDDEN":
			return true
		}
	}
	return false
}

// graphql posts one operation with the bearer token and decodes data into
// out. GraphQL-level errors are returned alongside whatever data decoded,
// so callers can decide whether partial data is usable.
func (c *Client) graphql(ctx context.Context, bearer string, op graphQLRequest, out interface{}) (GraphQLErrors, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeInvalid, err, "failed to encode GraphQL request")
	}

	resp, err := c.send(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+bearer)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeTransport, err, "failed to read GraphQL response")
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.ErrorWithFields("failed to parse GraphQL response", map[string]interface{}{
			"operation":    op.OperationName,
			"error":        err.Error(),
			"body_preview": bodyPreview(body),
		})
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse GraphQL response")
	}

	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return envelope.Errors, errs.Wrap(errs.ErrorTypeParsing, err,
				fmt.Sprintf("failed to decode %s data", op.OperationName))
		}
	}

	if len(envelope.Errors) > 0 {
		c.logger.WarnWithFields("GraphQL operation returned errors", map[string]interface{}{
			"operation": op.OperationName,
			"errors":    envelope.Errors.Error(),
		})
	}

	return envelope.Errors, nil
}

// Collection fetches one page of a collection's assets. A missing or empty
// collection is a not_found error. A collection with only one of id and
// title, or an item without id or title, is a parsing error.
func (c *Client) Collection(ctx context.Context, bearer, collectionID string, page, limit int) (*Collection, error) {
	var data struct {
		Collection *Collection `json:"collection"`
	}

	gqlErrs, err := c.graphql(ctx, bearer, graphQLRequest{
		OperationName: operationCollection,
		Variables: map[string]interface{}{
			"limit":   limit,
			"sort":    collectionSort,
			"sortDir": collectionSortDir,
			"id":      collectionID,
			"page":    page,
		},
		Query: collectionQuery,
	}, &data)
	if err != nil {
		return nil, err
	}

	if gqlErrs.unauthenticated() {
		return nil, errs.Wrap(errs.ErrorTypeAuth, gqlErrs, "catalog rejected the access token")
	}
	// The API answers unknown ids with null or an empty object
	if data.Collection == nil || data.Collection.empty() {
		e := errs.Newf(errs.ErrorTypeNotFound, "collection %s not found", collectionID)
		if len(gqlErrs) > 0 {
			e.Err = gqlErrs
		}
		return nil, e
	}
	if err := data.Collection.validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "malformed collection page")
	}

	return data.Collection, nil
}

// User fetches the authenticated account and its entitled asset ids
func (c *Client) User(ctx context.Context, bearer string) (*UserAccount, error) {
	var data struct {
		User *UserAccount `json:"user"`
	}

	gqlErrs, err := c.graphql(ctx, bearer, graphQLRequest{
		OperationName: operationUser,
		Variables:     map[string]interface{}{},
		Query:         userQuery,
	}, &data)
	if err != nil {
		return nil, err
	}

	if data.User == nil {
		e := errs.New(errs.ErrorTypeAuth, "catalog returned no user for the access token")
		if len(gqlErrs) > 0 {
			e.Err = gqlErrs
		}
		return nil, e
	}

	return data.User, nil
}

// PurchaseAsset claims an asset for the authenticated account and returns
// the account state after the claim, including the full entitled id list.
// Any GraphQL error or a missing payload is a purchase error.
func (c *Client) PurchaseAsset(ctx context.Context, bearer, assetID string) (*UserAccount, error) {
	var data struct {
		PurchaseAsset *UserAccount `json:"purchaseAsset"`
	}

	gqlErrs, err := c.graphql(ctx, bearer, graphQLRequest{
		OperationName: operationPurchase,
		Variables:     map[string]interface{}{"assetId": assetID},
		Query:         purchaseMutation,
	}, &data)
	if err != nil {
		return nil, err
	}

	if len(gqlErrs) > 0 {
		return nil, errs.Wrap(errs.ErrorTypePurchase, gqlErrs,
			fmt.Sprintf("claim of asset %s rejected", assetID))
	}
	if data.PurchaseAsset == nil {
		return nil, errs.Newf(errs.ErrorTypePurchase, "claim of asset %s returned no account state", assetID)
	}

	return data.PurchaseAsset, nil
}
