package clients

import (
	"context"
	"log"

	"github.com/go-resty/resty/v2"

	"orderflow/config"
)

// Policy decides what an indeterminate existence check means. Fail-closed
// treats an unreachable customer service the same as an absent customer, so
// orders are rejected during outages rather than accepted unverified.
type Policy string

const (
	FailClosed Policy = "fail_closed"
	FailOpen   Policy = "fail_open"
)

// CustomerClient answers "does this customer exist" over HTTP.
type CustomerClient struct {
	http   *resty.Client
	policy Policy
}

func NewCustomerClient(cfg *config.Config) *CustomerClient {
	client := resty.New().
		SetBaseURL(cfg.CustomerServiceURL).
		SetTimeout(cfg.CustomerTimeout)

	policy := Policy(cfg.ExistencePolicy)
	if policy != FailOpen {
		policy = FailClosed
	}

	return &CustomerClient{http: client, policy: policy}
}

// Exists never returns an error. A 2xx response means the customer exists.
// A definite non-2xx answer means it does not. Transport failures resolve
// according to the configured policy.
func (c *CustomerClient) Exists(ctx context.Context, customerID string) bool {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", customerID).
		Get("/customers/validate/{id}")

	if err != nil {
		log.Printf("Customer existence check failed for %s: %v", customerID, err)
		return c.policy == FailOpen
	}

	return resp.IsSuccess()
}
