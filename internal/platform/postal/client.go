// Package postal is the client for the external postal-code lookup service
// used to derive address fields on the admission draft.
package postal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound is returned when the service has no record for the code.
var ErrNotFound = errors.New("postal code not found")

// ErrInvalidCode is returned for codes that are not exactly six digits.
var ErrInvalidCode = errors.New("postal code must be six digits")

// Result holds the address fields derived from a postal code.
type Result struct {
	Cities   []string `json:"cities"`
	District string   `json:"district"`
	State    string   `json:"state"`
}

// Lookuper resolves a postal code to address fields.
type Lookuper interface {
	Lookup(ctx context.Context, code string) (*Result, error)
}

// Client talks to the postal pincode API over HTTP.
type Client struct {
	http *resty.Client
}

type apiResponse struct {
	Status     string `json:"Status"`
	PostOffice []struct {
		Name     string `json:"Name"`
		District string `json:"District"`
		State    string `json:"State"`
	} `json:"PostOffice"`
}

// NewClient builds a Client against baseURL with a bounded per-request
// timeout and retry for transient failures.
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient}
}

// Lookup resolves a six-digit postal code. Returns ErrNotFound for unknown
// codes and ErrInvalidCode for malformed input; other errors are transport
// failures and may be retried by the caller.
func (c *Client) Lookup(ctx context.Context, code string) (*Result, error) {
	if !ValidCode(code) {
		return nil, ErrInvalidCode
	}

	var body []apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/pincode/" + code)
	if err != nil {
		return nil, fmt.Errorf("postal lookup %s: %w", code, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("postal lookup %s: status %d", code, resp.StatusCode())
	}
	if len(body) == 0 || body[0].Status != "Success" || len(body[0].PostOffice) == 0 {
		return nil, ErrNotFound
	}

	result := &Result{
		District: body[0].PostOffice[0].District,
		State:    body[0].PostOffice[0].State,
	}
	seen := make(map[string]bool)
	for _, po := range body[0].PostOffice {
		if !seen[po.Name] {
			seen[po.Name] = true
			result.Cities = append(result.Cities, po.Name)
		}
	}
	return result, nil
}

// ValidCode reports whether code is exactly six digits.
func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
