package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// RazorpayClient creates orders and subscriptions through the Razorpay REST API.
type RazorpayClient struct {
	http *resty.Client
}

// NewRazorpayClient returns a client authenticated with the key pair.
func NewRazorpayClient(baseURL, keyID, keySecret string) *RazorpayClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(keyID, keySecret).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	return &RazorpayClient{http: client}
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body := map[string]interface{}{
		"amount":   MinorUnits(req.Amount),
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		body["notes"] = req.Notes
	}

	var order Order
	if err := c.post(ctx, "/orders", body, &order); err != nil {
		return nil, fmt.Errorf("failed to create gateway order for receipt %s: %w", req.Receipt, err)
	}
	return &order, nil
}

func (c *RazorpayClient) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	notify := 0
	if req.CustomerNotify {
		notify = 1
	}
	body := map[string]interface{}{
		"plan_id":         req.PlanID,
		"total_count":     req.TotalCount,
		"quantity":        1,
		"customer_notify": notify,
	}
	if len(req.Notes) > 0 {
		body["notes"] = req.Notes
	}

	var sub Subscription
	if err := c.post(ctx, "/subscriptions", body, &sub); err != nil {
		return nil, fmt.Errorf("failed to create gateway subscription for plan %s: %w", req.PlanID, err)
	}
	return &sub, nil
}

func (c *RazorpayClient) post(ctx context.Context, path string, body, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		var apiErr razorpayError
		if jsonErr := json.Unmarshal(resp.Body(), &apiErr); jsonErr == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("gateway returned %d: %s (%s)", resp.StatusCode(), apiErr.Error.Description, apiErr.Error.Code)
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("invalid gateway response: %w", err)
	}
	return nil
}
