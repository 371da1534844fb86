// Package intent talks to the backend that creates payment intents.
package intent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/fabriqs/paywidget/payment"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 15 * time.Second

	intentPath = "/payment-intent"
)

var _ payment.Provider = (*Client)(nil)

type envelope struct {
	Success bool `json:"success"`
	Data    *struct {
		ID           string `json:"id"`
		ClientSecret string `json:"clientSecret"`
		Status       string `json:"status"`
	} `json:"data"`
	Message string `json:"message"`
}

// Client is a payment.Provider backed by the widget's payment-intent endpoint.
// It sends exactly one request per call and keeps no state between calls.
type Client struct {
	http *resty.Client
	log  logrus.FieldLogger
}

func NewClient(baseURL string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c, log: log.WithField("component", "intent")}
}

func (c *Client) CreateIntent(ctx context.Context, request *payment.IntentRequest) (*payment.IntentResponse, error) {
	if request == nil {
		request = &payment.IntentRequest{}
	}
	var out envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&out).
		ForceContentType("application/json").
		Post(intentPath)
	if err != nil {
		c.log.WithError(err).Warn("payment intent request failed")
		return nil, fmt.Errorf("%w: request: %v", payment.ErrNoSecret, err)
	}
	log := c.log.WithField("status", resp.StatusCode())
	if !resp.IsSuccess() {
		log.Warn("payment intent endpoint returned non-success status")
		return nil, fmt.Errorf("%w: http %d", payment.ErrNoSecret, resp.StatusCode())
	}
	if !out.Success {
		log.WithField("message", out.Message).Warn("payment intent endpoint reported failure")
		return nil, fmt.Errorf("%w: backend reported failure", payment.ErrNoSecret)
	}
	if out.Data == nil || out.Data.ClientSecret == "" {
		log.Warn("payment intent response carries no client secret")
		return nil, fmt.Errorf("%w: missing clientSecret", payment.ErrNoSecret)
	}

	secret := payment.Secret(out.Data.ClientSecret)
	id := out.Data.ID
	if id == "" {
		id = secret.IntentID()
	}
	log.WithField("intent", id).Debug("payment intent created")
	return &payment.IntentResponse{Id: id, ClientSecret: secret, Status: out.Data.Status}, nil
}

func (c *Client) GetIntent(ctx context.Context, ID string) (*payment.IntentResponse, error) {
	if ID == "" {
		return nil, fmt.Errorf("intent: empty intent id")
	}
	var out envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", ID).
		SetResult(&out).
		ForceContentType("application/json").
		Get(intentPath + "/{id}")
	if err != nil {
		return nil, fmt.Errorf("intent: get %s: %w", ID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("intent: %s not found", ID)
	}
	if !resp.IsSuccess() || !out.Success || out.Data == nil || out.Data.Status == "" {
		c.log.WithFields(logrus.Fields{"intent": ID, "status": resp.StatusCode()}).Warn("payment intent lookup failed")
		return nil, fmt.Errorf("intent: get %s: http %d", ID, resp.StatusCode())
	}
	return &payment.IntentResponse{
		Id:           ID,
		ClientSecret: payment.Secret(out.Data.ClientSecret),
		Status:       out.Data.Status,
	}, nil
}
