package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payment-gateway-backend/internal/config"
	"payment-gateway-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// Client talks to the gateway's transaction API on behalf of the
// settlement processor. Every call carries the request context and the
// client's finite timeout; transport failures surface as
// models.ErrCommunication so callers never mistake them for a FAILED
// payment outcome.
type Client struct {
	baseURL      string
	serviceToken string
	client       *http.Client
	log          *logrus.Logger
}

// NewClient initializes a new ledger client.
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL:      cfg.GatewayURL,
		serviceToken: cfg.ServiceToken,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		log: log,
	}
}

type transactionEnvelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    *models.Transaction `json:"data"`
}

// token picks the outbound credential: the end-user token is forwarded
// unchanged when present, otherwise the shared service token is used.
func (c *Client) token(authToken string) string {
	if authToken != "" {
		return authToken
	}
	return c.serviceToken
}

func (c *Client) do(ctx context.Context, method, url, token string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCommunication, err)
	}
	return resp, nil
}

// GetTransaction fetches a transaction record, forwarding authToken
// when present.
func (c *Client) GetTransaction(ctx context.Context, id int64, authToken string) (*models.Transaction, error) {
	url := fmt.Sprintf("%s/transactions/%d", c.baseURL, id)
	resp, err := c.do(ctx, http.MethodGet, url, c.token(authToken), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: transaction %d", models.ErrNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d fetching transaction %d",
			models.ErrCommunication, resp.StatusCode, id)
	}

	var env transactionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode transaction: %v", models.ErrCommunication, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: empty transaction payload", models.ErrCommunication)
	}
	return env.Data, nil
}

// UpdateStatus reports a settlement decision back to the store. Any
// failure here is a reconciliation failure: the decision was computed
// but not committed, and the transaction remains PENDING.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status models.TransactionStatus, authToken string) (*models.Transaction, error) {
	url := fmt.Sprintf("%s/transactions/%d/update-status", c.baseURL, id)
	body := models.UpdateStatusRequest{Status: status}

	resp, err := c.do(ctx, http.MethodPatch, url, c.token(authToken), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrReconciliation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env transactionEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		c.log.WithFields(logrus.Fields{
			"transaction_id": id,
			"status_code":    resp.StatusCode,
		}).Warnf("status update rejected: %s", env.Message)
		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, fmt.Errorf("%w: transaction %d", models.ErrNotFound, id)
		case http.StatusConflict:
			// Another settlement attempt already committed a terminal
			// status; callers expecting this state treat it as done.
			return nil, fmt.Errorf("%w: transaction %d: %s", models.ErrInvalidTransition, id, env.Message)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%w: transaction %d: %s", models.ErrInvalidStatus, id, env.Message)
		default:
			return nil, fmt.Errorf("%w: status code %d: %s", models.ErrReconciliation, resp.StatusCode, env.Message)
		}
	}

	var env transactionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode transaction: %v", models.ErrReconciliation, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: empty transaction payload", models.ErrReconciliation)
	}
	return env.Data, nil
}

type pendingEnvelope struct {
	Status string  `json:"status"`
	Data   []int64 `json:"data"`
}

// ListPending returns ids of PENDING transactions older than the given
// age. Requires the service token.
func (c *Client) ListPending(ctx context.Context, olderThan time.Duration) ([]int64, error) {
	url := fmt.Sprintf("%s/transactions/pending?older_than=%d", c.baseURL, int(olderThan.Seconds()))
	resp, err := c.do(ctx, http.MethodGet, url, c.serviceToken, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d listing pending transactions",
			models.ErrCommunication, resp.StatusCode)
	}

	var env pendingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode pending list: %v", models.ErrCommunication, err)
	}
	return env.Data, nil
}
