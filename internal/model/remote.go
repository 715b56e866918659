package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mcules/ransomguard/internal/features"
)

// Remote delegates prediction to an external model server speaking a small
// JSON protocol: POST {BaseURL}/predict with {"columns":[...],"rows":[[...]]}
// answered by {"predictions":[n]}.
type Remote struct {
	BaseURL string
	HTTP    *http.Client
}

func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

type remoteRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Predictions []int  `json:"predictions"`
	Error       string `json:"error,omitempty"`
}

func (c *Remote) Predict(ctx context.Context, v features.Vector) (int, error) {
	body, err := json.Marshal(remoteRequest{
		Columns: features.Names(),
		Rows:    [][]float64{v[:]},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("predictor request: %w", err)
	}
	defer res.Body.Close()

	var out remoteResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("predictor status=%d: decode: %w", res.StatusCode, err)
	}
	if res.StatusCode/100 != 2 {
		if out.Error != "" {
			return 0, fmt.Errorf("predictor status=%d: %s", res.StatusCode, out.Error)
		}
		return 0, fmt.Errorf("predictor status=%d", res.StatusCode)
	}
	if len(out.Predictions) != 1 {
		return 0, errors.New("predictor returned no prediction for the row")
	}
	return out.Predictions[0], nil
}

// Ping classifies an all-zero row to check that the server is reachable and
// speaks the protocol.
func (c *Remote) Ping(ctx context.Context) error {
	_, err := c.Predict(ctx, features.Vector{})
	return err
}

func (c *Remote) Describe() Info {
	return Info{Kind: "remote", Source: c.BaseURL}
}
