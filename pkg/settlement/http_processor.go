package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nimeshabuddhika/split-tender-processor/pkg/utils"
)

// HTTPProcessor posts charges to a remote processor at {baseURL}/v1/charges/{method}.
// A 2xx or 4xx response carries the decision; 5xx and transport failures mean no decision.
type HTTPProcessor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProcessor(baseURL string, opts ...utils.ClientOption) *HTTPProcessor {
	return &HTTPProcessor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  utils.NewHTTPClient(opts...),
	}
}

func (h *HTTPProcessor) Charge(ctx context.Context, charge Charge) (Outcome, error) {
	body, err := json.Marshal(charge)
	if err != nil {
		return Outcome{}, err
	}
	url := fmt.Sprintf("%s/v1/charges/%s", h.baseURL, charge.Method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", charge.PaymentID.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Outcome{}, fmt.Errorf("processor returned status %d", resp.StatusCode)
	}
	var outcome Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return Outcome{}, fmt.Errorf("decode processor response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest && outcome.Approved {
		return Outcome{}, fmt.Errorf("processor approved with status %d", resp.StatusCode)
	}
	return outcome, nil
}
