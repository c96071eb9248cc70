package proctor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// HTTPClassifier sends frames to an external inference service and maps
// its response to a verdict. The service is expected to answer
// {"verdict": "SAFE"} or {"verdict": "WARN"}.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewHTTPClassifier(endpoint string, logger *slog.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

type classifyResponse struct {
	Verdict string `json:"verdict"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, frame []byte) (models.Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(frame))
	if err != nil {
		return models.VerdictSafe, fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.VerdictSafe, fmt.Errorf("classify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.VerdictSafe, fmt.Errorf("classify service returned status %d", resp.StatusCode)
	}

	var body classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.VerdictSafe, fmt.Errorf("failed to decode classify response: %w", err)
	}

	switch body.Verdict {
	case string(models.VerdictWarn):
		return models.VerdictWarn, nil
	case string(models.VerdictSafe):
		return models.VerdictSafe, nil
	default:
		c.logger.Warn("Unknown verdict from classify service, treating as safe", "verdict", body.Verdict)
		return models.VerdictSafe, nil
	}
}
