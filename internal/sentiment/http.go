package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HTTPClassifier calls a text-classification inference endpoint speaking the
// Hugging Face Inference API format:
//
//	POST {"inputs": "..."}  ->  [[{"label": "positive", "score": 0.91}, ...]]
type HTTPClassifier struct {
	url     string
	token   string
	timeout time.Duration
}

// DefaultHTTPTimeout bounds a call when no positive timeout is given.
const DefaultHTTPTimeout = 10 * time.Second

// NewHTTPClassifier creates a classifier for the endpoint at url. token, when
// set, is sent as a bearer token. timeout caps a call when ctx has no deadline;
// zero or less means DefaultHTTPTimeout.
func NewHTTPClassifier(url, token string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPClassifier{
		url:     url,
		token:   token,
		timeout: timeout,
	}
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type agentResponse struct {
	code int
	body []byte
	errs []error
}

// Classify sends the truncated text to the endpoint.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	input, truncated := Truncate(text, MaxInputTokens)

	agent := fiber.Post(c.url)
	agent.JSON(inferenceRequest{Inputs: input})
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	agent.Timeout(timeout)

	done := make(chan agentResponse, 1)
	go func() {
		code, body, errs := agent.Bytes()
		done <- agentResponse{code: code, body: body, errs: errs}
	}()

	var resp agentResponse
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case resp = <-done:
	}

	if len(resp.errs) > 0 {
		return Result{}, fmt.Errorf("inference request failed: %w", errors.Join(resp.errs...))
	}
	if resp.code != fiber.StatusOK {
		return Result{}, fmt.Errorf("inference endpoint returned status %d: %s", resp.code, snippet(resp.body))
	}

	probs, err := decodeScores(resp.body)
	if err != nil {
		return Result{}, err
	}
	res, err := fromDistribution(probs)
	if err != nil {
		return Result{}, err
	}
	res.Truncated = truncated
	return res, nil
}

// decodeScores accepts both the batched ([[...]]) and flat ([...]) shapes.
func decodeScores(body []byte) (map[string]float64, error) {
	var scores []labelScore
	var batched [][]labelScore
	if err := json.Unmarshal(body, &batched); err == nil {
		if len(batched) == 0 {
			return nil, fmt.Errorf("inference endpoint returned an empty batch")
		}
		scores = batched[0]
	} else if err := json.Unmarshal(body, &scores); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	if len(scores) == 0 {
		return nil, fmt.Errorf("inference endpoint returned no labels")
	}
	probs := make(map[string]float64, len(scores))
	for _, s := range scores {
		probs[s.Label] = s.Score
	}
	return probs, nil
}

func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
