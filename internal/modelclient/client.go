// Package modelclient talks to the OpenAI-compatible multimodal chat
// endpoint that stands in for the vision-language model: request assembly,
// adaptive timeout, retry/backoff, and <think>/<answer> envelope parsing.
package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/common/tracing"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// ModelClient issues multimodal chat requests to the configured VLM
// endpoint with adaptive timeouts and retries.
type ModelClient struct {
	cfg        v1.ModelConfig
	httpClient *http.Client
	logger     *logger.Logger
	telemetry  *telemetryWindow
}

// New creates a ModelClient bound to the given (immutable, per-task) config.
func New(cfg v1.ModelConfig, log *logger.Logger) *ModelClient {
	return &ModelClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     log,
		telemetry:  newTelemetryWindow(),
	}
}

// Stats returns a snapshot of the in-memory telemetry sliding window.
func (c *ModelClient) Stats() Stats {
	return c.telemetry.snapshot()
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []wireMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
}

type wireMessage struct {
	Role    v1.MessageRole `json:"role"`
	Content any            `json:"content"`
}

type wireContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func toWireMessages(messages []v1.Message) []wireMessage {
	out := make([]wireMessage, len(messages))
	for i, m := range messages {
		if len(m.Parts) == 1 && m.Parts[0].Type == v1.ContentText {
			out[i] = wireMessage{Role: m.Role, Content: m.Parts[0].Text}
			continue
		}
		parts := make([]wireContentPart, len(m.Parts))
		for j, p := range m.Parts {
			switch p.Type {
			case v1.ContentImage:
				parts[j] = wireContentPart{Type: "image_url", ImageURL: &wireImageURL{URL: p.ImageURL}}
			default:
				parts[j] = wireContentPart{Type: "text", Text: p.Text}
			}
		}
		out[i] = wireMessage{Role: m.Role, Content: parts}
	}
	return out
}

// Request sends messages to the VLM endpoint and returns the parsed reply.
// Cancellation aborts any in-flight HTTP call and any pending retry wait
// immediately, returning a Cancelled error.
func (c *ModelClient) Request(ctx context.Context, messages []v1.Message) (v1.ModelReply, error) {
	tracer := tracing.Tracer("modelclient")
	ctx, span := tracer.Start(ctx, "modelclient.Request")
	defer span.End()

	attemptTimeout := computeTimeout(c.cfg, messages)
	schedule := newScheduleBackOff(c.cfg.RetryDelays)
	maxTries := c.cfg.RetryCount + 1
	if maxTries < 1 {
		maxTries = 1
	}

	reqBody, err := c.buildBody(messages)
	if err != nil {
		return v1.ModelReply{}, apperrors.ModelPermanentErr(err)
	}

	op := func() (v1.ModelReply, error) {
		if ctx.Err() != nil {
			return v1.ModelReply{}, backoff.Permanent(apperrors.CancelledErr())
		}

		start := time.Now()
		reply, attemptErr := c.doAttempt(ctx, reqBody, attemptTimeout)
		elapsed := time.Since(start)

		c.telemetry.record(telemetrySample{
			startedAt:  start,
			durationMs: elapsed.Milliseconds(),
			payloadLen: len(reqBody),
			success:    attemptErr == nil,
		})

		if attemptErr == nil {
			reply.RequestDurationMs = elapsed.Milliseconds()
			return reply, nil
		}

		attemptTimeout = growTimeout(c.cfg, attemptTimeout)

		if !isRetryable(attemptErr) {
			return v1.ModelReply{}, backoff.Permanent(attemptErr)
		}
		return v1.ModelReply{}, attemptErr
	}

	reply, retryErr := backoff.Retry(ctx, op,
		backoff.WithBackOff(schedule),
		backoff.WithMaxTries(uint(maxTries)),
	)
	if retryErr != nil {
		if ctx.Err() != nil {
			return v1.ModelReply{}, apperrors.CancelledErr()
		}
		return v1.ModelReply{}, c.finalError(retryErr)
	}
	return reply, nil
}

func (c *ModelClient) finalError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var classified *classifiedError
	if errors.As(err, &classified) {
		if classified.retryable {
			return apperrors.ModelTransientErr(classified.err)
		}
		return apperrors.ModelPermanentErr(classified.err)
	}
	return apperrors.Wrap(err, "model request failed")
}

func (c *ModelClient) buildBody(messages []v1.Message) ([]byte, error) {
	req := chatRequest{
		Model:            c.cfg.Model,
		Messages:         toWireMessages(messages),
		MaxTokens:        c.cfg.MaxTokens,
		Temperature:      c.cfg.Temperature,
		TopP:             c.cfg.TopP,
		FrequencyPenalty: c.cfg.FrequencyPenalty,
	}
	return json.Marshal(req)
}

func (c *ModelClient) doAttempt(ctx context.Context, body []byte, timeout time.Duration) (v1.ModelReply, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.cfg.Endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return v1.ModelReply{}, permanentErr(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return v1.ModelReply{}, transientErr(fmt.Errorf("request timed out after %s: %w", timeout, err))
		}
		if ctx.Err() != nil {
			return v1.ModelReply{}, &classifiedError{retryable: false, err: apperrors.CancelledErr()}
		}
		return v1.ModelReply{}, transientErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return v1.ModelReply{}, transientErr(err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests {
		return v1.ModelReply{}, transientErr(fmt.Errorf("model endpoint returned %d: %s", resp.StatusCode, raw))
	}
	if resp.StatusCode >= 400 {
		return v1.ModelReply{}, permanentErr(fmt.Errorf("model endpoint returned %d: %s", resp.StatusCode, raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return v1.ModelReply{}, permanentErr(fmt.Errorf("decode chat completion: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return v1.ModelReply{}, permanentErr(fmt.Errorf("model endpoint returned no choices"))
	}

	thought, actionText, err := parseEnvelope(parsed.Choices[0].Message.Content)
	if err != nil {
		return v1.ModelReply{}, permanentErr(err)
	}

	c.logger.Debug("model reply parsed", zap.Int("thought_len", len(thought)), zap.Int("action_len", len(actionText)))

	return v1.ModelReply{
		Thought:    thought,
		ActionText: actionText,
		RawBytes:   raw,
	}, nil
}
