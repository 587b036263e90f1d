package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/datastic/docsbuilder/pkg/llm/dto"
)

type Config struct {
	BaseURL        string            `json:"baseURL" yaml:"baseURL"`
	MaxPromptChars int               `json:"maxPromptChars" yaml:"maxPromptChars"`
	MaxConcurrent  int               `json:"maxConcurrent" yaml:"maxConcurrent"`
	Retry          RetryPolicy       `json:"retry" yaml:"retry"`
	Timeouts       Timeouts          `json:"timeouts" yaml:"timeouts"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
}

type Option func(o *openaiClient)

func WithLogger(log zerolog.Logger) Option {
	return func(o *openaiClient) {
		o.log = log
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(o *openaiClient) {
		o.metrics = metrics
	}
}

// WithTransport replaces the pooled HTTP transport that the retry and
// concurrency layers wrap.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *openaiClient) {
		o.base = rt
	}
}

func NewOpenAI(cfg Config, opts ...Option) Client {
	defaults := DefaultRetryPolicy()
	timeouts := DefaultTimeouts()
	cfg.BaseURL = strings.TrimRight(lo.Ternary(cfg.BaseURL == "", DefaultBaseURL, cfg.BaseURL), "/")
	cfg.MaxPromptChars = lo.Ternary(cfg.MaxPromptChars <= 0, DefaultMaxPromptChars, cfg.MaxPromptChars)
	cfg.MaxConcurrent = lo.Ternary(cfg.MaxConcurrent == 0, DefaultMaxConcurrent, cfg.MaxConcurrent)
	cfg.Retry.MaxAttempts = lo.Ternary(cfg.Retry.MaxAttempts <= 0, defaults.MaxAttempts, cfg.Retry.MaxAttempts)
	cfg.Retry.BaseDelay = lo.Ternary(cfg.Retry.BaseDelay <= 0, defaults.BaseDelay, cfg.Retry.BaseDelay)
	cfg.Timeouts.Connect = lo.Ternary(cfg.Timeouts.Connect <= 0, timeouts.Connect, cfg.Timeouts.Connect)
	cfg.Timeouts.Write = lo.Ternary(cfg.Timeouts.Write <= 0, timeouts.Write, cfg.Timeouts.Write)
	cfg.Timeouts.Read = lo.Ternary(cfg.Timeouts.Read <= 0, timeouts.Read, cfg.Timeouts.Read)

	o := &openaiClient{
		cfg: cfg,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.base == nil {
		o.base = newBaseTransport(cfg.Timeouts, lo.Max([]int{cfg.MaxConcurrent, 1}))
	}
	o.http = &http.Client{
		Transport: &retryTransport{
			next:           newLimitTransport(o.base, cfg.MaxConcurrent),
			policy:         cfg.Retry,
			attemptTimeout: cfg.Timeouts.Attempt(),
			log:            o.log,
			metrics:        o.metrics,
		},
	}
	return o
}

type openaiClient struct {
	cfg     Config
	log     zerolog.Logger
	metrics *Metrics
	base    http.RoundTripper
	http    *http.Client
}

// ListModels always returns a non-nil slice; on failure it is empty and err
// tells why.
func (o *openaiClient) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	models, err := o.listModels(withOperation(ctx, opListModels), apiKey)
	o.metrics.finished(opListModels, KindOf(err))
	if err != nil {
		o.log.Debug().Err(err).Str("kind", KindOf(err).String()).Msg("failed to list models")
		return []string{}, err
	}
	return models, nil
}

func (o *openaiClient) listModels(ctx context.Context, apiKey string) ([]string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, newError(KindMissingAPIKey, 0, nil, "api key is missing")
	}
	req, err := o.newRequest(ctx, http.MethodGet, "/models", apiKey, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, o.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, o.transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := lo.Ternary(resp.StatusCode == http.StatusUnauthorized, KindUnauthorized, KindHTTPError)
		return nil, newError(kind, resp.StatusCode, nil, "failed to list models: status code %d: %s",
			resp.StatusCode, serverMessage(resp.StatusCode, body))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, newError(KindEmptyResponse, resp.StatusCode, nil, "empty models response")
	}
	if !gjson.ValidBytes(body) {
		return nil, newError(KindMalformedResponse, resp.StatusCode, nil, "models response is not valid json")
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, newError(KindMalformedResponse, resp.StatusCode, nil, "models response has no data array")
	}

	items := data.Array()
	models := make([]string, 0, len(items))
	for i, item := range items {
		id := item.Get("id")
		if id.Type != gjson.String {
			return nil, newError(KindMalformedResponse, resp.StatusCode, nil, "model #%d has no string id", i)
		}
		models = append(models, id.String())
	}
	return models, nil
}

func (o *openaiClient) GenerateCompletion(ctx context.Context, request GenerateRequest) Result {
	res := o.generate(withOperation(ctx, opGenerate), request)
	o.metrics.finished(opGenerate, res.Kind)
	event := o.log.Debug()
	if !res.OK() {
		event = o.log.Warn()
	}
	event.Str("kind", res.Kind.String()).
		Str("model", request.Model).
		Int("status", res.StatusCode).
		Msg("completion finished")
	return res
}

func (o *openaiClient) generate(ctx context.Context, request GenerateRequest) Result {
	if utf8.RuneCountInString(request.Prompt) > o.cfg.MaxPromptChars {
		return Result{Kind: KindOversizedInput, Message: fmt.Sprintf("prompt exceeds %d characters", o.cfg.MaxPromptChars)}
	}
	if strings.TrimSpace(request.APIKey) == "" {
		return Result{Kind: KindMissingAPIKey}
	}
	if err := validateRequest(request); err != nil {
		return Result{Kind: KindInvalidRequest, Message: err.Error()}
	}

	body, err := json.Marshal(dto.NewChatCompletionRequest(
		request.Model, strings.TrimSpace(request.Prompt), request.MaxTokens, request.Temperature,
	))
	if err != nil {
		return Result{Kind: KindInvalidRequest, Message: errors.Wrapf(err, "failed to marshal completion request").Error()}
	}
	req, err := o.newRequest(ctx, http.MethodPost, "/chat/completions", request.APIKey, body)
	if err != nil {
		return Result{Kind: KindInvalidRequest, Message: err.Error()}
	}

	o.log.Debug().
		Str("model", request.Model).
		Int("promptChars", utf8.RuneCountInString(request.Prompt)).
		Int("maxTokens", request.MaxTokens).
		Msg("sending completion request")

	resp, err := o.http.Do(req)
	if err != nil {
		return failureResult(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureResult(err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return Result{Kind: KindUnauthorized, StatusCode: resp.StatusCode, Message: serverMessage(resp.StatusCode, payload)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Kind: KindHTTPError, StatusCode: resp.StatusCode, Message: serverMessage(resp.StatusCode, payload)}
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || string(payload) == "null" {
		return Result{Kind: KindEmptyResponse}
	}
	var completion dto.ChatCompletionResponse
	if err := json.Unmarshal(payload, &completion); err != nil {
		return Result{Kind: KindMalformedResponse, Message: err.Error()}
	}
	if len(completion.Choices) == 0 {
		return Result{Kind: KindNoChoices}
	}
	message := completion.Choices[0].Message
	if message == nil || message.Content == nil {
		return Result{Kind: KindMalformedResponse, Message: "first choice has no message content"}
	}
	return Result{Kind: KindSuccess, Text: strings.TrimSpace(*message.Content)}
}

func validateRequest(request GenerateRequest) error {
	if strings.TrimSpace(request.Model) == "" {
		return errors.Errorf("model name is required")
	}
	if request.MaxTokens <= 0 {
		return errors.Errorf("max tokens must be positive, got %d", request.MaxTokens)
	}
	if math.IsNaN(request.Temperature) || request.Temperature < 0 || request.Temperature > 1 {
		return errors.Errorf("temperature must be within [0,1], got %v", request.Temperature)
	}
	return nil
}

func (o *openaiClient) newRequest(ctx context.Context, method, endpoint, apiKey string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, o.cfg.BaseURL+endpoint, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to init request for %s", endpoint)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", strings.TrimSpace(apiKey)))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("X-Request-ID", lo.RandomString(16, lo.AlphanumericCharset))
	for k, v := range o.cfg.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (o *openaiClient) transportError(err error) error {
	res := failureResult(err)
	return newError(res.Kind, 0, err, "request failed")
}

func failureResult(err error) Result {
	switch {
	case errors.Is(err, context.Canceled):
		return Result{Kind: KindCanceled, Message: err.Error()}
	case IsTimeout(err):
		return Result{Kind: KindTimeout, Message: err.Error()}
	default:
		return Result{Kind: KindTransport, Message: err.Error()}
	}
}

// serverMessage prefers the API's own error message over the status text.
func serverMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "message", "error"} {
			if msg := gjson.GetBytes(body, path); msg.Type == gjson.String && msg.String() != "" {
				return msg.String()
			}
		}
	}
	return lo.If(http.StatusText(status) != "", http.StatusText(status)).Else(fmt.Sprintf("status %d", status))
}
