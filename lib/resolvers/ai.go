package resolvers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/refactorproject/autorebase/lib/model"
)

type aiResolver struct {
	cfg    Config
	client *http.Client
}

// NewAIResolver builds the remote backend. It returns ErrNotConfigured
// from Resolve when no API key is set, so the chain can skip it cleanly.
func NewAIResolver(cfg Config) Resolver {
	return &aiResolver{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (a *aiResolver) Name() string {
	return "ai"
}

type aiRequest struct {
	FilePath        string `json:"file_path"`
	Model           string `json:"model,omitempty"`
	FeatureDiff     string `json:"feature_diff"`
	BaseDiff        string `json:"base_diff"`
	RequirementText string `json:"requirement_text"`
}

type aiResponse struct {
	ResolvedContent *string `json:"resolved_content"`
	Confidence      float64 `json:"confidence"`
}

func (a *aiResolver) Resolve(ctx context.Context, req *Request) (*model.ResolutionResult, error) {
	if a.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	body := aiRequest{
		FilePath:        req.FilePath,
		Model:           a.cfg.Model,
		FeatureDiff:     req.FeatureUnit.PatchContent,
		RequirementText: req.RequirementText,
	}
	if req.BaseUnit != nil {
		body.BaseDiff = req.BaseUnit.PatchContent
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encoding resolve request")
	}

	var resp *aiResponse
	for attempt := 0; ; attempt++ {
		resp, err = a.call(ctx, payload)
		if err == nil {
			break
		}

		if !a.retryable(err) || attempt >= a.cfg.MaxRetries {
			return nil, err
		}

		if werr := a.wait(ctx, attempt); werr != nil {
			return nil, werr
		}
	}

	if resp.ResolvedContent == nil || *resp.ResolvedContent == "" {
		return nil, ErrMalformedResponse
	}

	result := model.NewResolutionResult(req.FilePath)
	result.Status = model.StatusResolved
	result.Method = model.MethodAI
	result.ResolvedContent = resp.ResolvedContent
	result.Confidence = resp.Confidence
	result.Conflicts = req.Conflicts
	result.ReqIDs = req.ReqIDs
	return result, nil
}

func (a *aiResolver) call(ctx context.Context, payload []byte) (*aiResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, a.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "building resolve request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, errors.Wrap(err, "calling resolver backend")
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return nil, ErrAuth
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrQuota
	case httpResp.StatusCode >= 500:
		return nil, errors.Errorf("resolver backend returned status %v", httpResp.StatusCode)
	case httpResp.StatusCode != http.StatusOK:
		return nil, ErrMalformedResponse
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 16<<20))
	if err != nil {
		return nil, errors.Wrap(err, "reading resolver response")
	}

	var resp aiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, ErrMalformedResponse
	}
	return &resp, nil
}

// retryable reports whether a failure is worth another attempt. Auth and
// malformed responses never recover by retrying.
func (a *aiResolver) retryable(err error) bool {
	return !errors.Is(err, ErrAuth) && !errors.Is(err, ErrMalformedResponse)
}

func (a *aiResolver) wait(ctx context.Context, attempt int) error {
	backoff := a.cfg.BaseBackoff << attempt
	if backoff > a.cfg.MaxBackoff || backoff <= 0 {
		backoff = a.cfg.MaxBackoff
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
