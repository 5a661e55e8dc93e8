package resolvers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/refactorproject/autorebase/lib/model"
)

func TestAIResolves(t *testing.T) {
	t.Parallel()

	var seen aiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&seen))

		writeJSON(w, aiResponse{ResolvedContent: ptr("merged content\n"), Confidence: 0.87})
	}))
	defer server.Close()

	result, err := testAIResolver(server.URL, 0).Resolve(context.Background(), cameraAIRequest())

	assert.Nil(t, err)
	assert.Equal(t, model.StatusResolved, result.Status)
	assert.Equal(t, model.MethodAI, result.Method)
	assert.Equal(t, "merged content\n", *result.ResolvedContent)
	assert.Equal(t, 0.87, result.Confidence)

	assert.Equal(t, "src/vision/camera_pipeline.cpp", seen.FilePath)
	assert.NotEmpty(t, seen.FeatureDiff)
	assert.Equal(t, "default 1344x720 for the rear view camera", seen.RequirementText)
}

func TestAINotConfigured(t *testing.T) {
	t.Parallel()

	r := NewAIResolver(Config{})

	_, err := r.Resolve(context.Background(), cameraAIRequest())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAIAuthFailureDoesNotRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testAIResolver(server.URL, 3).Resolve(context.Background(), cameraAIRequest())

	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAIQuotaRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, aiResponse{ResolvedContent: ptr("merged\n"), Confidence: 0.5})
	}))
	defer server.Close()

	result, err := testAIResolver(server.URL, 2).Resolve(context.Background(), cameraAIRequest())

	assert.Nil(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "merged\n", *result.ResolvedContent)
}

func TestAIEmptyContentIsMalformed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, aiResponse{Confidence: 0.9})
	}))
	defer server.Close()

	_, err := testAIResolver(server.URL, 2).Resolve(context.Background(), cameraAIRequest())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAIGarbageBodyIsMalformed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := testAIResolver(server.URL, 2).Resolve(context.Background(), cameraAIRequest())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestChainFallsThroughToHeuristic(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	chain := NewChain(testAIResolver(server.URL, 0), NewHeuristicResolver())

	result, err := chain.Resolve(context.Background(), &Request{
		FilePath:       "f.txt",
		FeatureUnit:    modifiedUnit("f.txt"),
		OldContent:     "a\n",
		FeatureContent: "a\nb\n",
	})

	assert.Nil(t, err)
	assert.Equal(t, model.StatusResolved, result.Status)
	assert.Equal(t, model.MethodHeuristic, result.Method)
	assert.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0], "ai backend failed")
}

func TestChainWithAllBackendsFailing(t *testing.T) {
	t.Parallel()

	chain := NewChain(NewAIResolver(Config{}))

	_, err := chain.Resolve(context.Background(), cameraAIRequest())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func testAIResolver(url string, retries int) Resolver {
	return NewAIResolver(Config{
		APIKey:      "test-key",
		BaseURL:     url,
		Model:       "resolver-large",
		Timeout:     5 * time.Second,
		MaxRetries:  retries,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
	})
}

func cameraAIRequest() *Request {
	return &Request{
		FilePath:        "src/vision/camera_pipeline.cpp",
		FeatureUnit:     modifiedUnit("src/vision/camera_pipeline.cpp"),
		BaseUnit:        modifiedUnit("src/vision/camera_pipeline.cpp"),
		RequirementText: "default 1344x720 for the rear view camera",
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func ptr(s string) *string {
	return &s
}
