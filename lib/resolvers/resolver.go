package resolvers

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/refactorproject/autorebase/lib/model"
)

// Request carries everything a backend may need to reconcile one file:
// the two patch units, the classifier's findings and the requirement
// context, plus the full contents the units were derived from.
type Request struct {
	FilePath string

	FeatureUnit *model.PatchUnit
	BaseUnit    *model.PatchUnit // nil when the base did not touch the file

	Conflicts []model.ConflictRecord

	ReqIDs          []string
	RequirementText string

	// Full contents, keyed off the extraction trees: the shared old
	// baseline, the customized file and the new baseline.
	OldContent     string
	FeatureContent string
	BaseNewContent string
}

// Resolver is one backend able to produce a resolution for a file.
// Backends are composed into an ordered fallback chain.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, req *Request) (*model.ResolutionResult, error)
}

// Sentinel failures that make a backend fall through to the next one in
// the chain. They are recorded in the result's diagnostics, never surfaced
// as run errors.
var (
	ErrNotConfigured     = errors.New("resolver not configured")
	ErrTimeout           = errors.New("resolver timed out")
	ErrAuth              = errors.New("resolver authentication failed")
	ErrQuota             = errors.New("resolver quota exhausted")
	ErrMalformedResponse = errors.New("resolver returned a malformed response")
)

type chain struct {
	backends []Resolver
}

// NewChain composes backends into a single Resolver that tries each in
// order. A backend failure is silent to the caller: it is noted in the
// result's diagnostics and the next backend runs.
func NewChain(backends ...Resolver) Resolver {
	return &chain{backends: backends}
}

func (c *chain) Name() string {
	return "chain"
}

func (c *chain) Resolve(ctx context.Context, req *Request) (*model.ResolutionResult, error) {
	var diagnostics []string
	var lastErr error

	for _, backend := range c.backends {
		result, err := backend.Resolve(ctx, req)
		if err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("%v backend failed: %v", backend.Name(), err))
			lastErr = err

			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		result.Diagnostics = append(diagnostics, result.Diagnostics...)
		return result, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no resolver backends configured")
	}
	return nil, lastErr
}
