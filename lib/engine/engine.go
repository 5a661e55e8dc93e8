package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gertd/go-pluralize"
	"github.com/oleiade/lane/v2"
	"github.com/samber/lo"

	"github.com/refactorproject/autorebase/lib/conflicts"
	"github.com/refactorproject/autorebase/lib/consoles"
	"github.com/refactorproject/autorebase/lib/model"
	"github.com/refactorproject/autorebase/lib/resolvers"
	"github.com/refactorproject/autorebase/lib/trees"
	"github.com/refactorproject/autorebase/lib/utils"
)

// Sources are the three content trees a retarget reads from: the shared
// old baseline, the customized feature tree and the new baseline.
type Sources struct {
	Old     *trees.FileTree
	Feature *trees.FileTree
	BaseNew *trees.FileTree
}

// Engine drives the per-file retarget pipeline: classify, resolve through
// the backend chain, summarize. Files are independent and run on a worker
// pool; results are deterministic regardless of completion order.
type Engine struct {
	console    consoles.Console
	classifier *conflicts.Classifier
	resolver   resolvers.Resolver
	direct     resolvers.Resolver
	workers    int

	plural *pluralize.Client
}

func New(console consoles.Console, resolver resolvers.Resolver, workers int) *Engine {
	return &Engine{
		console:    console,
		classifier: conflicts.NewClassifier(),
		resolver:   resolver,
		direct:     resolvers.NewHeuristicResolver(),
		workers:    workers,
		plural:     pluralize.NewClient(),
	}
}

type task struct {
	unit *model.PatchUnit
	base *model.PatchUnit
}

func (e *Engine) Retarget(ctx context.Context, feature, base *model.Delta, src Sources) ([]*model.ResolutionResult, model.RunSummary, error) {
	tasks, totalBytes := e.schedule(feature, base)

	e.console.Printf("Retargeting %v (%v of patches) onto %v\n",
		e.plural.Pluralize("customized file", len(tasks), true),
		humanize.Bytes(totalBytes),
		src.BaseNew.Root)

	results := make([]*model.ResolutionResult, 0, len(tasks))

	bar := utils.NewProgressBar(len(tasks))
	opts := utils.ParallelOptions{}
	if e.workers > 0 {
		opts.Routines = e.workers
	}

	group := utils.ParallelFor(ctx, tasks,
		func(t *task) (*model.ResolutionResult, error) {
			return e.resolveSafe(ctx, t, src), nil
		},
		opts)

	for result := range group.Output {
		_ = bar.Add(1)
		bar.Describe(utils.TruncateFilename(result.FilePath))
		results = append(results, result)
	}

	if err := <-group.Err; err != nil {
		return nil, model.RunSummary{}, err
	}

	_ = bar.Clear()

	// Anything the pool never got to, because the context was cancelled,
	// still needs a deterministic entry in the report.
	results = append(results, e.interrupted(tasks, results)...)

	results, summary := model.Summarize(results)
	e.printSummary(summary)

	return results, summary, nil
}

// schedule orders the work smallest patch first, so quick wins surface
// early and a cancelled run still reports most of its files.
func (e *Engine) schedule(feature, base *model.Delta) ([]*task, uint64) {
	queue := lane.NewMinPriorityQueue[*task, int]()
	totalBytes := uint64(0)

	for _, unit := range feature.List() {
		queue.Push(&task{unit: unit, base: base.Get(unit.FilePath)}, len(unit.PatchContent))
		totalBytes += uint64(len(unit.PatchContent))
	}

	tasks := make([]*task, 0, queue.Size())
	for {
		t, _, ok := queue.Pop()
		if !ok {
			break
		}
		tasks = append(tasks, t)
	}

	return tasks, totalBytes
}

// resolveSafe guarantees one result per file. Classifier errors, read
// errors, an exhausted backend chain and even a panicking backend all
// degrade to an error result instead of taking the run down.
func (e *Engine) resolveSafe(ctx context.Context, t *task, src Sources) (result *model.ResolutionResult) {
	defer func() {
		if p := recover(); p != nil {
			result = errorResult(t.unit, fmt.Sprintf("resolver panic: %v", p))
		}
	}()

	return e.resolveFile(ctx, t, src)
}

func (e *Engine) resolveFile(ctx context.Context, t *task, src Sources) *model.ResolutionResult {
	records, err := e.classifier.Classify(t.unit, t.base)
	if err != nil {
		return errorResult(t.unit, err.Error())
	}

	req, err := e.buildRequest(t, src)
	if err != nil {
		return errorResult(t.unit, err.Error())
	}
	req.Conflicts = records

	// A file the base never touched needs no reconciliation: the feature's
	// version stands verbatim, without spending a backend call.
	backend := e.resolver
	if t.base == nil {
		backend = e.direct
	}

	result, err := backend.Resolve(ctx, req)
	if err != nil {
		return errorResult(t.unit, fmt.Sprintf("all resolver backends failed: %v", err))
	}

	return result
}

func (e *Engine) buildRequest(t *task, src Sources) (*resolvers.Request, error) {
	req := &resolvers.Request{
		FilePath:        t.unit.FilePath,
		FeatureUnit:     t.unit,
		BaseUnit:        t.base,
		ReqIDs:          t.unit.ReqIDs,
		RequirementText: strings.Join(t.unit.Requirements, "\n"),
	}

	path := t.unit.FilePath

	if t.unit.Change != model.FileAdded && src.Old.Has(path) {
		content, err := src.Old.ReadFile(path)
		if err != nil {
			return nil, err
		}
		req.OldContent = string(content)
	}

	if !t.unit.IsDeletion() && src.Feature.Has(path) {
		content, err := src.Feature.ReadFile(path)
		if err != nil {
			return nil, err
		}
		req.FeatureContent = string(content)
	}

	if src.BaseNew.Has(path) {
		content, err := src.BaseNew.ReadFile(path)
		if err != nil {
			return nil, err
		}
		req.BaseNewContent = string(content)
	}

	return req, nil
}

func (e *Engine) interrupted(tasks []*task, done []*model.ResolutionResult) []*model.ResolutionResult {
	seen := lo.Associate(done, func(r *model.ResolutionResult) (string, bool) {
		return r.FilePath, true
	})

	var missing []*model.ResolutionResult
	for _, t := range tasks {
		if !seen[t.unit.FilePath] {
			missing = append(missing, errorResult(t.unit, "interrupted before resolution"))
		}
	}
	return missing
}

func errorResult(unit *model.PatchUnit, diagnostic string) *model.ResolutionResult {
	result := model.NewResolutionResult(unit.FilePath)
	result.Status = model.StatusError
	result.ReqIDs = unit.ReqIDs
	result.Diagnostics = append(result.Diagnostics, diagnostic)
	return result
}

func (e *Engine) printSummary(s model.RunSummary) {
	e.console.Printf("Resolved %v of %v: %v clean, %v with semantic notes, %v, %v\n",
		s.Resolved, e.plural.Pluralize("file", s.TotalFiles, true),
		s.Auto, s.Semantic,
		e.plural.Pluralize("conflict", s.Conflicts, true),
		e.plural.Pluralize("error", s.Errors, true))
}
