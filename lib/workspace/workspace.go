package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/refactorproject/autorebase/lib/applier"
	"github.com/refactorproject/autorebase/lib/consoles"
	"github.com/refactorproject/autorebase/lib/deltas"
	"github.com/refactorproject/autorebase/lib/engine"
	"github.com/refactorproject/autorebase/lib/model"
	"github.com/refactorproject/autorebase/lib/requirements"
	"github.com/refactorproject/autorebase/lib/resolvers"
	"github.com/refactorproject/autorebase/lib/storages"
	"github.com/refactorproject/autorebase/lib/storages/orm"
	"github.com/refactorproject/autorebase/lib/trees"
	"github.com/refactorproject/autorebase/lib/utils"
	"github.com/refactorproject/autorebase/lib/validate"
)

// Workspace wires the console and the audit storage and exposes the
// operations the commands call.
type Workspace struct {
	console consoles.Console
	storage storages.Storage
}

func NewWorkspace(file string) (*Workspace, error) {
	if file == "" {
		if _, err := os.Stat("./.autorebase"); err == nil {
			file = "./.autorebase/autorebase.sqlite"
		} else {
			file = "~/.autorebase/autorebase.sqlite"
		}
	}

	console := consoles.NewStdOutConsole()

	var storage storages.Storage
	var err error
	switch {
	case file == ":memory:":
		storage, err = orm.NewGormStorage(orm.WithSqliteInMemory(), console)

	case strings.HasSuffix(file, ".sqlite"):
		file, err = utils.PathAbs(file)
		if err != nil {
			return nil, err
		}

		err = createWorkspaceDir(file)
		if err != nil {
			return nil, err
		}

		storage, err = orm.NewGormStorage(orm.WithSqlite(file), console)

	default:
		return nil, fmt.Errorf("unknown storage type for file %v", file)
	}
	if err != nil {
		return nil, err
	}

	return &Workspace{
		console: console,
		storage: storage,
	}, nil
}

func createWorkspaceDir(file string) error {
	path := filepath.Dir(file)

	if _, err := os.Stat(path); err != nil {
		fmt.Printf("Creating workspace at %v\n", path)
		err = os.MkdirAll(path, 0o700)
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *Workspace) Close() error {
	return w.storage.Close()
}

func (w *Workspace) Console() consoles.Console {
	return w.console
}

// RetargetOptions names the three trees, the requirement map and where the
// retargeted tree should land. Tree references accept dir or dir@revision.
type RetargetOptions struct {
	OldBase string
	NewBase string
	Feature string
	ReqMap  string
	Output  string

	Trees     trees.Options
	Resolvers resolvers.Config
	Workers   int
}

// Retarget runs the whole pipeline: extract both deltas against the old
// baseline, annotate requirements, resolve file by file, apply to the
// output tree and persist the run.
func (w *Workspace) Retarget(ctx context.Context, opts *RetargetOptions) (*model.Run, error) {
	old, err := trees.Parse(opts.OldBase, &opts.Trees)
	if err != nil {
		return nil, err
	}

	feature, err := trees.Parse(opts.Feature, &opts.Trees)
	if err != nil {
		return nil, err
	}

	baseNew, err := trees.Parse(opts.NewBase, &opts.Trees)
	if err != nil {
		return nil, err
	}

	extractor := deltas.NewExtractor(w.console)

	w.console.PushPrefix("extract: ")
	featureDelta, err := extractor.Extract(old, feature)
	if err != nil {
		w.console.PopPrefix()
		return nil, err
	}

	baseDelta, err := extractor.Extract(old, baseNew)
	w.console.PopPrefix()
	if err != nil {
		return nil, err
	}

	if opts.ReqMap != "" {
		mapper, err := requirements.Load(opts.ReqMap)
		if err != nil {
			return nil, err
		}
		mapper.Annotate(featureDelta.List())
	}

	chain := resolvers.NewChain(
		resolvers.NewAIResolver(opts.Resolvers),
		resolvers.NewHeuristicResolver(),
	)

	eng := engine.New(w.console, chain, opts.Workers)
	results, _, err := eng.Retarget(ctx, featureDelta, baseDelta, engine.Sources{
		Old:     old,
		Feature: feature,
		BaseNew: baseNew,
	})
	if err != nil {
		return nil, err
	}

	err = applier.NewApplier(w.console).Apply(results, baseNew, opts.Output)
	if err != nil {
		return nil, err
	}

	// Apply can downgrade a result on IO failure, so the persisted
	// summary is computed after it.
	run := model.NewRun(old.Root, baseNew.Root, feature.Root, opts.ReqMap, opts.Output)
	run.Results, run.Summary = model.Summarize(results)

	err = w.storage.WriteRun(run)
	if err != nil {
		return nil, err
	}

	err = w.storage.WritePatchUnits(run.ID, storages.SideFeature, featureDelta.List())
	if err != nil {
		return nil, err
	}

	err = w.storage.WritePatchUnits(run.ID, storages.SideBase, baseDelta.List())
	if err != nil {
		return nil, err
	}

	return run, nil
}

// ExtractDelta computes the change-set between two tree references without
// resolving anything. Used by the extract command for inspection.
func (w *Workspace) ExtractDelta(from, to string, opts *trees.Options) (*model.Delta, error) {
	if opts == nil {
		opts = &trees.Options{}
	}

	fromTree, err := trees.Parse(from, opts)
	if err != nil {
		return nil, err
	}

	toTree, err := trees.Parse(to, opts)
	if err != nil {
		return nil, err
	}

	return deltas.NewExtractor(w.console).Extract(fromTree, toTree)
}

// Validate scans a retargeted tree for leftover conflict markers and
// reject artifacts.
func (w *Workspace) Validate(root string) (*validate.Report, error) {
	tree, err := trees.NewDirTree(root, nil)
	if err != nil {
		return nil, err
	}

	return validate.Scan(tree)
}

func (w *Workspace) Runs() ([]*model.Run, error) {
	return w.storage.LoadRuns()
}

func (w *Workspace) Run(id string) (*model.Run, error) {
	return w.storage.LoadRun(model.UUID(id))
}

func (w *Workspace) SetGlobalConfig(config string, value string) (bool, error) {
	cfg, err := w.storage.LoadConfig()
	if err != nil {
		return false, err
	}

	if (*cfg)[config] == value {
		return false, nil
	}

	(*cfg)[config] = value

	err = w.storage.WriteConfig(cfg)
	if err != nil {
		return false, err
	}

	return true, nil
}
