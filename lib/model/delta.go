package model

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Delta is the full set of per-file changes between two trees. Units are
// appended during extraction and never replaced afterwards.
type Delta struct {
	FromRoot string
	ToRoot   string

	mutex sync.RWMutex
	units map[string]*PatchUnit
}

func NewDelta(fromRoot, toRoot string) *Delta {
	return &Delta{
		FromRoot: fromRoot,
		ToRoot:   toRoot,
		units:    map[string]*PatchUnit{},
	}
}

func (d *Delta) Add(unit *PatchUnit) {
	if unit.FilePath == "" {
		panic("empty file path not supported")
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, ok := d.units[unit.FilePath]; ok {
		panic("duplicated unit for " + unit.FilePath)
	}

	d.units[unit.FilePath] = unit
}

func (d *Delta) Get(path string) *PatchUnit {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return d.units[path]
}

func (d *Delta) List() []*PatchUnit {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	result := lo.Values(d.units)

	sort.Slice(result, func(i, j int) bool {
		return result[i].FilePath < result[j].FilePath
	})

	return result
}

func (d *Delta) Len() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return len(d.units)
}
