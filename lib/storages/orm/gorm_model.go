package orm

import (
	"time"

	"github.com/refactorproject/autorebase/lib/model"
)

type sqlTable interface {
	CacheKey() string
}

type sqlConfig struct {
	Key   string `gorm:"primaryKey"`
	Value string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newSqlConfig(k string, v string) *sqlConfig {
	return &sqlConfig{
		Key:   k,
		Value: v,
	}
}

func (s *sqlConfig) CacheKey() string {
	return s.Key
}

type sqlRun struct {
	ID model.UUID `gorm:"primaryKey"`

	OldBaseRoot string
	NewBaseRoot string
	FeatureRoot string
	ReqMapFile  string
	OutputRoot  string

	StartedAt time.Time

	Summary *sqlRunSummary `gorm:"embedded;embeddedPrefix:summary_"`

	Results []sqlResolutionResult `gorm:"foreignKey:RunID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type sqlRunSummary struct {
	TotalFiles int
	Resolved   int
	Errors     int
	Auto       int
	Semantic   int
	Conflicts  int
}

func newSqlRun(r *model.Run) *sqlRun {
	return &sqlRun{
		ID:          r.ID,
		OldBaseRoot: r.OldBaseRoot,
		NewBaseRoot: r.NewBaseRoot,
		FeatureRoot: r.FeatureRoot,
		ReqMapFile:  r.ReqMapFile,
		OutputRoot:  r.OutputRoot,
		StartedAt:   r.CreatedAt,
		Summary: &sqlRunSummary{
			TotalFiles: r.Summary.TotalFiles,
			Resolved:   r.Summary.Resolved,
			Errors:     r.Summary.Errors,
			Auto:       r.Summary.Auto,
			Semantic:   r.Summary.Semantic,
			Conflicts:  r.Summary.Conflicts,
		},
	}
}

func (s *sqlRun) CacheKey() string {
	return string(s.ID)
}

func (s *sqlRun) ToModel() *model.Run {
	result := &model.Run{
		ID:          s.ID,
		OldBaseRoot: s.OldBaseRoot,
		NewBaseRoot: s.NewBaseRoot,
		FeatureRoot: s.FeatureRoot,
		ReqMapFile:  s.ReqMapFile,
		OutputRoot:  s.OutputRoot,
		CreatedAt:   s.StartedAt,
	}

	if s.Summary != nil {
		result.Summary = model.RunSummary{
			TotalFiles: s.Summary.TotalFiles,
			Resolved:   s.Summary.Resolved,
			Errors:     s.Summary.Errors,
			Auto:       s.Summary.Auto,
			Semantic:   s.Summary.Semantic,
			Conflicts:  s.Summary.Conflicts,
		}
	}

	return result
}

type sqlResolutionResult struct {
	ID    model.UUID `gorm:"primaryKey"`
	RunID model.UUID `gorm:"index"`

	FilePath string
	Status   string
	Method   string

	Confidence  float64
	Conflicts   []model.ConflictRecord `gorm:"serializer:json"`
	ReqIDs      []string               `gorm:"serializer:json"`
	RejectText  string
	Diagnostics []string `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newSqlResolutionResult(runID model.UUID, r *model.ResolutionResult) *sqlResolutionResult {
	return &sqlResolutionResult{
		ID:          r.ID,
		RunID:       runID,
		FilePath:    r.FilePath,
		Status:      string(r.Status),
		Method:      string(r.Method),
		Confidence:  r.Confidence,
		Conflicts:   r.Conflicts,
		ReqIDs:      r.ReqIDs,
		RejectText:  r.RejectText,
		Diagnostics: r.Diagnostics,
	}
}

func (s *sqlResolutionResult) CacheKey() string {
	return string(s.ID)
}

func (s *sqlResolutionResult) ToModel() *model.ResolutionResult {
	return &model.ResolutionResult{
		ID:          s.ID,
		FilePath:    s.FilePath,
		Status:      model.ResolutionStatus(s.Status),
		Method:      model.ResolutionMethod(s.Method),
		Confidence:  s.Confidence,
		Conflicts:   s.Conflicts,
		ReqIDs:      s.ReqIDs,
		RejectText:  s.RejectText,
		Diagnostics: s.Diagnostics,
	}
}

type sqlPatchUnit struct {
	RunID    model.UUID `gorm:"primaryKey"`
	Side     string     `gorm:"primaryKey"`
	FilePath string     `gorm:"primaryKey"`

	Change       string
	PatchContent string
	Binary       bool

	AddedLines   []string `gorm:"serializer:json"`
	RemovedLines []string `gorm:"serializer:json"`
	ReqIDs       []string `gorm:"serializer:json"`
	Requirements []string `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newSqlPatchUnit(runID model.UUID, side string, u *model.PatchUnit) *sqlPatchUnit {
	return &sqlPatchUnit{
		RunID:        runID,
		Side:         side,
		FilePath:     u.FilePath,
		Change:       u.Change.String(),
		PatchContent: u.PatchContent,
		Binary:       u.Binary,
		AddedLines:   u.AddedLines,
		RemovedLines: u.RemovedLines,
		ReqIDs:       u.ReqIDs,
		Requirements: u.Requirements,
	}
}

func (s *sqlPatchUnit) CacheKey() string {
	return string(s.RunID) + "\n" + s.Side + "\n" + s.FilePath
}

func (s *sqlPatchUnit) ToModel() *model.PatchUnit {
	return &model.PatchUnit{
		FilePath:     s.FilePath,
		Change:       decodeChangeType(s.Change),
		PatchContent: s.PatchContent,
		Binary:       s.Binary,
		AddedLines:   s.AddedLines,
		RemovedLines: s.RemovedLines,
		ReqIDs:       s.ReqIDs,
		Requirements: s.Requirements,
	}
}

func decodeChangeType(v string) model.ChangeType {
	switch v {
	case "added":
		return model.FileAdded
	case "removed":
		return model.FileRemoved
	default:
		return model.FileModified
	}
}
