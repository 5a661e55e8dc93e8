package orm

import (
	"log"
	"os"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/refactorproject/autorebase/lib/consoles"
	"github.com/refactorproject/autorebase/lib/model"
	"github.com/refactorproject/autorebase/lib/storages"
)

type gormStorage struct {
	mutex   sync.RWMutex
	db      *gorm.DB
	console consoles.Console

	config *map[string]string

	sqlConfigs map[string]*sqlConfig
	sqlRuns    map[string]*sqlRun
	sqlResults map[string]*sqlResolutionResult
	sqlUnits   map[string]*sqlPatchUnit
}

func NewGormStorage(d gorm.Dialector, console consoles.Console) (storages.Storage, error) {
	l := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(d, &gorm.Config{
		NamingStrategy: &NamingStrategy{},
		Logger:         l,
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&sqlConfig{},
		&sqlRun{},
		&sqlResolutionResult{},
		&sqlPatchUnit{},
	)
	if err != nil {
		return nil, err
	}

	return &gormStorage{
		db:         db,
		console:    console,
		sqlConfigs: map[string]*sqlConfig{},
		sqlRuns:    map[string]*sqlRun{},
		sqlResults: map[string]*sqlResolutionResult{},
		sqlUnits:   map[string]*sqlPatchUnit{},
	}, nil
}

func (s *gormStorage) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}

	return db.Close()
}

func createCache[T sqlTable](rows []T) map[string]T {
	return lo.Associate(rows, func(i T) (string, T) {
		return i.CacheKey(), i
	})
}

func (s *gormStorage) LoadRuns() ([]*model.Run, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var runs []*sqlRun
	err := s.db.Find(&runs).Error
	if err != nil {
		return nil, err
	}

	s.sqlRuns = createCache(runs)

	result := lo.Map(runs, func(r *sqlRun, _ int) *model.Run { return r.ToModel() })
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *gormStorage) LoadRun(id model.UUID) (*model.Run, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var run sqlRun
	err := s.db.Where("id = ?", string(id)).First(&run).Error
	if err != nil {
		return nil, errors.Wrapf(err, "run %v not found", id)
	}

	var results []*sqlResolutionResult
	err = s.db.Where("run_id = ?", string(id)).Find(&results).Error
	if err != nil {
		return nil, err
	}

	result := run.ToModel()
	result.Results = lo.Map(results, func(r *sqlResolutionResult, _ int) *model.ResolutionResult { return r.ToModel() })
	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].FilePath < result.Results[j].FilePath
	})

	return result, nil
}

func (s *gormStorage) WriteRun(run *model.Run) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var sqlRuns []*sqlRun
	sr := newSqlRun(run)
	if prepareChange(&s.sqlRuns, sr) {
		sqlRuns = append(sqlRuns, sr)
	}

	sqlResults := prepareChanges(run.Results,
		func(r *model.ResolutionResult) *sqlResolutionResult { return newSqlResolutionResult(run.ID, r) },
		&s.sqlResults)

	db := s.session()

	if len(sqlRuns) > 0 {
		err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&sqlRuns).Error
		if err != nil {
			return err
		}

		addList(&s.sqlRuns, sqlRuns)
	}

	if len(sqlResults) > 0 {
		err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&sqlResults).Error
		if err != nil {
			return err
		}

		addList(&s.sqlResults, sqlResults)
	}

	return nil
}

func (s *gormStorage) LoadPatchUnits(runID model.UUID, side string) ([]*model.PatchUnit, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var units []*sqlPatchUnit
	err := s.db.Where("run_id = ? and side = ?", string(runID), side).Find(&units).Error
	if err != nil {
		return nil, err
	}

	result := lo.Map(units, func(u *sqlPatchUnit, _ int) *model.PatchUnit { return u.ToModel() })
	sort.Slice(result, func(i, j int) bool {
		return result[i].FilePath < result[j].FilePath
	})

	return result, nil
}

func (s *gormStorage) WritePatchUnits(runID model.UUID, side string, units []*model.PatchUnit) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sqlUnits := prepareChanges(units,
		func(u *model.PatchUnit) *sqlPatchUnit { return newSqlPatchUnit(runID, side, u) },
		&s.sqlUnits)

	if len(sqlUnits) == 0 {
		return nil
	}

	err := s.session().Clauses(clause.OnConflict{UpdateAll: true}).Create(&sqlUnits).Error
	if err != nil {
		return err
	}

	addList(&s.sqlUnits, sqlUnits)

	return nil
}

func (s *gormStorage) LoadConfig() (*map[string]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.config != nil {
		return s.config, nil
	}

	var configs []*sqlConfig
	err := s.db.Find(&configs).Error
	if err != nil {
		return nil, err
	}

	s.sqlConfigs = createCache(configs)

	result := map[string]string{}
	for _, c := range configs {
		result[c.Key] = c.Value
	}

	s.config = &result
	return s.config, nil
}

func (s *gormStorage) WriteConfig(config *map[string]string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.config = config

	var sqlConfigs []*sqlConfig
	for k, v := range *config {
		sc := newSqlConfig(k, v)
		if prepareChange(&s.sqlConfigs, sc) {
			sqlConfigs = append(sqlConfigs, sc)
		}
	}

	if len(sqlConfigs) == 0 {
		return nil
	}

	err := s.session().Clauses(clause.OnConflict{UpdateAll: true}).Create(&sqlConfigs).Error
	if err != nil {
		return err
	}

	addList(&s.sqlConfigs, sqlConfigs)

	return nil
}

func (s *gormStorage) session() *gorm.DB {
	now := time.Now().Local()
	return s.db.Session(&gorm.Session{
		NowFunc:         func() time.Time { return now },
		CreateBatchSize: 300,
	})
}

func addList[T sqlTable](target *map[string]T, toAdd []T) {
	for _, v := range toAdd {
		(*target)[v.CacheKey()] = v
	}
}

func prepareChanges[S sqlTable, M any](models []M, toSql func(M) S, cache *map[string]S) []S {
	var result []S
	for _, m := range models {
		s := toSql(m)
		if prepareChange(cache, s) {
			result = append(result, s)
		}
	}
	return result
}

func prepareChange[T sqlTable](byID *map[string]T, n T) bool {
	o, ok := (*byID)[n.CacheKey()]
	if ok {
		ro := reflect.Indirect(reflect.ValueOf(o))
		rn := reflect.Indirect(reflect.ValueOf(n))

		rn.FieldByName("CreatedAt").Set(ro.FieldByName("CreatedAt"))
		rn.FieldByName("UpdatedAt").Set(ro.FieldByName("UpdatedAt"))
	}

	if reflect.DeepEqual(n, o) {
		return false
	} else {
		(*byID)[n.CacheKey()] = n
		return true
	}
}
