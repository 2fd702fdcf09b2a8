package repository

import (
	"context"
	"time"

	"github.com/hitoshi/userstore/internal/model"
	"github.com/hitoshi/userstore/internal/paging"
)

// Recorder はリポジトリ操作の計測を受け取るインターフェース。
// metricsパッケージのCollectorが実装する。
type Recorder interface {
	RecordQuery(operation string, duration time.Duration, err error)
}

// コンパイル時のインターフェース実装チェック
var _ UserRepository = (*InstrumentedUserRepo)(nil)

// InstrumentedUserRepo はUserRepositoryの各操作を計測するデコレーター。
type InstrumentedUserRepo struct {
	inner    UserRepository
	recorder Recorder
}

// NewInstrumentedUserRepo は計測付きリポジトリを生成する。
func NewInstrumentedUserRepo(inner UserRepository, recorder Recorder) *InstrumentedUserRepo {
	return &InstrumentedUserRepo{inner: inner, recorder: recorder}
}

// record は操作の所要時間と結果を記録する。
func (r *InstrumentedUserRepo) record(operation string, start time.Time, err error) {
	r.recorder.RecordQuery(operation, time.Since(start), err)
}

func (r *InstrumentedUserRepo) List(ctx context.Context, includeDeleted bool) ([]model.User, error) {
	start := time.Now()
	users, err := r.inner.List(ctx, includeDeleted)
	r.record("list", start, err)
	return users, err
}

func (r *InstrumentedUserRepo) FindByID(ctx context.Context, id int64, includeDeleted bool) (*model.User, error) {
	start := time.Now()
	user, err := r.inner.FindByID(ctx, id, includeDeleted)
	r.record("find_by_id", start, err)
	return user, err
}

func (r *InstrumentedUserRepo) Insert(ctx context.Context, user *model.User) (int64, error) {
	start := time.Now()
	id, err := r.inner.Insert(ctx, user)
	r.record("insert", start, err)
	return id, err
}

func (r *InstrumentedUserRepo) Update(ctx context.Context, user *model.User) (int64, error) {
	start := time.Now()
	affected, err := r.inner.Update(ctx, user)
	r.record("update", start, err)
	return affected, err
}

func (r *InstrumentedUserRepo) SoftDelete(ctx context.Context, id int64) error {
	start := time.Now()
	err := r.inner.SoftDelete(ctx, id)
	r.record("soft_delete", start, err)
	return err
}

func (r *InstrumentedUserRepo) Upsert(ctx context.Context, user *model.User) (int64, error) {
	start := time.Now()
	id, err := r.inner.Upsert(ctx, user)
	r.record("upsert", start, err)
	return id, err
}

func (r *InstrumentedUserRepo) Search(ctx context.Context, params SearchParams) (paging.PagedResult[model.User], error) {
	start := time.Now()
	result, err := r.inner.Search(ctx, params)
	r.record("search", start, err)
	return result, err
}

func (r *InstrumentedUserRepo) Stats(ctx context.Context) (model.UserStats, error) {
	start := time.Now()
	stats, err := r.inner.Stats(ctx)
	r.record("stats", start, err)
	return stats, err
}
