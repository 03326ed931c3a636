package repository

import (
	"Inkwell/internal/pkg/consts"
	"Inkwell/internal/pkg/redis"
	"Inkwell/internal/pkg/util"
	"context"
	"fmt"
	"strconv"
)

// CounterRepo 浏览计数的热路径存储，基于 Redis
type CounterRepo interface {
	// IncrPostView 自增浏览数并将文章标脏，返回自增后的值
	IncrPostView(ctx context.Context, postID uint64) (int64, error)
	// GetPostView 读取当前浏览数，键不存在时返回 0
	GetPostView(ctx context.Context, postID uint64) (int64, error)
	// CollectDirty 原子接管脏集合并清空，返回待回写的文章 id
	CollectDirty(ctx context.Context) ([]uint64, error)
}

type CounterRepoImpl struct{}

func NewCounterRepo() CounterRepo {
	return &CounterRepoImpl{}
}

func (s *CounterRepoImpl) IncrPostView(ctx context.Context, postID uint64) (int64, error) {
	rdb := redis.GetRdbClient()

	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, consts.PostViewKey+strconv.FormatUint(postID, 10))
	pipe.SAdd(ctx, consts.PostViewDirtyKey, postID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return incr.Val(), nil
}

func (s *CounterRepoImpl) GetPostView(ctx context.Context, postID uint64) (int64, error) {
	value, err := redis.GetValue(ctx, consts.PostViewKey+strconv.FormatUint(postID, 10))
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	return strconv.ParseInt(value, 10, 64)
}

func (s *CounterRepoImpl) CollectDirty(ctx context.Context) ([]uint64, error) {
	processingKey := consts.PostViewDirtyKey + ":processing"

	// RENAME 不存在的键会报错，视为本轮没有脏数据
	if err := redis.Rename(ctx, consts.PostViewDirtyKey, processingKey); err != nil {
		return nil, nil
	}

	members, err := redis.GetSet(ctx, processingKey)
	if err != nil {
		return nil, fmt.Errorf("读取脏集合失败: %w", err)
	}
	if err := redis.DeleteKey(ctx, processingKey); err != nil {
		return nil, fmt.Errorf("清理脏集合失败: %w", err)
	}

	return util.StrSliceToUInt64Slice(members)
}
