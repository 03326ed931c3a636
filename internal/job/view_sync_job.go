package job

import (
	"Inkwell/internal/pkg/logger"
	"Inkwell/internal/repository"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// ViewSyncJob 周期性把 Redis 中的浏览数快照回写到 MySQL
// 兜底热路径上未达到阈值的增量
type ViewSyncJob struct {
	postRepo    repository.PostRepo
	counterRepo repository.CounterRepo
}

func NewViewSyncJob(postRepo repository.PostRepo, counterRepo repository.CounterRepo) *ViewSyncJob {
	return &ViewSyncJob{
		postRepo:    postRepo,
		counterRepo: counterRepo,
	}
}

func (s *ViewSyncJob) Run() {
	traceID := "job-view-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	postIDs, err := s.counterRepo.CollectDirty(ctx)
	if err != nil {
		log.ErrorContext(ctx, "collect dirty view set error", "err", err)
		return
	}
	if len(postIDs) == 0 {
		return
	}

	synced := 0
	for _, pid := range postIDs {
		count, err := s.counterRepo.GetPostView(ctx, pid)
		if err != nil {
			log.ErrorContext(ctx, "get post view count error", "pid", pid, "err", err)
			continue
		}
		if count == 0 {
			continue
		}

		if err := s.postRepo.UpdateViewCount(ctx, pid, count); err != nil {
			log.ErrorContext(ctx, "update post view count error", "pid", pid, "err", err)
			continue
		}
		synced++
	}

	log.InfoContext(ctx, "sync post views success",
		"dirty_count", len(postIDs),
		"synced_count", synced)
}
