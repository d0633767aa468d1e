package audit

import (
	"context"
	"time"

	"github.com/permbase/pkg/logger"
	"go.uber.org/zap"
)

// RetentionJob 定时清理任务，按固定间隔删除超过保留期的日志。
// Stop 会取消进行中的分批删除并等待任务退出
type RetentionJob struct {
	repo          Repository
	retentionDays int
	interval      time.Duration
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewRetentionJob 创建定时清理任务
func NewRetentionJob(repo Repository, retentionDays int, interval time.Duration) *RetentionJob {
	return &RetentionJob{
		repo:          repo,
		retentionDays: retentionDays,
		interval:      interval,
	}
}

// Start 启动后台任务
func (j *RetentionJob) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})

	go j.run(ctx)
	logger.Info("审计日志定时清理已启动",
		zap.Int("retentionDays", j.retentionDays),
		zap.Duration("interval", j.interval),
	)
}

// Stop 停止后台任务
func (j *RetentionJob) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	logger.Info("审计日志定时清理已停止")
}

// run 任务主循环
func (j *RetentionJob) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
			deleted, err := j.repo.Purge(ctx, cutoff)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("审计日志定时清理失败", zap.Error(err))
				continue
			}
			if deleted > 0 {
				logger.Info("审计日志定时清理完成", zap.Int64("deletedCount", deleted))
			}
		case <-ctx.Done():
			return
		}
	}
}
