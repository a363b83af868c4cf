// Package scheduler 定时任务调度
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/service"
	"github.com/smysle/huzz-rng/pkg/logger"
)

// 任务名称
const (
	TaskBackup = "backup"
)

// Scheduler 定时任务调度器
type Scheduler struct {
	cron   *gocron.Scheduler
	cfg    *config.SchedulerConfig
	backup *service.BackupService
}

// New 创建调度器
func New(cfg *config.SchedulerConfig, backup *service.BackupService) (*Scheduler, error) {
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	if _, err := time.Parse("15:04", cfg.BackupAt); err != nil {
		return nil, fmt.Errorf("备份时间格式应为 HH:MM: %q", cfg.BackupAt)
	}

	s := gocron.NewScheduler(loc)
	s.SetMaxConcurrentJobs(1, gocron.RescheduleMode)

	return &Scheduler{
		cron:   s,
		cfg:    cfg,
		backup: backup,
	}, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", name, err)
	}
	return loc, nil
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	logger.Info().Msg("启动定时任务调度器")

	if err := s.registerJobs(); err != nil {
		return err
	}

	s.cron.StartAsync()
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	logger.Info().Msg("停止定时任务调度器")
	s.cron.Stop()
}

// JobCount 已注册的任务数量
func (s *Scheduler) JobCount() int {
	return len(s.cron.Jobs())
}

// registerJobs 注册所有定时任务
func (s *Scheduler) registerJobs() error {
	if s.cfg.BackupDB && s.backup != nil {
		if _, err := s.cron.Every(1).Day().At(s.cfg.BackupAt).Tag(TaskBackup).Do(s.backupDatabase); err != nil {
			return fmt.Errorf("注册备份任务失败: %w", err)
		}
		logger.Info().Str("at", s.cfg.BackupAt).Msg("已注册: 兑换码备份任务")
	}
	return nil
}

// backupDatabase 备份兑换码并清理旧备份
func (s *Scheduler) backupDatabase() {
	logger.Info().Msg("执行定时任务: 兑换码备份")

	result, err := s.backup.Backup(true)
	if err != nil {
		logger.Error().Err(err).Msg("定时备份失败")
		return
	}

	logger.Info().
		Str("file", result.Filename).
		Int64("size", result.Size).
		Int("records", result.Records).
		Msg("定时备份完成")

	deleted, err := s.backup.PruneBackups()
	if err != nil {
		logger.Warn().Err(err).Msg("清理旧备份失败")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("已清理旧备份")
	}
}

// RunNow 立即执行指定任务
func (s *Scheduler) RunNow(taskName string) error {
	switch taskName {
	case TaskBackup:
		if s.backup == nil {
			return fmt.Errorf("备份服务未配置")
		}
		s.backupDatabase()
	default:
		return fmt.Errorf("未知任务: %s", taskName)
	}
	return nil
}
