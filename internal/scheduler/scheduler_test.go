package scheduler

import (
	"context"
	"os"
	"testing"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database"
	"github.com/smysle/huzz-rng/internal/database/repository"
	"github.com/smysle/huzz-rng/internal/service"
)

func newBackupService(t *testing.T, dir string, maxCount int) *service.BackupService {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close(db) })

	repo := repository.NewCodeRepository(db)
	cfg := config.Default()
	g := service.NewGenerator(repo, nil, &cfg.Generator)
	if _, err := g.Generate(context.Background(), service.GenerateRequest{Length: 8, Category: "t", Complexity: service.Numeric}); err != nil {
		t.Fatal(err)
	}
	return service.NewBackupService(repo, dir, maxCount)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SchedulerConfig
	}{
		{"时区", config.SchedulerConfig{Timezone: "Mars/Olympus", BackupAt: "03:00"}},
		{"时间", config.SchedulerConfig{Timezone: "UTC", BackupAt: "25:99"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(&tt.cfg, nil); err == nil {
				t.Error("应该返回错误")
			}
		})
	}
}

func TestScheduler_RegisterJobs(t *testing.T) {
	cfg := config.Default().Scheduler
	backup := newBackupService(t, t.TempDir(), 3)

	s, err := New(&cfg, backup)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.registerJobs(); err != nil {
		t.Fatal(err)
	}
	if s.JobCount() != 0 {
		t.Errorf("未启用备份时不应注册任务，实际 %d 个", s.JobCount())
	}

	cfg.BackupDB = true
	s, err = New(&cfg, backup)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if s.JobCount() != 1 {
		t.Errorf("JobCount = %d, want 1", s.JobCount())
	}
}

func TestScheduler_RunNowBackup(t *testing.T) {
	dir := t.TempDir()
	cfg := config.SchedulerConfig{BackupDB: true, BackupAt: "03:00", Timezone: "UTC"}
	s, err := New(&cfg, newBackupService(t, dir, 2))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := s.RunNow(TaskBackup); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("备份文件数量 = %d, want 2（超出部分应被清理）", len(entries))
	}

	if err := s.RunNow("unknown"); err == nil {
		t.Error("未知任务应该返回错误")
	}
}
