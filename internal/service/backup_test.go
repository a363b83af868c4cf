package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database/repository"
)

func TestBackupService_BackupAndRestore(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(fmt.Sprintf("compress=%v", compress), func(t *testing.T) {
			dir := t.TempDir()
			repo := repository.NewCodeRepository(newTestDB(t))
			cfg := config.Default()
			g := NewGenerator(repo, nil, &cfg.Generator)

			var codes []string
			for i := 0; i < 3; i++ {
				rec, err := g.Generate(context.Background(), GenerateRequest{Length: 10, Category: "backup", Complexity: AlphaNumericUpper})
				if err != nil {
					t.Fatal(err)
				}
				codes = append(codes, rec.Code)
			}
			if _, err := repo.MarkUsed(codes[0]); err != nil {
				t.Fatal(err)
			}

			svc := NewBackupService(repo, dir, 7)
			result, err := svc.Backup(compress)
			if err != nil {
				t.Fatalf("Backup() error = %v", err)
			}
			if result.Records != 3 {
				t.Errorf("Records = %d, want 3", result.Records)
			}
			if compress != strings.HasSuffix(result.Filename, ".gz") {
				t.Errorf("Filename = %s", result.Filename)
			}
			if _, err := os.Stat(result.FilePath); err != nil {
				t.Fatalf("备份文件不存在: %v", err)
			}

			// 恢复到一个新库
			target := repository.NewCodeRepository(newTestDB(t))
			restored, err := NewBackupService(target, dir, 7).Restore(result.FilePath)
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if restored != 3 {
				t.Errorf("restored = %d, want 3", restored)
			}

			used, err := target.GetByCode(codes[0])
			if err != nil {
				t.Fatal(err)
			}
			if !used.Used || used.UsedAt == nil {
				t.Error("恢复后应保留使用状态")
			}
			if used.Meta().Signature == "" {
				t.Error("恢复后应保留元数据")
			}

			// 再次恢复不会重复写入
			again, err := NewBackupService(target, dir, 7).Restore(result.FilePath)
			if err != nil {
				t.Fatal(err)
			}
			if again != 0 {
				t.Errorf("重复恢复数量 = %d, want 0", again)
			}
		})
	}
}

func TestBackupService_RestoreInvalid(t *testing.T) {
	dir := t.TempDir()
	repo := repository.NewCodeRepository(newTestDB(t))
	svc := NewBackupService(repo, dir, 7)

	if _, err := svc.Restore(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("文件不存在应该返回错误")
	}

	bad := filepath.Join(dir, "backup_bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Restore(bad); err == nil {
		t.Error("格式错误应该返回错误")
	}
}

func TestBackupService_ListAndPrune(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"backup_20260101_030000.000000.json.gz",
		"backup_20260102_030000.000000.json.gz",
		"backup_20260103_030000.000000.json.gz",
		"backup_20260104_030000.000000.json",
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// 非备份文件不参与
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	svc := NewBackupService(nil, dir, 2)
	backups, err := svc.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 4 {
		t.Fatalf("备份数量 = %d, want 4", len(backups))
	}
	if backups[0].Filename != names[3] {
		t.Errorf("最新备份 = %s", backups[0].Filename)
	}

	deleted, err := svc.PruneBackups()
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	for _, name := range names[:2] {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s 应该被删除", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("非备份文件不应被删除")
	}
}

func TestBackupService_ListMissingDir(t *testing.T) {
	svc := NewBackupService(nil, filepath.Join(t.TempDir(), "nope"), 2)
	backups, err := svc.ListBackups()
	if err != nil || len(backups) != 0 {
		t.Errorf("目录不存在: backups=%v err=%v", backups, err)
	}
}
