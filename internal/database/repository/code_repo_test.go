package repository

import (
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database"
	"github.com/smysle/huzz-rng/internal/database/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newTestRepo(t *testing.T) *CodeRepository {
	t.Helper()
	return NewCodeRepository(newTestDB(t))
}

func testMeta(code string) models.CodeMetadata {
	return models.CodeMetadata{Generator: "test", Version: "0.0.1", Signature: "sig-" + code}
}

func mustInsert(t *testing.T, r *CodeRepository, code, category string) *models.Code {
	t.Helper()
	rec, err := r.Insert(code, category, testMeta(code))
	if err != nil {
		t.Fatalf("Insert(%q) error = %v", code, err)
	}
	return rec
}

func TestCodeRepository_Insert(t *testing.T) {
	r := newTestRepo(t)
	fixed := time.Date(2026, 1, 16, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	rec := mustInsert(t, r, "ABCD1234", "warzone")

	if rec.ID == 0 {
		t.Error("插入后应该分配 id")
	}
	if !rec.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, fixed)
	}
	if rec.Used || rec.UsedAt != nil {
		t.Error("新建兑换码不应该是已使用状态")
	}

	got, err := r.GetByCode("ABCD1234")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if got.Category != "warzone" {
		t.Errorf("Category = %q, want warzone", got.Category)
	}
	if meta := got.Meta(); meta.Signature != "sig-ABCD1234" || meta.Generator != "test" {
		t.Errorf("Metadata = %+v", meta)
	}
}

func TestCodeRepository_InsertConflict(t *testing.T) {
	r := newTestRepo(t)
	mustInsert(t, r, "DUP1", "general")

	_, err := r.Insert("DUP1", "other", testMeta("DUP1"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("重复插入应该返回 ConflictError，实际是 %v", err)
	}
	if conflict.Code != "DUP1" {
		t.Errorf("ConflictError.Code = %q", conflict.Code)
	}

	// 已使用的兑换码同样占用
	if _, err := r.MarkUsed("DUP1"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Insert("DUP1", "other", testMeta("DUP1")); !errors.As(err, &conflict) {
		t.Errorf("已使用兑换码重复插入应该返回 ConflictError，实际是 %v", err)
	}
}

func TestCodeRepository_Exists(t *testing.T) {
	r := newTestRepo(t)
	mustInsert(t, r, "EXIST", "general")

	tests := []struct {
		code string
		want bool
	}{
		{"EXIST", true},
		{"exist", false},
		{"MISSING", false},
	}
	for _, tt := range tests {
		got, err := r.Exists(tt.code)
		if err != nil {
			t.Fatalf("Exists(%q) error = %v", tt.code, err)
		}
		if got != tt.want {
			t.Errorf("Exists(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestCodeRepository_MarkUsedTwice(t *testing.T) {
	r := newTestRepo(t)
	mustInsert(t, r, "USE-ME", "general")

	first, err := r.MarkUsed("USE-ME")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.MarkUsed("USE-ME")
	if err != nil {
		t.Fatal(err)
	}
	if !first || second {
		t.Errorf("MarkUsed 两次 = %v, %v, want true, false", first, second)
	}

	got, _ := r.GetByCode("USE-ME")
	if !got.Used || got.UsedAt == nil {
		t.Errorf("used = %v, used_at = %v", got.Used, got.UsedAt)
	}

	unknown, err := r.MarkUsed("NOPE")
	if err != nil || unknown {
		t.Errorf("MarkUsed(未知) = %v, %v", unknown, err)
	}
}

func TestCodeRepository_DeleteMissing(t *testing.T) {
	r := newTestRepo(t)
	mustInsert(t, r, "KEEP", "general")

	removed, err := r.Delete("nonexistent-code")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("删除不存在的兑换码应该返回 false")
	}

	all, _ := r.List(true)
	if len(all) != 1 || all[0].Code != "KEEP" {
		t.Errorf("表内容不应改变: %+v", all)
	}

	removed, err = r.Delete("KEEP")
	if err != nil || !removed {
		t.Errorf("Delete(KEEP) = %v, %v", removed, err)
	}
	if exists, _ := r.Exists("KEEP"); exists {
		t.Error("删除后兑换码不应存在")
	}
}

func TestCodeRepository_ListFiltering(t *testing.T) {
	r := newTestRepo(t)
	mustInsert(t, r, "A", "amongus")
	mustInsert(t, r, "B", "valorant")
	if ok, _ := r.MarkUsed("B"); !ok {
		t.Fatal("MarkUsed(B) 失败")
	}

	unused, err := r.List(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(unused) != 1 || unused[0].Code != "A" {
		t.Errorf("List(false) = %+v, want [A]", unused)
	}

	all, err := r.List(true)
	if err != nil {
		t.Fatal(err)
	}
	want := []CodeInfo{
		{Code: "B", Category: "valorant", Used: true},
		{Code: "A", Category: "amongus", Used: false},
	}
	if len(all) != len(want) {
		t.Fatalf("List(true) = %+v", all)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("List(true)[%d] = %+v, want %+v", i, all[i], want[i])
		}
	}
}

func TestCodeRepository_DeleteAll(t *testing.T) {
	r := newTestRepo(t)

	// 空表也应成功
	if _, err := r.DeleteAll(); err != nil {
		t.Fatalf("空表 DeleteAll() error = %v", err)
	}

	mustInsert(t, r, "X1", "general")
	mustInsert(t, r, "X2", "general")

	n, err := r.DeleteAll()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("DeleteAll() 删除 %d 条，want 2", n)
	}

	all, _ := r.List(true)
	if len(all) != 0 {
		t.Errorf("DeleteAll 后仍有 %d 条记录", len(all))
	}
}

func TestCodeRepository_IDsNotReused(t *testing.T) {
	r := newTestRepo(t)
	mustInsert(t, r, "FIRST", "general")
	second := mustInsert(t, r, "SECOND", "general")

	if _, err := r.Delete("SECOND"); err != nil {
		t.Fatal(err)
	}
	third := mustInsert(t, r, "THIRD", "general")

	if third.ID <= second.ID {
		t.Errorf("id 被复用: second=%d third=%d", second.ID, third.ID)
	}
}

func TestCodeRepository_CountStats(t *testing.T) {
	r := newTestRepo(t)
	mustInsert(t, r, "S1", "amongus")
	mustInsert(t, r, "S2", "amongus")
	mustInsert(t, r, "S3", "warzone")
	r.MarkUsed("S2")

	stats, err := r.CountStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.Used != 1 || stats.Unused != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByCategory["amongus"] != 1 || stats.ByCategory["warzone"] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
}

func TestCodeRepository_Restore(t *testing.T) {
	src := newTestRepo(t)
	mustInsert(t, src, "R1", "general")
	mustInsert(t, src, "R2", "fortnite")
	src.MarkUsed("R2")

	records, err := src.ListRecords()
	if err != nil {
		t.Fatal(err)
	}

	dst := newTestRepo(t)
	mustInsert(t, dst, "R1", "general")

	n, err := dst.Restore(records)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Restore() 写入 %d 条，want 1", n)
	}

	got, err := dst.GetByCode("R2")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Used || got.UsedAt == nil || got.Category != "fortnite" {
		t.Errorf("恢复的记录不正确: %+v", got)
	}
}

func TestCodeRepository_RestoreKeepsListOrder(t *testing.T) {
	r := newTestRepo(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	current := mustInsert(t, r, "CURRENT", "general")

	// 备份里的旧记录 id 与现有记录冲突，会被分配更大的 id
	shanghai := time.FixedZone("CST", 8*3600)
	old := models.Code{
		ID:        current.ID,
		Code:      "OLD",
		Category:  "general",
		CreatedAt: base.Add(-time.Hour).In(shanghai),
		Metadata:  datatypes.NewJSONType(testMeta("OLD")),
	}
	if n, err := r.Restore([]models.Code{old}); err != nil || n != 1 {
		t.Fatalf("Restore() = %d, %v", n, err)
	}

	restored, err := r.GetByCode("OLD")
	if err != nil {
		t.Fatal(err)
	}
	if restored.ID <= current.ID {
		t.Fatalf("被占用的 id 应重新分配: old=%d current=%d", restored.ID, current.ID)
	}

	all, err := r.List(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Code != "CURRENT" || all[1].Code != "OLD" {
		t.Errorf("List(true) = %+v, 旧记录应排在后面", all)
	}
}

func TestCodeRepository_GetByCodeMissing(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.GetByCode("missing"); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("GetByCode(missing) error = %v, want ErrCodeNotFound", err)
	}
}
