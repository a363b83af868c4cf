package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smysle/huzz-rng/internal/service"
)

// writeTestConfig 生成一个指向临时目录的配置文件
func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := map[string]any{
		"database": map[string]any{
			"driver":     "sqlite",
			"path":       filepath.Join(dir, "codes.db"),
			"backup_dir": filepath.Join(dir, "backups"),
		},
		"export": map[string]any{"dir": filepath.Join(dir, "exports")},
		"log":    map[string]any{"dir": filepath.Join(dir, "log")},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_Lifecycle(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := run(t, cfgPath, "generate", "--preset", "amongus", "-n", "3")
	if err != nil {
		t.Fatalf("generate error = %v", err)
	}
	codes := strings.Fields(out)
	if len(codes) != 3 {
		t.Fatalf("应输出 3 个兑换码，实际 %q", out)
	}
	for _, code := range codes {
		if len(code) != 8 {
			t.Errorf("兑换码 %q 长度不是 8", code)
		}
	}

	if _, err := run(t, cfgPath, "use", codes[0]); err != nil {
		t.Fatalf("use error = %v", err)
	}
	if _, err := run(t, cfgPath, "use", codes[0]); err == nil {
		t.Error("重复使用应该返回错误")
	}

	out, err = run(t, cfgPath, "list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, codes[0]) {
		t.Error("已使用的兑换码不应出现在默认列表中")
	}
	out, err = run(t, cfgPath, "list", "--all")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, codes[0]) {
		t.Error("--all 应包含已使用的兑换码")
	}

	out, err = run(t, cfgPath, "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "总数: 3") || !strings.Contains(out, "已使用: 1") {
		t.Errorf("stats 输出 = %q", out)
	}

	if _, err := run(t, cfgPath, "clear"); !errors.Is(err, service.ErrConfirmationRequired) {
		t.Fatalf("clear 未确认 error = %v", err)
	}
	out, err = run(t, cfgPath, "clear", "--yes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "已删除 3 个兑换码") {
		t.Errorf("clear 输出 = %q", out)
	}
}

func TestCLI_GenerateInvalid(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	for _, args := range [][]string{
		{"generate", "-l", "3"},
		{"generate", "-l", "51"},
		{"generate", "-x", "ultra"},
		{"generate", "-p", "tetris"},
		{"generate", "-n", "0"},
	} {
		if _, err := run(t, cfgPath, args...); !errors.Is(err, service.ErrInvalidParameter) {
			t.Errorf("%v error = %v, want ErrInvalidParameter", args, err)
		}
	}
}

func TestCLI_Delete(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := run(t, cfgPath, "generate", "-l", "6", "-x", "numeric", "--category", "")
	if err != nil {
		t.Fatal(err)
	}
	code := strings.TrimSpace(out)

	if _, err := run(t, cfgPath, "delete", code); !errors.Is(err, service.ErrConfirmationRequired) {
		t.Fatalf("delete 未确认 error = %v", err)
	}
	if _, err := run(t, cfgPath, "delete", "--yes", code); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if _, err := run(t, cfgPath, "delete", "--yes", code); err == nil {
		t.Error("删除不存在的兑换码应该返回错误")
	}
}

func TestCLI_ExportAndBackup(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)

	if _, err := run(t, cfgPath, "generate", "-n", "2"); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(dir, "out", "codes.xlsx")
	out, err := run(t, cfgPath, "export", target)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if strings.TrimSpace(out) != target {
		t.Errorf("export 输出 = %q", out)
	}

	out, err = run(t, cfgPath, "export", "--format", "pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), filepath.Join(dir, "exports")) {
		t.Errorf("默认导出路径 = %q", out)
	}

	if _, err := run(t, cfgPath, "export", filepath.Join(dir, "codes.docx")); err == nil {
		t.Error("未知格式应该返回错误")
	}

	out, err = run(t, cfgPath, "backup")
	if err != nil {
		t.Fatalf("backup error = %v", err)
	}
	backupFile := strings.Fields(out)[0]

	if _, err := run(t, cfgPath, "clear", "--yes"); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, cfgPath, "restore", backupFile)
	if err != nil {
		t.Fatalf("restore error = %v", err)
	}
	if !strings.Contains(out, "已恢复 2 个兑换码") {
		t.Errorf("restore 输出 = %q", out)
	}
}

func TestCLI_ConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if _, err := run(t, path, "config", "init"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, path, "config", "init"); err == nil {
		t.Error("配置已存在时应该返回错误")
	}
	if _, err := run(t, path, "config", "init", "--force"); err != nil {
		t.Error(err)
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name, path string
		want       string
		wantErr    bool
	}{
		{"", "", "csv", false},
		{"pdf", "codes.csv", "pdf", false},
		{"", "a/codes.png", "png", false},
		{"", "codes", "", true},
		{"doc", "", "", true},
	}
	for _, tt := range tests {
		got, err := resolveFormat(tt.name, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveFormat(%q, %q) error = %v", tt.name, tt.path, err)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("resolveFormat(%q, %q) = %q, want %q", tt.name, tt.path, got, tt.want)
		}
	}
}
