package service

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/smysle/huzz-rng/internal/database/models"
	"github.com/smysle/huzz-rng/internal/database/repository"
	"github.com/smysle/huzz-rng/pkg/logger"
)

// BackupService 兑换码表备份服务
type BackupService struct {
	codeRepo  *repository.CodeRepository
	backupDir string
	maxCount  int
}

// BackupData 备份数据结构
type BackupData struct {
	Version   string        `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Codes     []models.Code `json:"codes"`
}

// BackupResult 备份结果
type BackupResult struct {
	Filename   string
	FilePath   string
	Size       int64
	Duration   time.Duration
	Records    int
	Compressed bool
}

// NewBackupService 创建备份服务
func NewBackupService(codeRepo *repository.CodeRepository, backupDir string, maxCount int) *BackupService {
	if backupDir == "" {
		backupDir = "./backups"
	}
	return &BackupService{
		codeRepo:  codeRepo,
		backupDir: backupDir,
		maxCount:  maxCount,
	}
}

// Backup 执行备份
func (s *BackupService) Backup(compress bool) (*BackupResult, error) {
	startTime := time.Now()

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("创建备份目录失败: %w", err)
	}

	codes, err := s.codeRepo.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("读取兑换码失败: %w", err)
	}

	data := BackupData{
		Version:   "1.0",
		CreatedAt: startTime,
		Codes:     codes,
	}

	// 生成文件名
	timestamp := startTime.Format("20060102_150405.000000")
	filename := fmt.Sprintf("backup_%s.json", timestamp)
	if compress {
		filename += ".gz"
	}
	filePath := filepath.Join(s.backupDir, filename)

	// 序列化
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化失败: %w", err)
	}

	// 写入文件
	var fileSize int64
	if compress {
		fileSize, err = writeCompressed(filePath, jsonData)
	} else {
		fileSize, err = writeRaw(filePath, jsonData)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("file", filename).
		Int64("size", fileSize).
		Int("records", len(codes)).
		Msg("兑换码备份完成")

	return &BackupResult{
		Filename:   filename,
		FilePath:   filePath,
		Size:       fileSize,
		Duration:   time.Since(startTime),
		Records:    len(codes),
		Compressed: compress,
	}, nil
}

// writeRaw 写入原始 JSON
func writeRaw(path string, data []byte) (int64, error) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("写入文件失败: %w", err)
	}
	return int64(len(data)), nil
}

// writeCompressed 写入压缩文件
func writeCompressed(path string, data []byte) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("创建文件失败: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		return 0, fmt.Errorf("压缩写入失败: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("压缩写入失败: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Restore 从备份恢复，已存在的兑换码保持不变，返回恢复数量
func (s *BackupService) Restore(filePath string) (int, error) {
	var data []byte
	var err error

	if filepath.Ext(filePath) == ".gz" {
		data, err = readCompressed(filePath)
	} else {
		data, err = os.ReadFile(filePath)
	}
	if err != nil {
		return 0, fmt.Errorf("读取备份文件失败: %w", err)
	}

	var backupData BackupData
	if err := json.Unmarshal(data, &backupData); err != nil {
		return 0, fmt.Errorf("解析备份数据失败: %w", err)
	}

	restored, err := s.codeRepo.Restore(backupData.Codes)
	if err != nil {
		return 0, fmt.Errorf("恢复兑换码失败: %w", err)
	}

	logger.Info().
		Int("codes", len(backupData.Codes)).
		Int("restored", restored).
		Msg("兑换码恢复完成")

	return restored, nil
}

// readCompressed 读取压缩文件
func readCompressed(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// BackupInfo 备份信息
type BackupInfo struct {
	Filename  string
	Size      int64
	CreatedAt time.Time
}

// ListBackups 列出所有备份（新的在前）
func (s *BackupService) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "backup_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	// 文件名带时间戳，按名称倒序即按时间倒序
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Filename > backups[j].Filename
	})

	return backups, nil
}

// PruneBackups 只保留最新的 maxCount 个备份，返回删除数量
func (s *BackupService) PruneBackups() (int, error) {
	if s.maxCount <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := s.maxCount; i < len(backups); i++ {
		filePath := filepath.Join(s.backupDir, backups[i].Filename)
		if err := os.Remove(filePath); err != nil {
			logger.Warn().Err(err).Str("file", backups[i].Filename).Msg("删除旧备份失败")
			continue
		}
		deleted++
		logger.Debug().Str("file", backups[i].Filename).Msg("已删除旧备份")
	}

	return deleted, nil
}
