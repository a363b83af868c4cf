// Package utils 工具函数
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// RandomString 从 charset 中有放回地均匀抽取 length 个字符
func RandomString(charset string, length int) (string, error) {
	if charset == "" {
		return "", errors.New("字符集不能为空")
	}
	size := big.NewInt(int64(len(charset)))
	result := make([]byte, length)
	for i := range result {
		num, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// SHA256Hex 计算字符串的 sha256 十六进制摘要
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FormatTime 格式化时间，nil 返回空字符串
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatSize 格式化文件大小
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
