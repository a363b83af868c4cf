// Package logger 日志模块
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger 未调用 Init 前不输出任何内容
var Logger = zerolog.Nop()

// Init 初始化日志，dir 为空时只输出到控制台
func Init(debug bool, dir string) {
	// 控制台输出（stderr，避免污染命令行的标准输出）
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    false,
	}

	// 多输出：控制台 + 文件
	var writers []io.Writer
	writers = append(writers, consoleWriter)

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err == nil {
			logFile, err := os.OpenFile(
				filepath.Join(dir, "huzz.log"),
				os.O_APPEND|os.O_CREATE|os.O_WRONLY,
				0644,
			)
			if err == nil {
				writers = append(writers, logFile)
			}
		}
	}

	multi := zerolog.MultiLevelWriter(writers...)

	// 设置日志级别
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	Logger = zerolog.New(multi).With().Timestamp().Caller().Logger()
	log.Logger = Logger
}

// Debug 调试日志
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 信息日志
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 警告日志
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 错误日志
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 致命错误日志
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
