// Package config 配置管理模块
package config

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	AppName string `json:"app_name" mapstructure:"app_name"`

	Database  DatabaseConfig  `json:"database" mapstructure:"database"`
	Generator GeneratorConfig `json:"generator" mapstructure:"generator"`
	Presets   []PresetConfig  `json:"presets" mapstructure:"presets"`
	Notify    NotifyConfig    `json:"notify" mapstructure:"notify"`
	Export    ExportConfig    `json:"export" mapstructure:"export"`
	Scheduler SchedulerConfig `json:"scheduler" mapstructure:"scheduler"`
	API       APIConfig       `json:"api" mapstructure:"api"`
	Log       LogConfig       `json:"log" mapstructure:"log"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver         string `json:"driver" mapstructure:"driver"` // sqlite / mysql
	Path           string `json:"path" mapstructure:"path"`     // sqlite 文件路径
	Host           string `json:"host" mapstructure:"host"`
	Port           int    `json:"port" mapstructure:"port"`
	User           string `json:"user" mapstructure:"user"`
	Password       string `json:"password" mapstructure:"password"`
	Name           string `json:"name" mapstructure:"name"`
	BackupDir      string `json:"backup_dir" mapstructure:"backup_dir"`
	BackupMaxCount int    `json:"backup_max_count" mapstructure:"backup_max_count"`
}

// GeneratorConfig 生成器配置
type GeneratorConfig struct {
	Name              string `json:"name" mapstructure:"name"`
	Version           string `json:"version" mapstructure:"version"` // 为空时使用内置版本
	DefaultLength     int    `json:"default_length" mapstructure:"default_length"`
	DefaultComplexity string `json:"default_complexity" mapstructure:"default_complexity"`
	DefaultCategory   string `json:"default_category" mapstructure:"default_category"`
	MaxAttempts       int    `json:"max_attempts" mapstructure:"max_attempts"` // 单个兑换码的最大重试次数
	MaxBatch          int    `json:"max_batch" mapstructure:"max_batch"`
}

// PresetConfig 预设
type PresetConfig struct {
	Name       string `json:"name" mapstructure:"name"`
	Length     int    `json:"length" mapstructure:"length"`
	Complexity string `json:"complexity" mapstructure:"complexity"`
	Category   string `json:"category" mapstructure:"category"`
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	TimeoutSeconds int            `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	Discord        DiscordConfig  `json:"discord" mapstructure:"discord"`
	Telegram       TelegramConfig `json:"telegram" mapstructure:"telegram"`
}

// DiscordConfig Webhook 通知配置
type DiscordConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	WebhookURL string `json:"webhook_url" mapstructure:"webhook_url"`
	Message    string `json:"message" mapstructure:"message"` // 支持 {code} {category}
}

// TelegramConfig Telegram 通知配置
type TelegramConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	BotToken string `json:"bot_token" mapstructure:"bot_token"`
	ChatID   int64  `json:"chat_id" mapstructure:"chat_id"`
	APIURL   string `json:"api_url" mapstructure:"api_url"`
	Message  string `json:"message" mapstructure:"message"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	Title string `json:"title" mapstructure:"title"`
	Dir   string `json:"dir" mapstructure:"dir"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	BackupDB bool   `json:"backup_db" mapstructure:"backup_db"`
	BackupAt string `json:"backup_at" mapstructure:"backup_at"`
	Timezone string `json:"timezone" mapstructure:"timezone"`
}

// APIConfig Web API 配置
type APIConfig struct {
	Host              string   `json:"host" mapstructure:"host"`
	Port              int      `json:"port" mapstructure:"port"`
	AllowOrigins      []string `json:"allow_origins" mapstructure:"allow_origins"`
	ConfirmTTLSeconds int      `json:"confirm_ttl_seconds" mapstructure:"confirm_ttl_seconds"`
}

// LogConfig 日志配置
type LogConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// DefaultPresets 内置预设
var DefaultPresets = []PresetConfig{
	{Name: "general", Length: 12, Complexity: "full", Category: "general"},
	{Name: "warzone", Length: 12, Complexity: "upper", Category: "warzone"},
	{Name: "fortnite", Length: 10, Complexity: "full", Category: "fortnite"},
	{Name: "minecraft", Length: 16, Complexity: "full", Category: "minecraft"},
	{Name: "valorant", Length: 15, Complexity: "upper", Category: "valorant"},
	{Name: "amongus", Length: 8, Complexity: "numeric", Category: "amongus"},
}

// Load 加载配置文件，文件不存在时使用默认值，环境变量 HUZZ_* 可覆盖文件中的值
func Load(path string) (*Config, error) {
	// .env 不存在不算错误
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("HUZZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// 设置默认值
	config.setDefaults()

	return &config, nil
}

// bindEnvKeys AutomaticEnv 只对已知的键生效，这里把常用键提前注册
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"database.driver", "database.path", "database.host", "database.port",
		"database.user", "database.password", "database.name",
		"notify.discord.enabled", "notify.discord.webhook_url",
		"notify.telegram.enabled", "notify.telegram.bot_token", "notify.telegram.chat_id",
		"api.host", "api.port",
	} {
		_ = v.BindEnv(key)
	}
}

// Default 返回全部使用默认值的配置
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.AppName == "" {
		c.AppName = "Stivion Huzz RNG"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "huzz_rng_codes.db"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.BackupDir == "" {
		c.Database.BackupDir = "./backups"
	}
	if c.Database.BackupMaxCount == 0 {
		c.Database.BackupMaxCount = 7
	}
	if c.Generator.Name == "" {
		c.Generator.Name = "Stivion Huzz RNG Pro"
	}
	if c.Generator.DefaultLength == 0 {
		c.Generator.DefaultLength = 12
	}
	if c.Generator.DefaultComplexity == "" {
		c.Generator.DefaultComplexity = "full"
	}
	if c.Generator.DefaultCategory == "" {
		c.Generator.DefaultCategory = "general"
	}
	if c.Generator.MaxAttempts == 0 {
		c.Generator.MaxAttempts = 1 << 20
	}
	if c.Generator.MaxBatch == 0 {
		c.Generator.MaxBatch = 100
	}
	if len(c.Presets) == 0 {
		c.Presets = append([]PresetConfig(nil), DefaultPresets...)
	}
	if c.Notify.TimeoutSeconds == 0 {
		c.Notify.TimeoutSeconds = 10
	}
	if c.Notify.Discord.Message == "" {
		c.Notify.Discord.Message = "新兑换码已生成: `{code}` ({category})"
	}
	if c.Notify.Telegram.Message == "" {
		c.Notify.Telegram.Message = "新兑换码已生成: {code} ({category})"
	}
	if c.Export.Title == "" {
		c.Export.Title = "Generated Codes - Stivion Huzz RNG" // PDF 内置字体只支持 Latin-1
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "."
	}
	if c.Scheduler.BackupAt == "" {
		c.Scheduler.BackupAt = "03:00"
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Local"
	}
	if c.API.Host == "" {
		c.API.Host = "127.0.0.1"
	}
	if c.API.Port == 0 {
		c.API.Port = 8838
	}
	if len(c.API.AllowOrigins) == 0 {
		c.API.AllowOrigins = []string{"*"}
	}
	if c.API.ConfirmTTLSeconds == 0 {
		c.API.ConfirmTTLSeconds = 60
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "log"
	}
}

// FindPreset 按名称查找预设（不区分大小写）
func (c *Config) FindPreset(name string) (PresetConfig, bool) {
	for _, p := range c.Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return PresetConfig{}, false
}
