// Package service 兑换码生成与管理
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/maloquacious/semver"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database/models"
	"github.com/smysle/huzz-rng/internal/database/repository"
	"github.com/smysle/huzz-rng/internal/notify"
	"github.com/smysle/huzz-rng/pkg/logger"
	"github.com/smysle/huzz-rng/pkg/utils"
)

var (
	ErrInvalidParameter     = errors.New("参数无效")
	ErrExhaustedCapacity    = errors.New("无法生成不重复的兑换码")
	ErrInvariantViolation   = errors.New("兑换码唯一性被破坏")
	ErrConfirmationRequired = errors.New("破坏性操作需要确认")
	ErrCodeNotFound         = repository.ErrCodeNotFound
)

// 长度限制
const (
	MinLength = 4
	MaxLength = 50
)

// Complexity 字符复杂度
type Complexity int

const (
	Numeric           Complexity = iota + 1 // 仅数字
	AlphaNumericUpper                       // 大写字母 + 数字
	FullMixed                               // 大小写字母 + 数字 + 符号
)

const (
	digits  = "0123456789"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower   = "abcdefghijklmnopqrstuvwxyz"
	symbols = "!@#$%^&*()"
)

// Charset 复杂度对应的字符集
func (c Complexity) Charset() (string, error) {
	switch c {
	case Numeric:
		return digits, nil
	case AlphaNumericUpper:
		return upper + digits, nil
	case FullMixed:
		return upper + lower + digits + symbols, nil
	default:
		return "", fmt.Errorf("%w: 未知的复杂度 %d", ErrInvalidParameter, int(c))
	}
}

func (c Complexity) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case AlphaNumericUpper:
		return "upper"
	case FullMixed:
		return "full"
	default:
		return fmt.Sprintf("complexity(%d)", int(c))
	}
}

// ParseComplexity 解析复杂度，支持名称和 1/2/3
func ParseComplexity(s string) (Complexity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "numeric", "low":
		return Numeric, nil
	case "2", "upper", "alphanumeric", "medium":
		return AlphaNumericUpper, nil
	case "3", "full", "mixed", "high":
		return FullMixed, nil
	default:
		return 0, fmt.Errorf("%w: 未知的复杂度 %q", ErrInvalidParameter, s)
	}
}

// CodeStore 生成器依赖的存储
type CodeStore interface {
	Exists(code string) (bool, error)
	Insert(code, category string, meta models.CodeMetadata) (*models.Code, error)
}

// GenerateRequest 生成参数
type GenerateRequest struct {
	Length     int
	Category   string
	Complexity Complexity
}

// Validate 校验生成参数
func (r GenerateRequest) Validate() error {
	if r.Length < MinLength || r.Length > MaxLength {
		return fmt.Errorf("%w: 长度必须在 %d-%d 之间，实际为 %d", ErrInvalidParameter, MinLength, MaxLength, r.Length)
	}
	_, err := r.Complexity.Charset()
	return err
}

// Generator 兑换码生成器
type Generator struct {
	store       CodeStore
	notifier    *notify.Multi
	name        string
	version     string
	maxAttempts int

	// 后台通知
	pending sync.WaitGroup
}

// NewGenerator 创建生成器，notifier 可以为 nil
func NewGenerator(store CodeStore, notifier *notify.Multi, cfg *config.GeneratorConfig) *Generator {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1 << 20
	}
	return &Generator{
		store:       store,
		notifier:    notifier,
		name:        cfg.Name,
		version:     versionString(cfg.Version),
		maxAttempts: maxAttempts,
	}
}

// GeneratorVersion 写入兑换码元数据的生成器版本，配置中的 generator.version 优先
var GeneratorVersion = semver.Version{Major: 1}

func versionString(s string) string {
	if s != "" {
		return s
	}
	return GeneratorVersion.String()
}

// Generate 生成一个不重复的兑换码并保存
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*models.Code, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	charset, _ := req.Complexity.Charset()

	code, err := g.uniqueCode(ctx, charset, req.Length)
	if err != nil {
		return nil, err
	}

	meta := models.CodeMetadata{
		Generator: g.name,
		Version:   g.version,
		Signature: utils.SHA256Hex(code),
	}

	record, err := g.store.Insert(code, req.Category, meta)
	if err != nil {
		var conflict *repository.ConflictError
		if errors.As(err, &conflict) {
			logger.Error().Str("code", code).Msg("唯一性检查后仍然插入冲突")
			return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
		}
		return nil, fmt.Errorf("保存兑换码失败: %w", err)
	}

	logger.Info().
		Str("code", record.Code).
		Str("category", record.Category).
		Int("length", req.Length).
		Str("complexity", req.Complexity.String()).
		Msg("成功生成兑换码")

	g.notifyAsync(ctx, record)

	return record, nil
}

// notifyAsync 在后台推送通知，通知慢或失败都不影响生成
func (g *Generator) notifyAsync(ctx context.Context, record *models.Code) {
	if g.notifier == nil || g.notifier.Len() == 0 {
		return
	}

	snapshot := *record
	ctx = context.WithoutCancel(ctx)

	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		g.notifier.Notify(ctx, &snapshot)
	}()
}

// Wait 等待后台通知发送完成，退出前调用
func (g *Generator) Wait() {
	g.pending.Wait()
}

// uniqueCode 随机抽取候选码，直到与已有兑换码不冲突
func (g *Generator) uniqueCode(ctx context.Context, charset string, length int) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate, err := utils.RandomString(charset, length)
		if err != nil {
			return "", fmt.Errorf("生成随机字符串失败: %w", err)
		}

		exists, err := g.store.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("检查兑换码唯一性失败: %w", err)
		}
		if !exists {
			return candidate, nil
		}

		logger.Debug().Str("code", candidate).Int("attempt", attempt).Msg("兑换码冲突，重新生成")
	}

	return "", fmt.Errorf("%w: 尝试 %d 次均冲突 (长度 %d)", ErrExhaustedCapacity, g.maxAttempts, length)
}
