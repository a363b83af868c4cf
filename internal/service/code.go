package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database/models"
	"github.com/smysle/huzz-rng/internal/database/repository"
	"github.com/smysle/huzz-rng/pkg/logger"
)

// CodeService 兑换码服务
type CodeService struct {
	codeRepo  *repository.CodeRepository
	generator *Generator
	cfg       *config.Config
}

// NewCodeService 创建兑换码服务
func NewCodeService(codeRepo *repository.CodeRepository, generator *Generator, cfg *config.Config) *CodeService {
	return &CodeService{
		codeRepo:  codeRepo,
		generator: generator,
		cfg:       cfg,
	}
}

// GenerateOptions 生成选项，零值字段使用预设或默认配置
type GenerateOptions struct {
	Preset     string
	Length     int
	Complexity string
	Category   *string
}

// ResolveRequest 合并默认配置、预设和显式参数
func (s *CodeService) ResolveRequest(opts GenerateOptions) (GenerateRequest, error) {
	gen := s.cfg.Generator
	length := gen.DefaultLength
	complexity := gen.DefaultComplexity
	category := gen.DefaultCategory

	if opts.Preset != "" {
		preset, ok := s.cfg.FindPreset(opts.Preset)
		if !ok {
			return GenerateRequest{}, fmt.Errorf("%w: 预设 %q 不存在", ErrInvalidParameter, opts.Preset)
		}
		length = preset.Length
		complexity = preset.Complexity
		category = preset.Category
		if category == "" {
			category = strings.ToLower(preset.Name)
		}
	}

	if opts.Length != 0 {
		length = opts.Length
	}
	if opts.Complexity != "" {
		complexity = opts.Complexity
	}
	if opts.Category != nil {
		category = *opts.Category
	}

	tier, err := ParseComplexity(complexity)
	if err != nil {
		return GenerateRequest{}, err
	}

	req := GenerateRequest{Length: length, Category: category, Complexity: tier}
	if err := req.Validate(); err != nil {
		return GenerateRequest{}, err
	}
	return req, nil
}

// GenerateResult 生成结果
type GenerateResult struct {
	Codes      []*models.Code
	Count      int
	Length     int
	Complexity Complexity
	Category   string
}

// Generate 生成单个兑换码
func (s *CodeService) Generate(ctx context.Context, req GenerateRequest) (*models.Code, error) {
	return s.generator.Generate(ctx, req)
}

// Wait 等待生成器的后台通知发送完成
func (s *CodeService) Wait() {
	s.generator.Wait()
}

// GenerateCodes 批量生成兑换码，中途失败时返回已生成的部分和错误
func (s *CodeService) GenerateCodes(ctx context.Context, req GenerateRequest, count int) (*GenerateResult, error) {
	if count <= 0 || count > s.cfg.Generator.MaxBatch {
		return nil, fmt.Errorf("%w: 生成数量应在 1-%d 之间", ErrInvalidParameter, s.cfg.Generator.MaxBatch)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &GenerateResult{
		Codes:      make([]*models.Code, 0, count),
		Length:     req.Length,
		Complexity: req.Complexity,
		Category:   req.Category,
	}

	for i := 0; i < count; i++ {
		code, err := s.generator.Generate(ctx, req)
		if err != nil {
			logger.Error().Err(err).Int("generated", len(result.Codes)).Int("count", count).Msg("批量生成兑换码中断")
			result.Count = len(result.Codes)
			return result, err
		}
		result.Codes = append(result.Codes, code)
	}
	result.Count = len(result.Codes)

	if count > 1 {
		logger.Info().
			Int("count", count).
			Str("category", req.Category).
			Msg("成功批量生成兑换码")
	}

	return result, nil
}

// UseCode 标记兑换码已使用，已使用或不存在时返回 false
func (s *CodeService) UseCode(code string) (bool, error) {
	ok, err := s.codeRepo.MarkUsed(code)
	if err != nil {
		logger.Error().Err(err).Str("code", code).Msg("标记兑换码失败")
		return false, fmt.Errorf("标记兑换码失败: %w", err)
	}
	if ok {
		logger.Info().Str("code", code).Msg("兑换码已标记为使用")
	}
	return ok, nil
}

// GetCode 获取兑换码详情
func (s *CodeService) GetCode(code string) (*models.Code, error) {
	return s.codeRepo.GetByCode(code)
}

// DeleteCodes 删除指定兑换码，必须由调用方确认，返回实际删除数量
func (s *CodeService) DeleteCodes(codes []string, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrConfirmationRequired
	}

	deleted := 0
	for _, code := range codes {
		ok, err := s.codeRepo.Delete(code)
		if err != nil {
			return deleted, fmt.Errorf("删除兑换码 %s 失败: %w", code, err)
		}
		if ok {
			deleted++
		}
	}

	logger.Info().Int("requested", len(codes)).Int("deleted", deleted).Msg("删除兑换码")
	return deleted, nil
}

// ClearCodes 删除全部兑换码，必须由调用方确认
func (s *CodeService) ClearCodes(confirmed bool) (int64, error) {
	if !confirmed {
		return 0, ErrConfirmationRequired
	}

	n, err := s.codeRepo.DeleteAll()
	if err != nil {
		return 0, fmt.Errorf("清空兑换码失败: %w", err)
	}

	logger.Warn().Int64("deleted", n).Msg("已清空全部兑换码")
	return n, nil
}

// ListCodes 列出兑换码（新的在前）
func (s *CodeService) ListCodes(includeUsed bool) ([]repository.CodeInfo, error) {
	return s.codeRepo.List(includeUsed)
}

// GetCodeStats 获取兑换码统计
func (s *CodeService) GetCodeStats() (*repository.CodeStats, error) {
	return s.codeRepo.CountStats()
}
