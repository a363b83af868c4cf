package web

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/smysle/huzz-rng/internal/database/models"
	"github.com/smysle/huzz-rng/internal/export"
	"github.com/smysle/huzz-rng/internal/service"
	pkglogger "github.com/smysle/huzz-rng/pkg/logger"
)

// 确认令牌对应的操作
const actionClear = "clear"

func deleteAction(code string) string {
	return "delete:" + code
}

// GenerateBody 生成请求
type GenerateBody struct {
	Preset     string  `json:"preset" validate:"omitempty,max=50"`
	Length     int     `json:"length" validate:"omitempty,min=4,max=50"`
	Complexity string  `json:"complexity" validate:"omitempty,max=20"`
	Category   *string `json:"category" validate:"omitempty,max=100"`
	Count      int     `json:"count" validate:"omitempty,min=1"`
}

// CodeResponse 兑换码详情
type CodeResponse struct {
	Code      string              `json:"code"`
	Category  string              `json:"category"`
	Used      bool                `json:"used"`
	CreatedAt time.Time           `json:"created_at"`
	UsedAt    *time.Time          `json:"used_at,omitempty"`
	Metadata  models.CodeMetadata `json:"metadata"`
}

func toCodeResponse(c *models.Code) CodeResponse {
	return CodeResponse{
		Code:      c.Code,
		Category:  c.Category,
		Used:      c.Used,
		CreatedAt: c.CreatedAt,
		UsedAt:    c.UsedAt,
		Metadata:  c.Meta(),
	}
}

// validationError 校验失败时返回字段和规则
func validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[ve.Field()] = ve.Tag()
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  service.ErrInvalidParameter.Error(),
		"fields": fields,
	})
}

// listCodes 列出兑换码，?all=true 包含已使用
func (s *Server) listCodes(c *fiber.Ctx) error {
	codes, err := s.codes.ListCodes(c.QueryBool("all", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count": len(codes),
		"codes": codes,
	})
}

// getCode 获取兑换码详情
func (s *Server) getCode(c *fiber.Ctx) error {
	code, err := s.codes.GetCode(c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(toCodeResponse(code))
}

// generateCodes 生成兑换码
func (s *Server) generateCodes(c *fiber.Ctx) error {
	var body GenerateBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			pkglogger.Warn().Err(err).Msg("解析生成请求失败")
			return fiber.NewError(fiber.StatusBadRequest, "无效的请求体")
		}
	}
	if err := s.validate.Struct(body); err != nil {
		return validationError(c, err)
	}

	req, err := s.codes.ResolveRequest(service.GenerateOptions{
		Preset:     body.Preset,
		Length:     body.Length,
		Complexity: body.Complexity,
		Category:   body.Category,
	})
	if err != nil {
		return err
	}

	count := body.Count
	if count == 0 {
		count = 1
	}
	result, err := s.codes.GenerateCodes(c.UserContext(), req, count)
	if err != nil {
		if result == nil || len(result.Codes) == 0 {
			return err
		}
		// 中断前生成的兑换码已经保存，随错误一起返回
		pkglogger.Warn().Err(err).Int("generated", result.Count).Int("count", count).Msg("【API服务】批量生成部分成功")
		body := generateResponse(result)
		body["error"] = err.Error()
		return c.Status(errorStatus(err)).JSON(body)
	}

	return c.Status(fiber.StatusCreated).JSON(generateResponse(result))
}

func generateResponse(result *service.GenerateResult) fiber.Map {
	codes := make([]CodeResponse, 0, len(result.Codes))
	for _, code := range result.Codes {
		codes = append(codes, toCodeResponse(code))
	}
	return fiber.Map{
		"count":      result.Count,
		"length":     result.Length,
		"complexity": result.Complexity.String(),
		"category":   result.Category,
		"codes":      codes,
	}
}

// useCode 标记兑换码已使用
func (s *Server) useCode(c *fiber.Ctx) error {
	code := c.Params("code")
	ok, err := s.codes.UseCode(code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"code": code,
		"used": ok,
	})
}

// ConfirmBody 申请确认令牌
type ConfirmBody struct {
	Action string `json:"action" validate:"required,oneof=clear delete"`
	Code   string `json:"code" validate:"required_if=Action delete"`
}

// issueConfirmation 签发一次性确认令牌
func (s *Server) issueConfirmation(c *fiber.Ctx) error {
	var body ConfirmBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "无效的请求体")
	}
	if err := s.validate.Struct(body); err != nil {
		return validationError(c, err)
	}

	action := actionClear
	if body.Action == "delete" {
		action = deleteAction(body.Code)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":      s.confirm.Issue(action),
		"action":     body.Action,
		"expires_in": int(s.confirm.TTL().Seconds()),
	})
}

// deleteCode 删除兑换码，需要 ?confirm=<token>
func (s *Server) deleteCode(c *fiber.Ctx) error {
	code := c.Params("code")
	confirmed := s.confirm.Consume(c.Query("confirm"), deleteAction(code))

	n, err := s.codes.DeleteCodes([]string{code}, confirmed)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"code":    code,
		"deleted": n == 1,
	})
}

// clearCodes 删除全部兑换码，需要 ?confirm=<token>
func (s *Server) clearCodes(c *fiber.Ctx) error {
	confirmed := s.confirm.Consume(c.Query("confirm"), actionClear)

	n, err := s.codes.ClearCodes(confirmed)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"deleted": n,
	})
}

// exportCodes 导出全部兑换码，PNG 支持 ?page=N
func (s *Server) exportCodes(c *fiber.Ctx) error {
	format, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := s.exports.ExportTo(&buf, format, c.QueryInt("page", 1)); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="codes.%s"`, format))
	return c.Send(buf.Bytes())
}
