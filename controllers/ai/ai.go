package ai

import (
	"errors"

	"eventpilot/logger"
	aiService "eventpilot/services/ai"
	"eventpilot/types"
	aiTypes "eventpilot/types/ai"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
)

type AIController struct {
	Service *aiService.Service
	Logger  *logger.AsyncLogger
}

func NewAIController(service *aiService.Service, asyncLogger *logger.AsyncLogger) *AIController {
	return &AIController{Service: service, Logger: asyncLogger}
}

func (ac *AIController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ac.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

func (ac *AIController) fail(c *fiber.Ctx, status int, message string) error {
	return ac.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (ac *AIController) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, aiService.ErrNotConfigured):
		return ac.fail(c, fiber.StatusServiceUnavailable, "خدمة الذكاء الاصطناعي غير مفعلة")
	case errors.Is(err, aiService.ErrUnknownAnalysis):
		return ac.fail(c, fiber.StatusBadRequest, "نوع التحليل غير صالح")
	case errors.Is(err, aiService.ErrInvalidResponse):
		logger.Error("AI returned an unexpected response", err)
		return ac.fail(c, fiber.StatusBadGateway, "تعذر توليد المحتوى، حاول مرة أخرى")
	}
	logger.Error("AI request failed", err)
	return ac.fail(c, fiber.StatusInternalServerError, "AI request failed")
}

func (ac *AIController) GenerateDescription(c *fiber.Ctx) error {
	var req aiTypes.DescriptionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	description, err := ac.Service.GenerateDescription(c.UserContext(), req.Goal, req.ActivityType)
	if err != nil {
		return ac.serviceError(c, err)
	}
	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "OK",
		Status:  fiber.StatusOK,
		Data:    fiber.Map{"description": description},
	})
}

func (ac *AIController) Analyze(c *fiber.Ctx) error {
	var req aiTypes.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	analysis, err := ac.Service.Analyze(c.UserContext(), aiService.AnalysisType(req.Type))
	if err != nil {
		return ac.serviceError(c, err)
	}
	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: analysis})
}
