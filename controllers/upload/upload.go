package upload

import (
	"time"

	"eventpilot/logger"
	"eventpilot/services/storage"
	"eventpilot/types"
	uploadTypes "eventpilot/types/upload"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UploadController struct {
	Store  storage.Store
	Logger *logger.AsyncLogger
}

func NewUploadController(store storage.Store, asyncLogger *logger.AsyncLogger) *UploadController {
	return &UploadController{Store: store, Logger: asyncLogger}
}

func (uc *UploadController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	uc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Presign returns a short-lived PUT URL and the public URL the object will
// have once uploaded.
func (uc *UploadController) Presign(c *fiber.Ctx) error {
	var req uploadTypes.PresignRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return uc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{Message: "Invalid request body", Status: fiber.StatusBadRequest})
	}
	kind, err := req.Validate()
	if err != nil {
		return uc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{Message: err.Error(), Status: fiber.StatusBadRequest})
	}

	key := storage.UploadKey(kind, req.EntityID, req.Filename, time.Now())
	url, err := uc.Store.PresignPut(c.UserContext(), key, req.ContentType, storage.UploadTTL)
	if err != nil {
		logger.Error("Failed to presign upload", err, zap.String("key", key))
		return uc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{Message: "Failed to generate upload URL", Status: fiber.StatusInternalServerError})
	}
	return uc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "OK",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"uploadUrl": url,
			"key":       key,
			"publicUrl": uc.Store.URL(key),
			"expiresIn": int(storage.UploadTTL.Seconds()),
		},
	})
}
