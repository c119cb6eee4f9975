package valet

import (
	"errors"

	"eventpilot/logger"
	"eventpilot/middleware"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	valetModel "eventpilot/models/valet"
	valetService "eventpilot/services/valet"
	valetTypes "eventpilot/types/valet"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

/*===== | Valet Admin =====*/

type sessionConfig struct {
	ValetEnabled         bool `json:"valetEnabled"`
	ValetLotCapacity     int  `json:"valetLotCapacity"`
	ValetRetrievalNotice int  `json:"valetRetrievalNotice"`
}

func configOf(s *session.Session) sessionConfig {
	return sessionConfig{
		ValetEnabled:         s.ValetEnabled,
		ValetLotCapacity:     s.ValetLotCapacity,
		ValetRetrievalNotice: s.ValetRetrievalNotice,
	}
}

func (vc *ValetController) GetSessionConfig(c *fiber.Ctx) error {
	var s session.Session
	if err := vc.DB.Where("id = ?", c.Params("id")).First(&s).Error; err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, configOf(&s))
}

func (vc *ValetController) UpdateSessionConfig(c *fiber.Ctx) error {
	var req valetTypes.SessionConfigRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var s session.Session
	if err := vc.DB.Where("id = ?", c.Params("id")).First(&s).Error; err != nil {
		return vc.serviceError(c, err)
	}
	if cols := req.Columns(); len(cols) > 0 {
		if err := vc.DB.Model(&s).Updates(cols).Error; err != nil {
			logger.Error("Failed to update valet config", err)
			return vc.fail(c, fiber.StatusInternalServerError, "Failed to update valet config")
		}
	}
	if err := vc.DB.Where("id = ?", s.ID).First(&s).Error; err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, configOf(&s))
}

// MarkGuestVip flags a registration as VIP. A guest with no record yet gets
// an expected one so the flag is kept for arrival.
func (vc *ValetController) MarkGuestVip(c *fiber.Ctx) error {
	var req valetTypes.VipRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	registrationID := c.Params("registrationId")

	record, err := vc.Service.MarkGuestVip(registrationID, req.IsVip)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var reg registration.Registration
		if err := vc.DB.Preload("User").Where("id = ?", registrationID).First(&reg).Error; err != nil {
			return vc.serviceError(c, err)
		}
		created := valetModel.Record{
			RegistrationID: reg.ID,
			SessionID:      reg.SessionID,
			GuestName:      reg.DisplayName(),
			Status:         valetModel.StatusExpected,
			IsVip:          req.IsVip,
			Priority:       valetModel.PriorityFor(req.IsVip),
		}
		if phone := reg.ContactPhone(); phone != "" {
			created.GuestPhone = &phone
		}
		if err := vc.DB.Create(&created).Error; err != nil {
			logger.Error("Failed to create valet record", err)
			return vc.fail(c, fiber.StatusInternalServerError, "Failed to mark VIP")
		}
		return vc.ok(c, created)
	}
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, record)
}

func (vc *ValetController) GetSessionValetStats(c *fiber.Ctx) error {
	stats, err := vc.Service.Stats(c.Params("id"))
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, stats)
}

// GetSessionValetGuests lists approved registrations that asked for valet.
func (vc *ValetController) GetSessionValetGuests(c *fiber.Ctx) error {
	var regs []registration.Registration
	err := vc.DB.Preload("User").
		Where("session_id = ? AND needs_valet = ? AND is_approved = ?", c.Params("id"), true, true).
		Order("registered_at ASC").
		Find(&regs).Error
	if err != nil {
		logger.Error("Error fetching valet guests", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Error fetching valet guests")
	}
	rows, err := vc.guestRows(regs)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, rows)
}

func (vc *ValetController) SendBroadcast(c *fiber.Ctx) error {
	var req valetTypes.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	sent, err := vc.Service.Broadcast(c.UserContext(), c.Params("id"), req.Message)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, fiber.Map{"sent": sent})
}

func (vc *ValetController) GetAllRecords(c *fiber.Ctx) error {
	query := vc.DB.Model(&valetModel.Record{}).Where("session_id = ?", c.Params("id"))
	if status := c.Query("status"); status != "" {
		if !valetModel.Status(status).IsValid() {
			return vc.fail(c, fiber.StatusBadRequest, "INVALID_STATUS")
		}
		query = query.Where("status = ?", status)
	}
	var records []valetModel.Record
	if err := query.Preload("ParkedBy").Order("ticket_number ASC").Find(&records).Error; err != nil {
		logger.Error("Error fetching valet records", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Error fetching valet records")
	}
	return vc.ok(c, records)
}

func (vc *ValetController) AdminOverrideStatus(c *fiber.Ctx) error {
	var req valetTypes.OverrideStatusRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	record, err := vc.Service.OverrideStatus(c.Params("id"), req.Status, middleware.CurrentUserID(c), req.Reason)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, record)
}

func (vc *ValetController) AdminOverrideVip(c *fiber.Ctx) error {
	var req valetTypes.VipRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	record, err := vc.Service.OverrideVip(c.Params("id"), req.IsVip, middleware.CurrentUserID(c))
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, record)
}

func (vc *ValetController) AdminUpdateVehicleDetails(c *fiber.Ctx) error {
	var req valetTypes.VehicleDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	record, err := vc.Service.UpdateVehicleDetails(c.Params("id"), valetService.VehicleDetails{
		VehicleMake:  req.VehicleMake,
		VehicleModel: req.VehicleModel,
		VehicleColor: req.VehicleColor,
		VehiclePlate: req.VehiclePlate,
		ParkingSlot:  req.ParkingSlot,
	}, middleware.CurrentUserID(c))
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, record)
}

func (vc *ValetController) AdminRequestRetrieval(c *fiber.Ctx) error {
	result, err := vc.Service.AdminRequestRetrieval(c.Params("registrationId"), middleware.CurrentUserID(c))
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, result)
}

/*===== | Valet Public =====*/

func (vc *ValetController) RequestRetrieval(c *fiber.Ctx) error {
	var req valetTypes.PublicRetrievalRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	result, err := vc.Service.RequestRetrieval(req.RegistrationID, req.Phone)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, result)
}

func (vc *ValetController) GetStatusByToken(c *fiber.Ctx) error {
	status, err := vc.Service.StatusByToken(c.Params("token"))
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, status)
}

func (vc *ValetController) RequestRetrievalByToken(c *fiber.Ctx) error {
	result, err := vc.Service.RequestRetrievalByToken(c.Params("token"))
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, result)
}

// GetMyValetStatus returns the caller's record for a session, or null.
func (vc *ValetController) GetMyValetStatus(c *fiber.Ctx) error {
	var record valetModel.Record
	err := vc.DB.Joins("JOIN registrations ON registrations.id = valet_records.registration_id").
		Where("registrations.user_id = ? AND registrations.session_id = ?", middleware.CurrentUserID(c), c.Params("id")).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return vc.ok(c, nil)
	}
	if err != nil {
		return vc.serviceError(c, err)
	}
	out := fiber.Map{"record": record}
	if record.TrackingToken != nil {
		out["trackingUrl"] = vc.Service.TrackingURL(*record.TrackingToken)
	}
	pos, err := vc.Service.QueuePosition(&record)
	if err != nil {
		return vc.serviceError(c, err)
	}
	if pos > 0 {
		out["queuePosition"] = pos
	}
	return vc.ok(c, out)
}
