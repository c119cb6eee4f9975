package valet

import (
	"errors"
	"strings"

	"eventpilot/config"
	"eventpilot/logger"
	"eventpilot/middleware"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	valetModel "eventpilot/models/valet"
	"eventpilot/services/auth"
	"eventpilot/services/qr"
	valetService "eventpilot/services/valet"
	"eventpilot/types"
	valetTypes "eventpilot/types/valet"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errNotAssigned = errors.New("employee not assigned to session")

type ValetController struct {
	DB      *gorm.DB
	Logger  *logger.AsyncLogger
	Service *valetService.Service
	Config  *config.Config
}

func NewValetController(db *gorm.DB, asyncLogger *logger.AsyncLogger, service *valetService.Service, cfg *config.Config) *ValetController {
	return &ValetController{DB: db, Logger: asyncLogger, Service: service, Config: cfg}
}

func (vc *ValetController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	vc.Logger.Log(logEntry)
}

func (vc *ValetController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	vc.logAPIRequest(c)
	return result
}

func (vc *ValetController) ok(c *fiber.Ctx, data interface{}) error {
	return vc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (vc *ValetController) fail(c *fiber.Ctx, status int, message string) error {
	return vc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

// serviceError maps valet errors to responses; the message is the code
// clients switch on.
func (vc *ValetController) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return vc.fail(c, fiber.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, errNotAssigned):
		return vc.fail(c, fiber.StatusForbidden, "NOT_ASSIGNED")
	case errors.Is(err, valetService.ErrPhoneMismatch):
		return vc.fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, valetService.ErrNotEnabled),
		errors.Is(err, valetService.ErrNotRequested):
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, valetService.ErrAlreadyParked),
		errors.Is(err, valetService.ErrCapacityFull),
		errors.Is(err, valetService.ErrNotParked),
		errors.Is(err, valetService.ErrAlreadyRetrieved),
		errors.Is(err, valetService.ErrInvalidTransition):
		return vc.fail(c, fiber.StatusConflict, err.Error())
	}
	logger.Error("Valet operation failed", err)
	return vc.fail(c, fiber.StatusInternalServerError, "Valet operation failed")
}

/*===== | Employees =====*/

func (vc *ValetController) Login(c *fiber.Ctx) error {
	var req valetTypes.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var employee valetModel.Employee
	err := vc.DB.Where("username = ?", strings.ToLower(strings.TrimSpace(req.Username))).First(&employee).Error
	if err != nil || !auth.CheckPassword(employee.PasswordHash, req.Password) {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Error fetching valet employee", err)
		}
		return vc.fail(c, fiber.StatusUnauthorized, "اسم المستخدم أو كلمة المرور غير صحيحة")
	}
	if !employee.IsActive {
		return vc.fail(c, fiber.StatusForbidden, "هذا الحساب غير مفعل")
	}

	token, err := auth.IssueValetToken(vc.Config.ValetJWTSecret, &employee)
	if err != nil {
		logger.Error("Failed to issue valet token", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Failed to sign in")
	}
	logger.Info("Valet signed in", zap.String("username", employee.Username))
	return vc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "تم تسجيل الدخول",
		Status:  fiber.StatusOK,
		Data:    employee,
		Token:   token,
	})
}

func (vc *ValetController) GetMe(c *fiber.Ctx) error {
	return vc.ok(c, middleware.CurrentValet(c))
}

func (vc *ValetController) CreateEmployee(c *fiber.Ctx) error {
	var req valetTypes.EmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateCreate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	username := strings.ToLower(strings.TrimSpace(*req.Username))
	var taken int64
	if err := vc.DB.Model(&valetModel.Employee{}).Where("username = ?", username).Count(&taken).Error; err != nil {
		logger.Error("Failed to check username", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Database error")
	}
	if taken > 0 {
		return vc.fail(c, fiber.StatusConflict, "اسم المستخدم مستخدم مسبقاً")
	}

	hash, err := auth.HashPassword(*req.Password)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Failed to create employee")
	}
	employee := valetModel.Employee{
		Name:         strings.TrimSpace(*req.Name),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if req.Phone != nil && *req.Phone != "" {
		phone := utils.FormatPhoneNumber(*req.Phone)
		employee.Phone = &phone
	}
	if err := vc.DB.Create(&employee).Error; err != nil {
		logger.Error("Failed to create employee", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Failed to create employee")
	}
	return vc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إنشاء الموظف",
		Status:  fiber.StatusCreated,
		Data:    employee,
	})
}

func (vc *ValetController) UpdateEmployee(c *fiber.Ctx) error {
	var req valetTypes.EmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateUpdate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var employee valetModel.Employee
	if err := vc.DB.Where("id = ?", c.Params("id")).First(&employee).Error; err != nil {
		return vc.serviceError(c, err)
	}

	cols := map[string]interface{}{}
	if req.Name != nil {
		cols["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		var taken int64
		if err := vc.DB.Model(&valetModel.Employee{}).Where("username = ? AND id <> ?", username, employee.ID).Count(&taken).Error; err != nil {
			logger.Error("Failed to check username", err)
			return vc.fail(c, fiber.StatusInternalServerError, "Database error")
		}
		if taken > 0 {
			return vc.fail(c, fiber.StatusConflict, "اسم المستخدم مستخدم مسبقاً")
		}
		cols["username"] = username
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			logger.Error("Failed to hash password", err)
			return vc.fail(c, fiber.StatusInternalServerError, "Failed to update employee")
		}
		cols["password_hash"] = hash
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			cols["phone"] = nil
		} else {
			cols["phone"] = utils.FormatPhoneNumber(*req.Phone)
		}
	}
	if req.IsActive != nil {
		cols["is_active"] = *req.IsActive
	}
	if len(cols) > 0 {
		if err := vc.DB.Model(&employee).Updates(cols).Error; err != nil {
			logger.Error("Failed to update employee", err)
			return vc.fail(c, fiber.StatusInternalServerError, "Failed to update employee")
		}
	}
	if err := vc.DB.Where("id = ?", employee.ID).First(&employee).Error; err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, employee)
}

func (vc *ValetController) ListEmployees(c *fiber.Ctx) error {
	query := vc.DB.Model(&valetModel.Employee{})
	if active := utils.QueryBool(c, "isActive"); active != nil {
		query = query.Where("is_active = ?", *active)
	}
	var employees []valetModel.Employee
	if err := query.Order("name ASC").Find(&employees).Error; err != nil {
		logger.Error("Error fetching employees", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Error fetching employees")
	}
	return vc.ok(c, employees)
}

// DeleteEmployee deactivates the account. Its history stays.
func (vc *ValetController) DeleteEmployee(c *fiber.Ctx) error {
	result := vc.DB.Model(&valetModel.Employee{}).Where("id = ?", c.Params("id")).Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate employee", result.Error)
		return vc.fail(c, fiber.StatusInternalServerError, "Failed to delete employee")
	}
	if result.RowsAffected == 0 {
		return vc.fail(c, fiber.StatusNotFound, "NOT_FOUND")
	}
	return vc.ok(c, types.SuccessResult{Success: true})
}

func (vc *ValetController) AssignEmployeeToSession(c *fiber.Ctx) error {
	var req valetTypes.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var existing int64
	if err := vc.DB.Model(&valetModel.EmployeeSession{}).
		Where("employee_id = ? AND session_id = ?", req.EmployeeID, req.SessionID).
		Count(&existing).Error; err != nil {
		logger.Error("Failed to check assignment", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Database error")
	}
	if existing > 0 {
		return vc.fail(c, fiber.StatusConflict, "الموظف معين لهذه الجلسة مسبقاً")
	}
	if err := vc.DB.Where("id = ?", req.EmployeeID).First(&valetModel.Employee{}).Error; err != nil {
		return vc.serviceError(c, err)
	}
	if err := vc.DB.Where("id = ?", req.SessionID).First(&session.Session{}).Error; err != nil {
		return vc.serviceError(c, err)
	}

	adminID := middleware.CurrentUserID(c)
	assignment := valetModel.EmployeeSession{EmployeeID: req.EmployeeID, SessionID: req.SessionID, AssignedBy: &adminID}
	if err := vc.DB.Create(&assignment).Error; err != nil {
		logger.Error("Failed to assign employee", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Failed to assign employee")
	}
	return vc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم تعيين الموظف",
		Status:  fiber.StatusCreated,
		Data:    assignment,
	})
}

func (vc *ValetController) UnassignEmployeeFromSession(c *fiber.Ctx) error {
	var req valetTypes.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	result := vc.DB.Where("employee_id = ? AND session_id = ?", req.EmployeeID, req.SessionID).
		Delete(&valetModel.EmployeeSession{})
	if result.Error != nil {
		logger.Error("Failed to unassign employee", result.Error)
		return vc.fail(c, fiber.StatusInternalServerError, "Failed to unassign employee")
	}
	if result.RowsAffected == 0 {
		return vc.fail(c, fiber.StatusNotFound, "NOT_FOUND")
	}
	return vc.ok(c, types.SuccessResult{Success: true})
}

func (vc *ValetController) GetSessionEmployees(c *fiber.Ctx) error {
	var assignments []valetModel.EmployeeSession
	err := vc.DB.Preload("Employee").
		Where("session_id = ?", c.Params("id")).
		Order("assigned_at ASC").
		Find(&assignments).Error
	if err != nil {
		logger.Error("Error fetching session employees", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Error fetching employees")
	}
	return vc.ok(c, assignments)
}

/*===== | Valet Staff =====*/

func (vc *ValetController) requireAssignment(c *fiber.Ctx, sessionID string) error {
	var count int64
	err := vc.DB.Model(&valetModel.EmployeeSession{}).
		Where("employee_id = ? AND session_id = ?", middleware.CurrentValet(c).ID, sessionID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return errNotAssigned
	}
	return nil
}

// recordFor loads a record and checks the caller works its session.
func (vc *ValetController) recordFor(c *fiber.Ctx, recordID string) (*valetModel.Record, error) {
	var record valetModel.Record
	if err := vc.DB.Where("id = ?", recordID).First(&record).Error; err != nil {
		return nil, err
	}
	if err := vc.requireAssignment(c, record.SessionID); err != nil {
		return nil, err
	}
	return &record, nil
}

func (vc *ValetController) GetMyAssignedSessions(c *fiber.Ctx) error {
	var assignments []valetModel.EmployeeSession
	err := vc.DB.Preload("Session").
		Joins("JOIN sessions ON sessions.id = valet_employee_sessions.session_id").
		Where("valet_employee_sessions.employee_id = ?", middleware.CurrentValet(c).ID).
		Order("sessions.date DESC").
		Find(&assignments).Error
	if err != nil {
		logger.Error("Error fetching assignments", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Error fetching sessions")
	}
	sessions := make([]*session.Session, 0, len(assignments))
	for _, a := range assignments {
		sessions = append(sessions, a.Session)
	}
	return vc.ok(c, sessions)
}

func (vc *ValetController) GetSessionForValet(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if err := vc.requireAssignment(c, sessionID); err != nil {
		return vc.serviceError(c, err)
	}
	var s session.Session
	if err := vc.DB.Where("id = ?", sessionID).First(&s).Error; err != nil {
		return vc.serviceError(c, err)
	}
	stats, err := vc.Service.Stats(sessionID)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, fiber.Map{"session": s, "stats": stats})
}

type guestRow struct {
	RegistrationID string             `json:"registrationId"`
	Name           string             `json:"name"`
	Phone          string             `json:"phone"`
	NeedsValet     bool               `json:"needsValet"`
	IsApproved     bool               `json:"isApproved"`
	Record         *valetModel.Record `json:"valetRecord"`
}

// SearchGuests matches name, phone or plate among approved registrations
// of an assigned session.
func (vc *ValetController) SearchGuests(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	query := strings.TrimSpace(c.Query("query"))
	if sessionID == "" || len([]rune(query)) < 2 {
		return vc.fail(c, fiber.StatusBadRequest, "sessionId and a query of at least 2 characters are required")
	}
	if err := vc.requireAssignment(c, sessionID); err != nil {
		return vc.serviceError(c, err)
	}

	like := "%" + strings.ToLower(query) + "%"
	var regs []registration.Registration
	err := vc.DB.Preload("User").
		Joins("LEFT JOIN users ON users.id = registrations.user_id").
		Joins("LEFT JOIN valet_records ON valet_records.registration_id = registrations.id").
		Where("registrations.session_id = ? AND registrations.is_approved = ?", sessionID, true).
		Where("LOWER(users.name) LIKE ? OR users.phone LIKE ? OR LOWER(registrations.guest_name) LIKE ? OR "+
			"registrations.guest_phone LIKE ? OR LOWER(valet_records.vehicle_plate) LIKE ?",
			like, like, like, like, like).
		Limit(20).
		Find(&regs).Error
	if err != nil {
		logger.Error("Error searching guests", err)
		return vc.fail(c, fiber.StatusInternalServerError, "Error searching guests")
	}
	rows, err := vc.guestRows(regs)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, rows)
}

func (vc *ValetController) guestRows(regs []registration.Registration) ([]guestRow, error) {
	ids := make([]string, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.ID)
	}
	var records []valetModel.Record
	if len(ids) > 0 {
		if err := vc.DB.Where("registration_id IN ?", ids).Find(&records).Error; err != nil {
			return nil, err
		}
	}
	byReg := make(map[string]*valetModel.Record, len(records))
	for i := range records {
		byReg[records[i].RegistrationID] = &records[i]
	}

	rows := make([]guestRow, 0, len(regs))
	for i := range regs {
		r := &regs[i]
		rows = append(rows, guestRow{
			RegistrationID: r.ID,
			Name:           r.DisplayName(),
			Phone:          r.ContactPhone(),
			NeedsValet:     r.NeedsValet,
			IsApproved:     r.IsApproved,
			Record:         byReg[r.ID],
		})
	}
	return rows, nil
}

func (vc *ValetController) GetGuestByQR(c *fiber.Ctx) error {
	var req valetTypes.GuestQRRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	payload, err := qr.ParseCheckIn(req.QRData)
	if err != nil || payload.SessionID != req.SessionID {
		return vc.fail(c, fiber.StatusBadRequest, "INVALID_QR")
	}
	if err := vc.requireAssignment(c, req.SessionID); err != nil {
		return vc.serviceError(c, err)
	}

	var reg registration.Registration
	if err := vc.DB.Preload("User").Where("id = ? AND session_id = ?", payload.RegistrationID, payload.SessionID).
		First(&reg).Error; err != nil {
		return vc.serviceError(c, err)
	}
	rows, err := vc.guestRows([]registration.Registration{reg})
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, rows[0])
}

func (vc *ValetController) GetValetRecord(c *fiber.Ctx) error {
	var record valetModel.Record
	if err := vc.DB.Where("registration_id = ?", c.Params("registrationId")).First(&record).Error; err != nil {
		return vc.serviceError(c, err)
	}
	if err := vc.requireAssignment(c, record.SessionID); err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, record)
}

func (vc *ValetController) ParkVehicle(c *fiber.Ctx) error {
	var req valetTypes.ParkRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return vc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return vc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var reg registration.Registration
	if err := vc.DB.Where("id = ?", req.RegistrationID).First(&reg).Error; err != nil {
		return vc.serviceError(c, err)
	}
	if err := vc.requireAssignment(c, reg.SessionID); err != nil {
		return vc.serviceError(c, err)
	}

	record, err := vc.Service.Park(c.UserContext(), middleware.CurrentValet(c).ID, valetService.ParkInput{
		RegistrationID: req.RegistrationID,
		VehicleMake:    req.VehicleMake,
		VehicleModel:   req.VehicleModel,
		VehicleColor:   req.VehicleColor,
		VehiclePlate:   req.VehiclePlate,
		ParkingSlot:    req.ParkingSlot,
	})
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, fiber.Map{"record": record, "trackingUrl": vc.Service.TrackingURL(*record.TrackingToken)})
}

func (vc *ValetController) GetRetrievalQueue(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if err := vc.requireAssignment(c, sessionID); err != nil {
		return vc.serviceError(c, err)
	}
	queue, err := vc.Service.Queue(sessionID)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, queue)
}

func (vc *ValetController) GetValetStats(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if err := vc.requireAssignment(c, sessionID); err != nil {
		return vc.serviceError(c, err)
	}
	stats, err := vc.Service.Stats(sessionID)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, stats)
}

func (vc *ValetController) MarkVehicleFetching(c *fiber.Ctx) error {
	if _, err := vc.recordFor(c, c.Params("id")); err != nil {
		return vc.serviceError(c, err)
	}
	record, err := vc.Service.MarkFetching(c.Params("id"))
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, record)
}

func (vc *ValetController) MarkVehicleReady(c *fiber.Ctx) error {
	if _, err := vc.recordFor(c, c.Params("id")); err != nil {
		return vc.serviceError(c, err)
	}
	record, err := vc.Service.MarkReady(c.UserContext(), c.Params("id"))
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, record)
}

func (vc *ValetController) MarkVehicleRetrieved(c *fiber.Ctx) error {
	if _, err := vc.recordFor(c, c.Params("id")); err != nil {
		return vc.serviceError(c, err)
	}
	record, err := vc.Service.MarkRetrieved(c.Params("id"), middleware.CurrentValet(c).ID)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, record)
}

// ValetRequestRetrieval queues a car for a guest standing at the valet stand.
func (vc *ValetController) ValetRequestRetrieval(c *fiber.Ctx) error {
	var record valetModel.Record
	if err := vc.DB.Where("registration_id = ?", c.Params("registrationId")).First(&record).Error; err != nil {
		return vc.serviceError(c, err)
	}
	if err := vc.requireAssignment(c, record.SessionID); err != nil {
		return vc.serviceError(c, err)
	}
	result, err := vc.Service.ValetRequestRetrieval(record.RegistrationID)
	if err != nil {
		return vc.serviceError(c, err)
	}
	return vc.ok(c, result)
}
