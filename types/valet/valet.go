package valet

import (
	"fmt"
	"strings"

	valetModel "eventpilot/models/valet"
	"eventpilot/utils"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return fmt.Errorf("اسم المستخدم وكلمة المرور مطلوبان")
	}
	return nil
}

// EmployeeRequest creates or partially updates an employee.
type EmployeeRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"isActive"`
}

func (r EmployeeRequest) ValidateCreate() error {
	if r.Name == nil || len([]rune(strings.TrimSpace(*r.Name))) < 2 {
		return fmt.Errorf("الاسم مطلوب")
	}
	if r.Username == nil || len(strings.TrimSpace(*r.Username)) < 3 {
		return fmt.Errorf("اسم المستخدم يجب أن يكون 3 أحرف على الأقل")
	}
	if r.Password == nil {
		return fmt.Errorf("كلمة المرور مطلوبة")
	}
	return r.ValidateUpdate()
}

func (r EmployeeRequest) ValidateUpdate() error {
	if r.Password != nil && len(*r.Password) < 6 {
		return fmt.Errorf("كلمة المرور يجب أن تكون 6 أحرف على الأقل")
	}
	if r.Phone != nil && *r.Phone != "" && !utils.ValidateSaudiPhone(*r.Phone) {
		return fmt.Errorf("رقم الهاتف غير صالح")
	}
	return nil
}

type AssignRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	SessionID  string `json:"sessionId" validate:"required"`
}

func (r AssignRequest) Validate() error {
	if r.EmployeeID == "" || r.SessionID == "" {
		return fmt.Errorf("employeeId and sessionId are required")
	}
	return nil
}

type ParkRequest struct {
	RegistrationID string  `json:"registrationId" validate:"required"`
	VehicleMake    *string `json:"vehicleMake"`
	VehicleModel   *string `json:"vehicleModel"`
	VehicleColor   *string `json:"vehicleColor"`
	VehiclePlate   *string `json:"vehiclePlate"`
	ParkingSlot    *string `json:"parkingSlot"`
}

func (r ParkRequest) Validate() error {
	if r.RegistrationID == "" {
		return fmt.Errorf("registrationId is required")
	}
	return nil
}

type GuestQRRequest struct {
	QRData    string `json:"qrData" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
}

func (r GuestQRRequest) Validate() error {
	if r.QRData == "" || r.SessionID == "" {
		return fmt.Errorf("qrData and sessionId are required")
	}
	return nil
}

// SessionConfigRequest changes a session's valet settings.
type SessionConfigRequest struct {
	ValetEnabled         *bool `json:"valetEnabled"`
	ValetLotCapacity     *int  `json:"valetLotCapacity"`
	ValetRetrievalNotice *int  `json:"valetRetrievalNotice"`
}

func (r SessionConfigRequest) Validate() error {
	if r.ValetLotCapacity != nil && *r.ValetLotCapacity < 0 {
		return fmt.Errorf("valetLotCapacity must be zero or more")
	}
	if r.ValetRetrievalNotice != nil && (*r.ValetRetrievalNotice < 1 || *r.ValetRetrievalNotice > 60) {
		return fmt.Errorf("valetRetrievalNotice must be between 1 and 60")
	}
	return nil
}

func (r SessionConfigRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if r.ValetEnabled != nil {
		cols["valet_enabled"] = *r.ValetEnabled
	}
	if r.ValetLotCapacity != nil {
		cols["valet_lot_capacity"] = *r.ValetLotCapacity
	}
	if r.ValetRetrievalNotice != nil {
		cols["valet_retrieval_notice"] = *r.ValetRetrievalNotice
	}
	return cols
}

type VipRequest struct {
	IsVip bool `json:"isVip"`
}

type BroadcastRequest struct {
	Message string `json:"message" validate:"required,max=1000"`
}

func (r BroadcastRequest) Validate() error {
	n := len([]rune(strings.TrimSpace(r.Message)))
	if n == 0 {
		return fmt.Errorf("الرسالة مطلوبة")
	}
	if n > 1000 {
		return fmt.Errorf("الرسالة طويلة جداً")
	}
	return nil
}

type OverrideStatusRequest struct {
	Status valetModel.Status `json:"status" validate:"required"`
	Reason *string           `json:"reason"`
}

func (r OverrideStatusRequest) Validate() error {
	if !r.Status.IsValid() {
		return fmt.Errorf("حالة غير صالحة")
	}
	return nil
}

type VehicleDetailsRequest struct {
	VehicleMake  *string `json:"vehicleMake"`
	VehicleModel *string `json:"vehicleModel"`
	VehicleColor *string `json:"vehicleColor"`
	VehiclePlate *string `json:"vehiclePlate"`
	ParkingSlot  *string `json:"parkingSlot"`
}

// PublicRetrievalRequest proves ownership of the registration by phone.
type PublicRetrievalRequest struct {
	RegistrationID string `json:"registrationId" validate:"required"`
	Phone          string `json:"phone" validate:"required"`
}

func (r PublicRetrievalRequest) Validate() error {
	if r.RegistrationID == "" || strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("registrationId and phone are required")
	}
	return nil
}
