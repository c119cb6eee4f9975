package valet

import (
	"strings"
	"time"

	"eventpilot/models/common"
	"eventpilot/models/registration"
	"eventpilot/models/session"

	"gorm.io/gorm"
)

type Status string

const (
	StatusExpected  Status = "expected"
	StatusParked    Status = "parked"
	StatusRequested Status = "requested"
	StatusFetching  Status = "fetching"
	StatusReady     Status = "ready"
	StatusRetrieved Status = "retrieved"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusExpected, StatusParked, StatusRequested, StatusFetching, StatusReady, StatusRetrieved,
}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// OccupyingStatuses hold a spot in the lot.
var OccupyingStatuses = []Status{StatusParked, StatusRequested, StatusFetching, StatusReady}

// QueueStatuses are in the retrieval queue.
var QueueStatuses = []Status{StatusRequested, StatusFetching, StatusReady}

const VIPPriority = 100

// Employee is a valet staff account, separate from user accounts.
type Employee struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Username     string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Phone        *string   `gorm:"type:varchar(20)" json:"phone"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Employee) TableName() string {
	return "valet_employees"
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = common.NewID()
	}
	e.Username = strings.ToLower(strings.TrimSpace(e.Username))
	return nil
}

// EmployeeSession assigns an employee to a session.
type EmployeeSession struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	EmployeeID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_valet_employee_session" json:"employeeId"`
	SessionID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_valet_employee_session;index" json:"sessionId"`
	AssignedBy *string   `gorm:"type:varchar(36)" json:"assignedBy"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assignedAt"`

	Employee *Employee        `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE" json:"employee,omitempty"`
	Session  *session.Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"session,omitempty"`
}

func (EmployeeSession) TableName() string {
	return "valet_employee_sessions"
}

func (a *EmployeeSession) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = common.NewID()
	}
	return nil
}

// Record tracks one guest's vehicle through the valet lifecycle.
type Record struct {
	ID             string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	RegistrationID string  `gorm:"type:varchar(36);not null;uniqueIndex" json:"registrationId"`
	SessionID      string  `gorm:"type:varchar(36);not null;index" json:"sessionId"`
	GuestName      string  `gorm:"type:varchar(255);not null" json:"guestName"`
	GuestPhone     *string `gorm:"type:varchar(20)" json:"guestPhone"`
	IsVip          bool    `gorm:"not null;default:false" json:"isVip"`
	Priority       int     `gorm:"column:retrieval_priority;not null;default:0;index" json:"retrievalPriority"`

	VehicleMake   *string `gorm:"type:varchar(100)" json:"vehicleMake"`
	VehicleModel  *string `gorm:"type:varchar(100)" json:"vehicleModel"`
	VehicleColor  *string `gorm:"type:varchar(50)" json:"vehicleColor"`
	VehiclePlate  *string `gorm:"type:varchar(50);index" json:"vehiclePlate"`
	ParkingSlot   *string `gorm:"type:varchar(50)" json:"parkingSlot"`
	TicketNumber  *int    `gorm:"index" json:"ticketNumber"`
	TrackingToken *string `gorm:"type:varchar(36);uniqueIndex" json:"trackingToken"`

	Status      Status     `gorm:"type:varchar(20);not null;index" json:"status"`
	ParkedAt    *time.Time `json:"parkedAt"`
	RequestedAt *time.Time `gorm:"column:retrieval_requested_at" json:"retrievalRequestedAt"`
	FetchingAt  *time.Time `gorm:"column:fetching_started_at" json:"fetchingStartedAt"`
	ReadyAt     *time.Time `gorm:"column:vehicle_ready_at" json:"vehicleReadyAt"`
	RetrievedAt *time.Time `json:"retrievedAt"`

	ParkedByID    *string `gorm:"column:parked_by_employee_id;type:varchar(36)" json:"parkedByEmployeeId"`
	RetrievedByID *string `gorm:"column:retrieved_by_employee_id;type:varchar(36)" json:"retrievedByEmployeeId"`

	LastAdminActionAt     *time.Time `json:"lastAdminActionAt"`
	LastAdminActionBy     *string    `gorm:"type:varchar(36)" json:"lastAdminActionBy"`
	LastAdminActionType   *string    `gorm:"type:varchar(50)" json:"lastAdminActionType"`
	LastAdminActionReason *string    `gorm:"type:text" json:"lastAdminActionReason"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Registration *registration.Registration `gorm:"foreignKey:RegistrationID;constraint:OnDelete:CASCADE" json:"-"`
	Session      *session.Session           `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	ParkedBy     *Employee                  `gorm:"foreignKey:ParkedByID;constraint:OnDelete:SET NULL" json:"parkedByEmployee,omitempty"`
}

func (Record) TableName() string {
	return "valet_records"
}

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = common.NewID()
	}
	if r.Status == "" {
		r.Status = StatusExpected
	}
	return nil
}

// VehicleInfo joins color, make and model for notifications.
func (r *Record) VehicleInfo() string {
	parts := make([]string, 0, 3)
	for _, p := range []*string{r.VehicleColor, r.VehicleMake, r.VehicleModel} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	return strings.Join(parts, " ")
}

func PriorityFor(vip bool) int {
	if vip {
		return VIPPriority
	}
	return 0
}
