package valet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventpilot/logger"
	"eventpilot/models/common"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	valetModel "eventpilot/models/valet"
	"eventpilot/services/mailer"
	"eventpilot/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Errors carry the codes clients switch on.
var (
	ErrNotEnabled        = errors.New("VALET_NOT_ENABLED")
	ErrNotRequested      = errors.New("GUEST_NOT_REQUESTED_VALET")
	ErrAlreadyParked     = errors.New("ALREADY_PARKED")
	ErrCapacityFull      = errors.New("CAPACITY_FULL")
	ErrNotParked         = errors.New("NOT_PARKED")
	ErrAlreadyRetrieved  = errors.New("ALREADY_RETRIEVED")
	ErrInvalidTransition = errors.New("INVALID_STATUS")
	ErrPhoneMismatch     = errors.New("PHONE_MISMATCH")
)

// Admin action types recorded on a record.
const (
	ActionStatusOverride   = "status_override"
	ActionVipToggle        = "vip_toggle"
	ActionDetailsUpdate    = "details_update"
	ActionRetrievalRequest = "retrieval_request"
)

// Notifier is the subset of the mailer used for guest notices.
type Notifier interface {
	SendValetParked(ctx context.Context, to string, p mailer.ValetParked, refs mailer.Refs) error
	SendValetReady(ctx context.Context, to, guestName, eventName, vehicleInfo string, refs mailer.Refs) error
	SendValetBroadcast(ctx context.Context, to, guestName, eventName, message string, refs mailer.Refs) error
}

// Service runs the valet lifecycle:
// expected -> parked -> requested -> fetching -> ready -> retrieved.
type Service struct {
	DB       *gorm.DB
	Notifier Notifier
	BaseURL  string

	now func() time.Time
}

func NewService(db *gorm.DB, notifier Notifier, baseURL string) *Service {
	return &Service{DB: db, Notifier: notifier, BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// TrackingURL is the guest-facing status page of a record.
func (s *Service) TrackingURL(token string) string {
	return s.BaseURL + "/valet/track/" + token
}

// ParkInput is what the valet captures at drop off.
type ParkInput struct {
	RegistrationID string
	VehicleMake    *string
	VehicleModel   *string
	VehicleColor   *string
	VehiclePlate   *string
	ParkingSlot    *string
}

func (s *Service) loadRegistration(db *gorm.DB, registrationID string) (*registration.Registration, error) {
	var reg registration.Registration
	if err := db.Preload("Session").Preload("User").Where("id = ?", registrationID).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

// Occupancy counts records that hold a spot in the lot.
func Occupancy(db *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := db.Model(&valetModel.Record{}).
		Where("session_id = ? AND status IN ?", sessionID, valetModel.OccupyingStatuses).
		Count(&count).Error
	return count, err
}

func nextTicket(db *gorm.DB, sessionID string) (int, error) {
	var highest sql.NullInt64
	err := db.Model(&valetModel.Record{}).
		Where("session_id = ?", sessionID).
		Select("MAX(ticket_number)").Row().Scan(&highest)
	if err != nil {
		return 0, err
	}
	return int(highest.Int64) + 1, nil
}

// Park moves a registration's record to parked, creating it if needed.
// Only an expected (or absent) record can be parked.
func (s *Service) Park(ctx context.Context, employeeID string, in ParkInput) (*valetModel.Record, error) {
	var (
		record valetModel.Record
		reg    *registration.Registration
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		reg, err = s.loadRegistration(tx, in.RegistrationID)
		if err != nil {
			return err
		}
		if !reg.Session.ValetEnabled {
			return ErrNotEnabled
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("registration_id = ?", reg.ID).First(&record).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if exists && record.Status != valetModel.StatusExpected {
			return ErrAlreadyParked
		}

		if capacity := reg.Session.ValetLotCapacity; capacity > 0 {
			occupied, err := Occupancy(tx, reg.SessionID)
			if err != nil {
				return err
			}
			if occupied >= int64(capacity) {
				return ErrCapacityFull
			}
		}

		now := s.now()
		if !exists {
			record = valetModel.Record{
				RegistrationID: reg.ID,
				SessionID:      reg.SessionID,
				GuestName:      reg.DisplayName(),
			}
		}
		if record.GuestName == "" {
			record.GuestName = reg.DisplayName()
		}
		if phone := reg.ContactPhone(); phone != "" {
			record.GuestPhone = &phone
		}
		if record.TicketNumber == nil {
			ticket, err := nextTicket(tx, reg.SessionID)
			if err != nil {
				return err
			}
			record.TicketNumber = &ticket
		}
		if record.TrackingToken == nil {
			token := common.NewID()
			record.TrackingToken = &token
		}
		record.VehicleMake = in.VehicleMake
		record.VehicleModel = in.VehicleModel
		record.VehicleColor = in.VehicleColor
		record.VehiclePlate = in.VehiclePlate
		record.ParkingSlot = in.ParkingSlot
		record.Status = valetModel.StatusParked
		record.ParkedAt = &now
		record.ParkedByID = &employeeID
		record.Priority = valetModel.PriorityFor(record.IsVip)

		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, err
	}

	if to := reg.ContactEmail(); to != "" && s.Notifier != nil {
		notice := mailer.ValetParked{
			GuestName:   record.GuestName,
			EventName:   reg.Session.Title,
			VehicleInfo: record.VehicleInfo(),
			TrackingURL: s.TrackingURL(*record.TrackingToken),
		}
		if record.ParkingSlot != nil {
			notice.ParkingSlot = *record.ParkingSlot
		}
		if record.TicketNumber != nil {
			notice.TicketNumber = *record.TicketNumber
		}
		refs := mailer.Refs{SessionID: &record.SessionID, RegistrationID: &record.RegistrationID}
		if err := s.Notifier.SendValetParked(ctx, to, notice, refs); err != nil {
			logger.Warning("Failed to send valet parked email", zap.String("record", record.ID), zap.Error(err))
		}
	}
	return &record, nil
}

// RetrievalResult reports the outcome of a retrieval request.
type RetrievalResult struct {
	Record        *valetModel.Record `json:"-"`
	Status        valetModel.Status  `json:"status"`
	TicketNumber  *int               `json:"ticketNumber"`
	QueuePosition int                `json:"queuePosition"`
	AlreadyQueued bool               `json:"alreadyQueued"`
	Message       string             `json:"message"`
}

const (
	msgQueued    = "السيارة في طابور الاسترجاع"
	msgRequested = "تم طلب استرجاع السيارة"
)

// adminAction is recorded with a transition made from the admin console.
type adminAction struct {
	By     string
	Type   string
	Reason *string
}

func (a *adminAction) columns(now time.Time) map[string]interface{} {
	if a == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{
		"last_admin_action_at":     now,
		"last_admin_action_by":     a.By,
		"last_admin_action_type":   a.Type,
		"last_admin_action_reason": a.Reason,
	}
}

// requestRetrieval moves parked to requested. A record already in the queue
// is reported without change.
func (s *Service) requestRetrieval(record *valetModel.Record, action *adminAction) (*RetrievalResult, error) {
	switch record.Status {
	case valetModel.StatusExpected:
		return nil, ErrNotParked
	case valetModel.StatusRetrieved:
		return nil, ErrAlreadyRetrieved
	case valetModel.StatusRequested, valetModel.StatusFetching, valetModel.StatusReady:
		pos, err := s.QueuePosition(record)
		if err != nil {
			return nil, err
		}
		return &RetrievalResult{
			Record:        record,
			Status:        record.Status,
			TicketNumber:  record.TicketNumber,
			QueuePosition: pos,
			AlreadyQueued: true,
			Message:       msgQueued,
		}, nil
	}

	now := s.now()
	updates := action.columns(now)
	updates["status"] = valetModel.StatusRequested
	updates["retrieval_requested_at"] = now
	updates["retrieval_priority"] = valetModel.PriorityFor(record.IsVip)

	if err := s.transition(record, []valetModel.Status{valetModel.StatusParked}, updates); err != nil {
		return nil, err
	}
	pos, err := s.QueuePosition(record)
	if err != nil {
		return nil, err
	}
	return &RetrievalResult{
		Record:        record,
		Status:        record.Status,
		TicketNumber:  record.TicketNumber,
		QueuePosition: pos,
		Message:       msgRequested,
	}, nil
}

// transition applies updates only while the record is still in one of
// from, so concurrent staff actions cannot both win.
func (s *Service) transition(record *valetModel.Record, from []valetModel.Status, updates map[string]interface{}) error {
	result := s.DB.Model(&valetModel.Record{}).
		Where("id = ? AND status IN ?", record.ID, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return s.DB.Where("id = ?", record.ID).First(record).Error
}

func (s *Service) findByRegistration(registrationID string) (*valetModel.Record, error) {
	var record valetModel.Record
	if err := s.DB.Where("registration_id = ?", registrationID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Service) find(recordID string) (*valetModel.Record, error) {
	var record valetModel.Record
	if err := s.DB.Where("id = ?", recordID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Service) FindByToken(token string) (*valetModel.Record, error) {
	var record valetModel.Record
	if err := s.DB.Preload("Session").Where("tracking_token = ?", token).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ValetRequestRetrieval is used by staff when the guest arrives at the stand.
func (s *Service) ValetRequestRetrieval(registrationID string) (*RetrievalResult, error) {
	record, err := s.findByRegistration(registrationID)
	if err != nil {
		return nil, err
	}
	return s.requestRetrieval(record, nil)
}

// AdminRequestRetrieval records the admin who asked for the car.
func (s *Service) AdminRequestRetrieval(registrationID, adminID string) (*RetrievalResult, error) {
	record, err := s.findByRegistration(registrationID)
	if err != nil {
		return nil, err
	}
	return s.requestRetrieval(record, &adminAction{By: adminID, Type: ActionRetrievalRequest})
}

// RequestRetrieval is the public request by registration id. The caller
// must know the phone number the registration was made with.
func (s *Service) RequestRetrieval(registrationID, phone string) (*RetrievalResult, error) {
	record, err := s.findByRegistration(registrationID)
	if err != nil {
		return nil, err
	}
	if record.GuestPhone == nil || utils.FormatPhoneNumber(*record.GuestPhone) != utils.FormatPhoneNumber(phone) {
		return nil, ErrPhoneMismatch
	}
	return s.requestRetrieval(record, nil)
}

func (s *Service) RequestRetrievalByToken(token string) (*RetrievalResult, error) {
	record, err := s.FindByToken(token)
	if err != nil {
		return nil, err
	}
	return s.requestRetrieval(record, nil)
}

func (s *Service) MarkFetching(recordID string) (*valetModel.Record, error) {
	record, err := s.find(recordID)
	if err != nil {
		return nil, err
	}
	err = s.transition(record, []valetModel.Status{valetModel.StatusRequested}, map[string]interface{}{
		"status":              valetModel.StatusFetching,
		"fetching_started_at": s.now(),
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// MarkReady also emails the guest that the car is waiting.
func (s *Service) MarkReady(ctx context.Context, recordID string) (*valetModel.Record, error) {
	record, err := s.find(recordID)
	if err != nil {
		return nil, err
	}
	err = s.transition(record, []valetModel.Status{valetModel.StatusRequested, valetModel.StatusFetching}, map[string]interface{}{
		"status":           valetModel.StatusReady,
		"vehicle_ready_at": s.now(),
	})
	if err != nil {
		return nil, err
	}

	reg, err := s.loadRegistration(s.DB, record.RegistrationID)
	if err != nil {
		logger.Warning("Ready vehicle has no registration", zap.String("record", record.ID))
		return record, nil
	}
	if to := reg.ContactEmail(); to != "" && s.Notifier != nil {
		refs := mailer.Refs{SessionID: &record.SessionID, RegistrationID: &record.RegistrationID}
		if err := s.Notifier.SendValetReady(ctx, to, record.GuestName, reg.Session.Title, record.VehicleInfo(), refs); err != nil {
			logger.Warning("Failed to send valet ready email", zap.String("record", record.ID), zap.Error(err))
		}
	}
	return record, nil
}

func (s *Service) MarkRetrieved(recordID, employeeID string) (*valetModel.Record, error) {
	record, err := s.find(recordID)
	if err != nil {
		return nil, err
	}
	err = s.transition(record, []valetModel.Status{valetModel.StatusReady}, map[string]interface{}{
		"status":                   valetModel.StatusRetrieved,
		"retrieved_at":             s.now(),
		"retrieved_by_employee_id": employeeID,
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// QueuePosition is 1 + the queued records ahead: a higher priority, or the
// same priority requested earlier. Records outside the queue get 0.
func (s *Service) QueuePosition(record *valetModel.Record) (int, error) {
	if !inQueue(record.Status) || record.RequestedAt == nil {
		return 0, nil
	}
	var ahead int64
	err := s.DB.Model(&valetModel.Record{}).
		Where("session_id = ? AND status IN ? AND id <> ?", record.SessionID, valetModel.QueueStatuses, record.ID).
		Where("retrieval_priority > ? OR (retrieval_priority = ? AND retrieval_requested_at < ?)",
			record.Priority, record.Priority, *record.RequestedAt).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

func inQueue(status valetModel.Status) bool {
	for _, st := range valetModel.QueueStatuses {
		if st == status {
			return true
		}
	}
	return false
}

// Queue lists the retrieval queue of a session in service order.
func (s *Service) Queue(sessionID string) ([]valetModel.Record, error) {
	var records []valetModel.Record
	err := s.DB.Where("session_id = ? AND status IN ?", sessionID, valetModel.QueueStatuses).
		Order("retrieval_priority DESC").Order("retrieval_requested_at ASC").
		Find(&records).Error
	return records, err
}

// TrackingStatus is what the public tracking page shows.
type TrackingStatus struct {
	Record               *valetModel.Record `json:"record"`
	SessionTitle         string             `json:"sessionTitle"`
	SessionDate          time.Time          `json:"sessionDate"`
	QueuePosition        *int               `json:"queuePosition"`
	EstimatedWaitMinutes *int               `json:"estimatedWaitMinutes"`
}

// StatusByToken adds an estimated wait of position x retrieval notice.
func (s *Service) StatusByToken(token string) (*TrackingStatus, error) {
	record, err := s.FindByToken(token)
	if err != nil {
		return nil, err
	}
	out := &TrackingStatus{Record: record}
	if record.Session != nil {
		out.SessionTitle = record.Session.Title
		out.SessionDate = record.Session.Date
	}
	if record.Status == valetModel.StatusRequested || record.Status == valetModel.StatusFetching {
		pos, err := s.QueuePosition(record)
		if err != nil {
			return nil, err
		}
		notice := session.DefaultValetRetrievalNotice
		if record.Session != nil && record.Session.ValetRetrievalNotice > 0 {
			notice = record.Session.ValetRetrievalNotice
		}
		wait := pos * notice
		out.QueuePosition = &pos
		out.EstimatedWaitMinutes = &wait
	}
	return out, nil
}

// Stats counts records per status for a session.
type Stats struct {
	Counts          map[valetModel.Status]int64 `json:"counts"`
	Total           int64                       `json:"total"`
	CurrentlyParked int64                       `json:"currentlyParked"`
	InQueue         int64                       `json:"inQueue"`
	Capacity        int                         `json:"capacity"`
	Available       *int64                      `json:"available"`
}

func (s *Service) Stats(sessionID string) (*Stats, error) {
	var sess session.Session
	if err := s.DB.Where("id = ?", sessionID).First(&sess).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status valetModel.Status
		Count  int64
	}
	err := s.DB.Model(&valetModel.Record{}).
		Select("status, COUNT(*) AS count").
		Where("session_id = ?", sessionID).
		Group("status").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count valet records: %w", err)
	}

	stats := &Stats{Counts: make(map[valetModel.Status]int64, len(valetModel.Statuses)), Capacity: sess.ValetLotCapacity}
	for _, st := range valetModel.Statuses {
		stats.Counts[st] = 0
	}
	for _, row := range rows {
		stats.Counts[row.Status] = row.Count
		stats.Total += row.Count
	}
	for _, st := range valetModel.OccupyingStatuses {
		stats.CurrentlyParked += stats.Counts[st]
	}
	for _, st := range valetModel.QueueStatuses {
		stats.InQueue += stats.Counts[st]
	}
	if sess.ValetLotCapacity > 0 {
		available := int64(sess.ValetLotCapacity) - stats.CurrentlyParked
		if available < 0 {
			available = 0
		}
		stats.Available = &available
	}
	return stats, nil
}

// OverrideStatus lets an admin set any status. Timestamps for the new
// status are filled only when not already set.
func (s *Service) OverrideStatus(recordID string, status valetModel.Status, adminID string, reason *string) (*valetModel.Record, error) {
	if !status.IsValid() {
		return nil, ErrInvalidTransition
	}
	record, err := s.find(recordID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updates := (&adminAction{By: adminID, Type: ActionStatusOverride, Reason: reason}).columns(now)
	updates["status"] = status
	switch {
	case status == valetModel.StatusParked && record.ParkedAt == nil:
		updates["parked_at"] = now
	case status == valetModel.StatusRequested && record.RequestedAt == nil:
		updates["retrieval_requested_at"] = now
	case status == valetModel.StatusFetching && record.FetchingAt == nil:
		updates["fetching_started_at"] = now
	case status == valetModel.StatusReady && record.ReadyAt == nil:
		updates["vehicle_ready_at"] = now
	case status == valetModel.StatusRetrieved && record.RetrievedAt == nil:
		updates["retrieved_at"] = now
	}

	if err := s.DB.Model(&valetModel.Record{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(record.ID)
}

// SetVip updates the VIP flag and retrieval priority. adminID is recorded
// when not empty.
func (s *Service) SetVip(record *valetModel.Record, isVip bool, adminID string) error {
	var action *adminAction
	if adminID != "" {
		action = &adminAction{By: adminID, Type: ActionVipToggle}
	}
	updates := action.columns(s.now())
	updates["is_vip"] = isVip
	updates["retrieval_priority"] = valetModel.PriorityFor(isVip)
	if err := s.DB.Model(&valetModel.Record{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
		return err
	}
	record.IsVip = isVip
	record.Priority = valetModel.PriorityFor(isVip)
	return nil
}

func (s *Service) MarkGuestVip(registrationID string, isVip bool) (*valetModel.Record, error) {
	record, err := s.findByRegistration(registrationID)
	if err != nil {
		return nil, err
	}
	return record, s.SetVip(record, isVip, "")
}

func (s *Service) OverrideVip(recordID string, isVip bool, adminID string) (*valetModel.Record, error) {
	record, err := s.find(recordID)
	if err != nil {
		return nil, err
	}
	return record, s.SetVip(record, isVip, adminID)
}

// VehicleDetails holds the optional fields an admin may correct.
type VehicleDetails struct {
	VehicleMake  *string
	VehicleModel *string
	VehicleColor *string
	VehiclePlate *string
	ParkingSlot  *string
}

func (s *Service) UpdateVehicleDetails(recordID string, d VehicleDetails, adminID string) (*valetModel.Record, error) {
	record, err := s.find(recordID)
	if err != nil {
		return nil, err
	}
	updates := (&adminAction{By: adminID, Type: ActionDetailsUpdate}).columns(s.now())
	for column, value := range map[string]*string{
		"vehicle_make":  d.VehicleMake,
		"vehicle_model": d.VehicleModel,
		"vehicle_color": d.VehicleColor,
		"vehicle_plate": d.VehiclePlate,
		"parking_slot":  d.ParkingSlot,
	} {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}
	if err := s.DB.Model(&valetModel.Record{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.find(record.ID)
}

// Broadcast emails every approved valet guest of a session that has an
// address and returns how many were sent.
func (s *Service) Broadcast(ctx context.Context, sessionID, message string) (int, error) {
	var sess session.Session
	if err := s.DB.Where("id = ?", sessionID).First(&sess).Error; err != nil {
		return 0, err
	}
	var regs []registration.Registration
	err := s.DB.Preload("User").
		Where("session_id = ? AND needs_valet = ? AND is_approved = ?", sessionID, true, true).
		Find(&regs).Error
	if err != nil {
		return 0, err
	}
	if s.Notifier == nil {
		return 0, nil
	}

	sent := 0
	for i := range regs {
		reg := &regs[i]
		to := reg.ContactEmail()
		if to == "" {
			continue
		}
		name := reg.DisplayName()
		if name == "" {
			name = "ضيف"
		}
		refs := mailer.Refs{SessionID: &sess.ID, RegistrationID: &reg.ID}
		if err := s.Notifier.SendValetBroadcast(ctx, to, name, sess.Title, message, refs); err != nil {
			logger.Warning("Failed to send valet broadcast", zap.String("to", to), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
