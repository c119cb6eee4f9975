package catering

import (
	"fmt"
	"strings"

	cateringModel "eventpilot/models/catering"
)

type CateringRequest struct {
	HostID         *string                    `json:"hostId"`
	HostName       *string                    `json:"hostName"`
	HostingType    *cateringModel.HostingType `json:"hostingType"`
	IsSelfCatering *bool                      `json:"isSelfCatering"`
	Notes          *string                    `json:"notes"`
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func (r CateringRequest) ValidateCreate() error {
	if r.HostingType == nil {
		return fmt.Errorf("نوع الضيافة مطلوب")
	}
	if err := r.validateType(); err != nil {
		return err
	}
	self := r.IsSelfCatering != nil && *r.IsSelfCatering
	if !self && blank(r.HostID) && blank(r.HostName) {
		return fmt.Errorf("يجب تحديد المضيف أو اختيار ضيافة ذاتية")
	}
	return nil
}

func (r CateringRequest) ValidateUpdate() error {
	return r.validateType()
}

func (r CateringRequest) validateType() error {
	if r.HostingType != nil && !r.HostingType.IsValid() {
		return fmt.Errorf("نوع الضيافة غير صالح")
	}
	return nil
}

func optional(s *string) *string {
	if blank(s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (r CateringRequest) Model(sessionID string) cateringModel.Catering {
	row := cateringModel.Catering{
		SessionID: sessionID,
		HostID:    optional(r.HostID),
		HostName:  optional(r.HostName),
		Notes:     optional(r.Notes),
	}
	if r.HostingType != nil {
		row.HostingType = *r.HostingType
	}
	if r.IsSelfCatering != nil {
		row.IsSelfCatering = *r.IsSelfCatering
	}
	return row
}

func (r CateringRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if r.HostID != nil {
		cols["host_id"] = optional(r.HostID)
	}
	if r.HostName != nil {
		cols["host_name"] = optional(r.HostName)
	}
	if r.HostingType != nil {
		cols["hosting_type"] = *r.HostingType
	}
	if r.IsSelfCatering != nil {
		cols["is_self_catering"] = *r.IsSelfCatering
	}
	if r.Notes != nil {
		cols["notes"] = optional(r.Notes)
	}
	return cols
}
