package dto

import (
	"encoding/json"
	"time"

	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/pkg/constants"
)

// SecurityEventView is the read-model projection of one audit entry.
type SecurityEventView struct {
	ID             string                      `json:"id"`
	EventType      constants.SecurityEventType `json:"event_type"`
	KeyID          *string                     `json:"key_id,omitempty"`
	KeyHash        *string                     `json:"key_hash,omitempty"`
	IPAddress      string                      `json:"ip_address"`
	UserAgent      string                      `json:"user_agent,omitempty"`
	RequestID      string                      `json:"request_id,omitempty"`
	OrganizationID *string                     `json:"organization_id,omitempty"`
	Metadata       json.RawMessage             `json:"metadata,omitempty"`
	Message        string                      `json:"message"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// NewSecurityEventView projects a stored event. The signature stays internal.
func NewSecurityEventView(e *models.SecurityEvent) *SecurityEventView {
	return &SecurityEventView{
		ID:             e.ID,
		EventType:      e.EventType,
		KeyID:          e.KeyID,
		KeyHash:        e.KeyHash,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		RequestID:      e.RequestID,
		OrganizationID: e.OrganizationID,
		Metadata:       e.Metadata,
		Message:        e.Message,
		CreatedAt:      e.CreatedAt,
	}
}

// SecurityEventListResponse wraps a page of audit entries.
type SecurityEventListResponse struct {
	Events []*SecurityEventView `json:"events"`
	Count  int                  `json:"count"`
}

// NewSecurityEventListResponse projects a slice of stored events.
func NewSecurityEventListResponse(events []*models.SecurityEvent) *SecurityEventListResponse {
	views := make([]*SecurityEventView, 0, len(events))
	for _, e := range events {
		views = append(views, NewSecurityEventView(e))
	}
	return &SecurityEventListResponse{Events: views, Count: len(views)}
}
