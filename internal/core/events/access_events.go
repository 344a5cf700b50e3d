package events

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeAccessDecision = "access.decision"

type AccessDecisionEvent struct {
	BaseEvent
	Operation  string `json:"operation"`
	Resource   string `json:"resource"`
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	TenantID   string `json:"tenant_id"`
	ResourceID string `json:"resource_id,omitempty"`
	Granted    bool   `json:"granted"`
	Count      int    `json:"count"`
}

func NewAccessDecisionEvent(operation, resource, userID, role, tenantID, resourceID string, granted bool, count int) *AccessDecisionEvent {
	return &AccessDecisionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessDecision,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"operation":   operation,
				"resource":    resource,
				"user_id":     userID,
				"role":        role,
				"tenant_id":   tenantID,
				"resource_id": resourceID,
				"granted":     granted,
				"count":       count,
			},
		},
		Operation:  operation,
		Resource:   resource,
		UserID:     userID,
		Role:       role,
		TenantID:   tenantID,
		ResourceID: resourceID,
		Granted:    granted,
		Count:      count,
	}
}
