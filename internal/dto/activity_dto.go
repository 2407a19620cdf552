package dto

import (
	"time"

	"github.com/ClearMarkApp/backend/internal/models"
)

// ActivityListRequest filters the audit trail.
type ActivityListRequest struct {
	EntityType string `query:"entity_type" validate:"omitempty,max=64"`
	EntityID   uint   `query:"entity_id"`
	Action     string `query:"action" validate:"omitempty,max=64"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// ActivityResponse is an audit trail entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewActivityResponse converts a model into a DTO.
func NewActivityResponse(model models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range model.Metadata {
		metadata[key] = value
	}

	return ActivityResponse{
		ID:         model.ID,
		ActorID:    model.ActorID,
		ActorRole:  model.ActorRole,
		Action:     model.Action,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		Metadata:   metadata,
		CreatedAt:  model.CreatedAt,
	}
}
