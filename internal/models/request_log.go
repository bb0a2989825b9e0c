package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestLog is one served HTTP request, stored in MongoDB.
type RequestLog struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	RequestID string             `json:"request_id" bson:"request_id"`
	Method    string             `json:"method" bson:"method"`
	Path      string             `json:"path" bson:"path"`
	Status    int                `json:"status" bson:"status"`
	LatencyMs int64              `json:"latency_ms" bson:"latency_ms"`
	UserID    uint               `json:"user_id,omitempty" bson:"user_id,omitempty"`
	RemoteIP  string             `json:"remote_ip" bson:"remote_ip"`
	Error     string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
