package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Description string             `bson:"description" json:"description"`
	Completed   bool               `bson:"completed" json:"completed"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TaskFilter narrows and orders a task listing. A nil Completed means no
// completion filter; Limit and Skip are ignored when not positive;
// SortField empty means insertion order.
type TaskFilter struct {
	Completed *bool
	Limit     int64
	Skip      int64
	SortField string
	SortAsc   bool
}
