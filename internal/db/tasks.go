package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/olegkanal/taskapp/internal/models"
)

func (m *Mongo) CreateTask(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	res, err := m.Tasks.InsertOne(ctx, task)
	if err != nil {
		return fmt.Errorf("mongo: insert task: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		task.ID = id
	}
	return nil
}

// TaskByIDAndOwner loads a task only when it belongs to owner; a task
// owned by someone else is indistinguishable from a missing one.
func (m *Mongo) TaskByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := m.Tasks.FindOne(ctx, bson.M{"_id": id, "owner": owner}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo: find task: %w", err)
	}
	return &task, nil
}

func (m *Mongo) TasksByOwner(ctx context.Context, owner primitive.ObjectID, filter models.TaskFilter) ([]models.Task, error) {
	query := bson.M{"owner": owner}
	if filter.Completed != nil {
		query["completed"] = *filter.Completed
	}

	opts := options.Find()
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Skip > 0 {
		opts.SetSkip(filter.Skip)
	}
	if filter.SortField != "" {
		direction := -1
		if filter.SortAsc {
			direction = 1
		}
		opts.SetSort(bson.D{{Key: filter.SortField, Value: direction}})
	}

	cursor, err := m.Tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("mongo: decode tasks: %w", err)
	}
	return tasks, nil
}

func (m *Mongo) SaveTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()

	res, err := m.Tasks.ReplaceOne(ctx, bson.M{"_id": task.ID, "owner": task.Owner}, task)
	if err != nil {
		return fmt.Errorf("mongo: save task: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask removes an owner-scoped task and returns the deleted document.
func (m *Mongo) DeleteTask(ctx context.Context, id, owner primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := m.Tasks.FindOneAndDelete(ctx, bson.M{"_id": id, "owner": owner}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo: delete task: %w", err)
	}
	return &task, nil
}
