package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/olegkanal/taskapp/internal/models"
)

// CreateUser inserts a new account document, stamping timestamps and
// filling in the generated id. A unique-index collision on the email
// field maps to ErrEmailTaken.
func (m *Mongo) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Tokens == nil {
		user.Tokens = []string{}
	}

	res, err := m.Users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("mongo: insert user: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *Mongo) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

// UserByIDAndToken loads the account only when the exact presented token
// is still in its session list, which is what makes server-side
// revocation effective.
func (m *Mongo) UserByIDAndToken(ctx context.Context, id primitive.ObjectID, token string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id, "tokens": token})
}

// SaveUser replaces the whole document, mirroring last-writer-wins
// semantics for concurrent updates to the same account.
func (m *Mongo) SaveUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := m.Users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("mongo: save user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUserAndTasks removes the account and everything it owns. On
// deployments that support multi-document transactions the two deletes
// commit atomically; on a standalone server it falls back to deleting
// tasks first so a partial failure can strand a user record but never an
// orphaned task.
func (m *Mongo) DeleteUserAndTasks(ctx context.Context, id primitive.ObjectID) error {
	if session, err := m.Client.StartSession(); err == nil {
		defer session.EndSession(ctx)

		_, txnErr := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, m.deleteUserAndTasks(sc, id)
		})
		if txnErr == nil || errors.Is(txnErr, ErrNotFound) {
			return txnErr
		}
		// transactions are rejected on standalone servers; retry without one
	}

	return m.deleteUserAndTasks(ctx, id)
}

func (m *Mongo) deleteUserAndTasks(ctx context.Context, id primitive.ObjectID) error {
	if _, err := m.Tasks.DeleteMany(ctx, bson.M{"owner": id}); err != nil {
		return fmt.Errorf("mongo: delete owned tasks: %w", err)
	}

	res, err := m.Users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := m.Users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo: find user: %w", err)
	}
	return &user, nil
}
