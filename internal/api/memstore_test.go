package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/olegkanal/taskapp/internal/db"
	"github.com/olegkanal/taskapp/internal/models"
)

// memStore is an in-memory Store so handler tests run without a live
// Mongo. It mirrors the repository contract, including the sentinel
// errors and copy-on-read semantics.
type memStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
	tasks map[primitive.ObjectID]*models.Task
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[primitive.ObjectID]*models.User),
		tasks: make(map[primitive.ObjectID]*models.Task),
	}
}

func (s *memStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return db.ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Tokens == nil {
		user.Tokens = []string{}
	}

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *memStore) UserByIDAndToken(_ context.Context, id primitive.ObjectID, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || !user.HasToken(token) {
		return nil, db.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *memStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return db.ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return db.ErrEmailTaken
		}
	}

	user.UpdatedAt = time.Now().UTC()
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *memStore) DeleteUserAndTasks(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.users, id)
	for taskID, task := range s.tasks {
		if task.Owner == id {
			delete(s.tasks, taskID)
		}
	}
	return nil
}

func (s *memStore) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now

	stored := *task
	s.tasks[task.ID] = &stored
	return nil
}

func (s *memStore) TaskByIDAndOwner(_ context.Context, id, owner primitive.ObjectID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Owner != owner {
		return nil, db.ErrNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *memStore) TasksByOwner(_ context.Context, owner primitive.ObjectID, filter models.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := []models.Task{}
	for _, task := range s.tasks {
		if task.Owner != owner {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		list = append(list, *task)
	}

	sort.SliceStable(list, func(i, j int) bool {
		if filter.SortField != "" && !filter.SortAsc {
			i, j = j, i
		}
		switch filter.SortField {
		case "description":
			return list[i].Description < list[j].Description
		case "completed":
			return !list[i].Completed && list[j].Completed
		default:
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
	})

	if filter.Skip > 0 {
		if filter.Skip >= int64(len(list)) {
			return []models.Task{}, nil
		}
		list = list[filter.Skip:]
	}
	if filter.Limit > 0 && filter.Limit < int64(len(list)) {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (s *memStore) SaveTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok || existing.Owner != task.Owner {
		return db.ErrNotFound
	}

	task.UpdatedAt = time.Now().UTC()
	stored := *task
	s.tasks[task.ID] = &stored
	return nil
}

func (s *memStore) DeleteTask(_ context.Context, id, owner primitive.ObjectID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Owner != owner {
		return nil, db.ErrNotFound
	}
	delete(s.tasks, id)
	copied := *task
	return &copied, nil
}

func copyUser(user *models.User) *models.User {
	copied := *user
	copied.Tokens = append([]string(nil), user.Tokens...)
	copied.Avatar = append([]byte(nil), user.Avatar...)
	return &copied
}
