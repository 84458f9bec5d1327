package service

import (
	"context"

	"github.com/zenpost/planner-bot/internal/domain/entity"
)

type UserStorage interface {
	Upsert(ctx context.Context, user *entity.User) (*entity.User, error)
	Get(ctx context.Context, id int64) (*entity.User, error)
	GetAll(ctx context.Context) ([]entity.User, error)
	Update(ctx context.Context, user *entity.User) (*entity.User, error)
	Count(ctx context.Context) (int64, error)
}

type UserService struct {
	userStorage UserStorage
}

func NewUserService(userStorage UserStorage) *UserService {
	return &UserService{
		userStorage: userStorage,
	}
}

// Touch registers a user on first contact and refreshes the name fields on
// every later one. The stored set of users is the broadcast audience.
func (s *UserService) Touch(ctx context.Context, user entity.User) (*entity.User, error) {
	return s.userStorage.Upsert(ctx, &user)
}

func (s *UserService) Get(ctx context.Context, userID int64) (*entity.User, error) {
	return s.userStorage.Get(ctx, userID)
}

func (s *UserService) Update(ctx context.Context, user *entity.User) (*entity.User, error) {
	return s.userStorage.Update(ctx, user)
}

func (s *UserService) GetAll(ctx context.Context) ([]entity.User, error) {
	return s.userStorage.GetAll(ctx)
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.userStorage.Count(ctx)
}

func (s *UserService) Ban(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.userStorage.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Banned = !user.Banned
	return s.userStorage.Update(ctx, user)
}
