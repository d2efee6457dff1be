package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/postwave/postwave/internal/models"
	"github.com/postwave/postwave/internal/repository"
)

type UserService interface {
	GetInfo(ctx context.Context, userID int64) (*models.User, error)
}

type userService struct {
	u repository.UserRepository
}

func NewUserService(u repository.UserRepository) UserService {
	return &userService{u: u}
}

func (s *userService) GetInfo(ctx context.Context, userID int64) (*models.User, error) {
	user, exists, err := s.u.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = errors.New("user doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}
	return user, nil
}
