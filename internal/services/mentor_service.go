package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/internal/repository"
)

// MentorService exposes the public mentor directory
type MentorService struct {
	userRepo repository.UserDataSource
}

// NewMentorService creates a new MentorService
func NewMentorService(userRepo repository.UserDataSource) *MentorService {
	return &MentorService{
		userRepo: userRepo,
	}
}

// ListMentors returns all active mentors
func (s *MentorService) ListMentors(ctx context.Context) (*models.UsersResponse, error) {
	mentors, err := s.userRepo.GetAll(ctx, models.RoleMentor)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentors: %w", err)
	}

	active := make([]*models.User, 0, len(mentors))
	for _, m := range mentors {
		if m.IsActive {
			active = append(active, m)
		}
	}

	return &models.UsersResponse{Users: active, Total: len(active)}, nil
}

// GetMentor returns a single active mentor profile
func (s *MentorService) GetMentor(ctx context.Context, id int64) (*models.User, error) {
	mentor, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMentorNotFound
		}
		return nil, fmt.Errorf("failed to get mentor: %w", err)
	}
	if !mentor.IsMentor() || !mentor.IsActive {
		return nil, ErrMentorNotFound
	}
	return mentor, nil
}
