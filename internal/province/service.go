package province

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProvinceNotFound = errors.New("province not found")
	ErrProvinceExists   = errors.New("province with this name already exists")
	ErrInvalidInput     = errors.New("invalid input")
)

type Service interface {
	ListProvinces(ctx context.Context) ([]Province, error)
	GetProvince(ctx context.Context, id int64) (*Province, error)
	// ProvinceExists lets other directories check references without loading the row.
	ProvinceExists(ctx context.Context, id int64) (bool, error)
	CreateProvince(ctx context.Context, req CreateProvinceRequest) (*Province, error)
	UpdateProvince(ctx context.Context, id int64, req UpdateProvinceRequest) (*Province, error)
	DeleteProvince(ctx context.Context, id int64) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListProvinces(ctx context.Context) ([]Province, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) GetProvince(ctx context.Context, id int64) (*Province, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ProvinceExists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *service) CreateProvince(ctx context.Context, req CreateProvinceRequest) (*Province, error) {
	p := &Province{
		Name:        strings.TrimSpace(req.Name),
		EnglishName: strings.TrimSpace(req.EnglishName),
		Description: req.Description,
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if p.EnglishName == "" {
		return nil, fmt.Errorf("%w: englishName is required", ErrInvalidInput)
	}
	if req.Position == nil || req.Position.X == nil || req.Position.Y == nil {
		return nil, fmt.Errorf("%w: position.x and position.y are required", ErrInvalidInput)
	}
	p.Position = Position{X: *req.Position.X, Y: *req.Position.Y}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) UpdateProvince(ctx context.Context, id int64, req UpdateProvinceRequest) (*Province, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		p.Name = name
	}
	if englishName := strings.TrimSpace(req.EnglishName); englishName != "" {
		p.EnglishName = englishName
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Position != nil {
		if req.Position.X == nil || req.Position.Y == nil {
			return nil, fmt.Errorf("%w: position needs both x and y", ErrInvalidInput)
		}
		p.Position = Position{X: *req.Position.X, Y: *req.Position.Y}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProvince leaves classmates that reference the province untouched.
func (s *service) DeleteProvince(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
