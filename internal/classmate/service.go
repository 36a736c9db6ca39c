package classmate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"

	"memorial-service/internal/province"
	"memorial-service/internal/upload"
)

var (
	ErrClassmateNotFound = errors.New("classmate not found")
	ErrInvalidInput      = errors.New("invalid input")
)

// ProvinceChecker resolves province references at write time.
type ProvinceChecker interface {
	ProvinceExists(ctx context.Context, id int64) (bool, error)
}

// ImageStore persists uploaded photos; satisfied by *upload.Uploader.
type ImageStore interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, path string) error
}

type Service interface {
	ListClassmates(ctx context.Context) ([]Classmate, error)
	ListByProvince(ctx context.Context, provinceID int64) ([]Classmate, error)
	GetClassmate(ctx context.Context, id int64) (*Classmate, error)
	CreateClassmate(ctx context.Context, req CreateClassmateRequest, image *multipart.FileHeader) (*Classmate, error)
	UpdateClassmate(ctx context.Context, id int64, req UpdateClassmateRequest, image *multipart.FileHeader) (*Classmate, error)
	DeleteClassmate(ctx context.Context, id int64) error
}

type service struct {
	repo      Repository
	provinces ProvinceChecker
	images    ImageStore
	logger    *slog.Logger
}

func NewService(repo Repository, provinces ProvinceChecker, images ImageStore, logger *slog.Logger) Service {
	return &service{
		repo:      repo,
		provinces: provinces,
		images:    images,
		logger:    logger,
	}
}

func (s *service) ListClassmates(ctx context.Context) ([]Classmate, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) ListByProvince(ctx context.Context, provinceID int64) ([]Classmate, error) {
	return s.repo.GetByProvince(ctx, provinceID)
}

func (s *service) GetClassmate(ctx context.Context, id int64) (*Classmate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) CreateClassmate(ctx context.Context, req CreateClassmateRequest, image *multipart.FileHeader) (*Classmate, error) {
	c := &Classmate{
		Name:       strings.TrimSpace(req.Name),
		School:     strings.TrimSpace(req.School),
		Major:      strings.TrimSpace(req.Major),
		ProvinceID: req.ProvinceID,
		ImagePath:  upload.DefaultImagePath,
	}
	switch {
	case c.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case c.School == "":
		return nil, fmt.Errorf("%w: school is required", ErrInvalidInput)
	case c.Major == "":
		return nil, fmt.Errorf("%w: major is required", ErrInvalidInput)
	case c.ProvinceID <= 0:
		return nil, fmt.Errorf("%w: provinceId is required", ErrInvalidInput)
	}
	if image != nil {
		if err := upload.Validate(image); err != nil {
			return nil, err
		}
	}

	if err := s.requireProvince(ctx, c.ProvinceID); err != nil {
		return nil, err
	}

	if image != nil {
		path, err := s.images.Save(ctx, image)
		if err != nil {
			return nil, err
		}
		c.ImagePath = path
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.discardImage(ctx, c.ImagePath)
		return nil, err
	}
	return s.repo.GetByID(ctx, c.ID)
}

func (s *service) UpdateClassmate(ctx context.Context, id int64, req UpdateClassmateRequest, image *multipart.FileHeader) (*Classmate, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		c.Name = name
	}
	if school := strings.TrimSpace(req.School); school != "" {
		c.School = school
	}
	if major := strings.TrimSpace(req.Major); major != "" {
		c.Major = major
	}
	if req.ProvinceID > 0 && req.ProvinceID != c.ProvinceID {
		if err := s.requireProvince(ctx, req.ProvinceID); err != nil {
			return nil, err
		}
		c.ProvinceID = req.ProvinceID
	}

	newImage := ""
	if image != nil {
		newImage, err = s.images.Save(ctx, image)
		if err != nil {
			return nil, err
		}
		c.ImagePath = newImage
	}

	// Province is reloaded below.
	c.Province = nil
	if err := s.repo.Update(ctx, c); err != nil {
		s.discardImage(ctx, newImage)
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// DeleteClassmate removes the row only; the stored photo stays in the image store.
func (s *service) DeleteClassmate(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) requireProvince(ctx context.Context, id int64) error {
	exists, err := s.provinces.ProvinceExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return province.ErrProvinceNotFound
	}
	return nil
}

func (s *service) discardImage(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.images.Remove(ctx, path); err != nil {
		s.logger.WarnContext(ctx, "failed to remove orphaned image", "path", path, "error", err)
	}
}
