// Package moderation holds the visibility lifecycle shared by messages and comments.
package moderation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidStatus = errors.New("invalid status")

type Status string

const (
	StatusPending Status = "pending"
	StatusVisible Status = "visible"
	StatusHidden  Status = "hidden"
)

// All lists every status in lifecycle order.
var All = []Status{StatusPending, StatusVisible, StatusHidden}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVisible, StatusHidden:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

func Parse(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q (allowed: pending, visible, hidden)", ErrInvalidStatus, raw)
	}
	return s, nil
}

// RegisterValidation adds the `status` tag to v.
func RegisterValidation(v *validator.Validate) *validator.Validate {
	// Only fails on an empty tag or nil func, neither of which can happen here.
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	return v
}

// NewValidator returns a validator with the `status` tag registered.
func NewValidator() *validator.Validate {
	return RegisterValidation(validator.New())
}

// StatusRequest is the body of every admin status change.
type StatusRequest struct {
	Status string `json:"status" validate:"required,status"`
}
