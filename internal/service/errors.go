package service

import (
	"errors"

	"github.com/pageza/recipe-app-api/backend/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrInvalidImage       = errors.New("upload a valid image: the file you uploaded was either not an image or a corrupted image")
	ErrImageTooLarge      = errors.New("image exceeds the maximum upload size")

	// re-exported so handlers only depend on this package for domain errors
	ErrEmailRequired    = models.ErrEmailRequired
	ErrPasswordTooShort = models.ErrPasswordTooShort
)
