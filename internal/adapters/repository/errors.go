package repository

import (
	"errors"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = model.ErrNotFound
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
