package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("storage: not found")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
