package service

import (
	"fmt"

	"github.com/proteinpath/protein-path-go/internal/apperr"
)

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperr.ErrStorage, op, err)
}
