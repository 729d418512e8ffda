package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateProduct = errors.New("product already exists")
	ErrTemporary        = errors.New("temporary failure")
)

// MessageNotFound is the user-facing message for a total cascade miss. The
// client offers manual entry on it.
const MessageNotFound = "Product not found in any database. You can add this product manually."

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
