package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrConflictExhausted = errors.New("conflict retries exhausted")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUpstream          = errors.New("upstream unavailable")

	// errWriteConflict 乐观写冲突，只在重试循环内部流转
	errWriteConflict = errors.New("write conflict")
)

// storeErr 把存储层错误归入统一的错误分类
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errWriteConflict
	case isDomainErr(err):
		return err
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
}

func isDomainErr(err error) bool {
	for _, target := range []error{
		ErrUnauthorized, ErrForbidden, ErrNotFound, ErrValidation,
		ErrConflictExhausted, ErrStoreUnavailable, ErrUpstream, errWriteConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
