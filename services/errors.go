package services

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable wraps any persistence failure that is not a domain outcome.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrUserNotFound         = errors.New("user not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrInvalidTransition    = errors.New("invalid submission status transition")
	ErrConcurrencyExhausted = errors.New("concurrent update retry budget exhausted")

	// ErrVersionConflict is returned by stores when a conditional write lost a race.
	// The engine and ledger retry on it and never surface it.
	ErrVersionConflict = errors.New("version conflict")

	ErrInvalidIdentity = errors.New("invalid wallet address")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrQuestNotFound   = errors.New("quest not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrQuestClosed     = errors.New("quest is not accepting submissions")
)

// storeErr tags err as ErrStoreUnavailable unless it already carries a domain error.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{
		ErrUserNotFound, ErrSubmissionNotFound, ErrVersionConflict,
		ErrInvalidTransition, ErrInvalidArgument, ErrQuestNotFound, ErrStoreUnavailable,
	} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
