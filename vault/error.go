package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrOperationFailed matches every backend failure. Callers may
	// retry operations that fail with it.
	ErrOperationFailed = errors.New("vault operation failed")

	// ErrKeyNotFound is wrapped by OperationFailedError when the key
	// id is unknown to the vault.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnsupportedType is wrapped by OperationFailedError when a
	// vault cannot handle the requested secret type.
	ErrUnsupportedType = errors.New("unsupported secret type")
)

// OperationFailedError is returned when a vault backend cannot carry
// out an operation.
type OperationFailedError struct {
	Op  string
	Key KeyID
	Err error
}

var _ error = (*OperationFailedError)(nil)

func (e *OperationFailedError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("vault %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("vault %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *OperationFailedError) Unwrap() error {
	return e.Err
}

// Is makes every OperationFailedError match ErrOperationFailed.
func (e *OperationFailedError) Is(target error) bool {
	return target == ErrOperationFailed
}

// Failed wraps err as an OperationFailedError. A nil err stays nil,
// and an err that already is an OperationFailedError is returned
// unchanged.
func Failed(op string, key KeyID, err error) error {
	if err == nil {
		return nil
	}
	var already *OperationFailedError
	if errors.As(err, &already) {
		return err
	}
	return &OperationFailedError{Op: op, Key: key, Err: err}
}
