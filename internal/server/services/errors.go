package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/logging"
)

// Clock returns the current time. Services stamp rows with it.
type Clock func() time.Time

// known are the errors a service may hand to its caller as they are.
var known = []error{
	common.ErrValidation,
	common.ErrDuplicateUsername,
	common.ErrDuplicatePhone,
	common.ErrInvalidCredentials,
	common.ErrorNotFound,
	common.ErrorUnauthorized,
	common.ErrPoolExhausted,
}

// translate passes known errors through and turns everything else into
// common.ErrStorage, logging the raw cause first.
func translate(ctx context.Context, log logging.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	log.Error(ctx, "storage failure", "op", op, "error", err)
	return common.ErrStorage
}
