package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
)

// FailureReason classifies why a commit was rejected.
type FailureReason string

const (
	ReasonEmptyCart             FailureReason = "EMPTY_CART"
	ReasonInsufficientInventory FailureReason = "INSUFFICIENT_INVENTORY"
	ReasonProductUnavailable    FailureReason = "PRODUCT_UNAVAILABLE"
	ReasonUnknown               FailureReason = "UNKNOWN"
)

// CommitError is the typed rejection of an order commit. ProductID is set
// when a specific line caused the failure.
type CommitError struct {
	Reason    FailureReason
	ProductID uuid.UUID
	message   string
}

func newCommitError(reason FailureReason, productID uuid.UUID, message string) *CommitError {
	return &CommitError{Reason: reason, ProductID: productID, message: message}
}

func (e *CommitError) Error() string {
	if e.ProductID != uuid.Nil {
		return fmt.Sprintf("%s: %s (product %s)", e.Reason, e.message, e.ProductID)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.message)
}

// AsAPIError maps the rejection onto the platform error codes used by the
// HTTP layer.
func (e *CommitError) AsAPIError() *pkgerrors.Error {
	details := map[string]any{"reason": string(e.Reason)}
	if e.ProductID != uuid.Nil {
		details["product_id"] = e.ProductID.String()
	}

	switch e.Reason {
	case ReasonEmptyCart:
		return pkgerrors.New(pkgerrors.CodeValidation, e.message).WithDetails(details)
	case ReasonInsufficientInventory, ReasonProductUnavailable:
		return pkgerrors.New(pkgerrors.CodeConflict, e.message).WithDetails(details)
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, e.message).WithDetails(details)
	}
}
