package controllers

import (
	"errors"
	"net/http"

	"github.com/dmarceau/storefront-backend/api/middleware"
	"github.com/dmarceau/storefront-backend/api/responses"
	"github.com/dmarceau/storefront-backend/api/validators"
	"github.com/dmarceau/storefront-backend/internal/checkout"
	"github.com/dmarceau/storefront-backend/pkg/logger"
	"github.com/dmarceau/storefront-backend/pkg/types"
)

type commitOrderRequest struct {
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	BillingAddress  types.Address `json:"billing_address" validate:"required"`
	PaymentRef      string        `json:"payment_ref" validate:"required"`
}

// CheckoutCommit turns the user's cart into an order.
func CheckoutCommit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload commitOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Commit(r.Context(), checkout.CommitInput{
			UserID:          userID,
			DeviceID:        middleware.DeviceIDFromContext(r.Context()),
			ShippingAddress: payload.ShippingAddress,
			BillingAddress:  payload.BillingAddress,
			PaymentRef:      payload.PaymentRef,
		})
		if err != nil {
			var commitErr *checkout.CommitError
			if errors.As(err, &commitErr) {
				responses.WriteError(r.Context(), logg, w, commitErr.AsAPIError())
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
