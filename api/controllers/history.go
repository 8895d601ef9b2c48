package controllers

import (
	"net/http"

	"github.com/ecomhq/storefront-backend/api/responses"
	"github.com/ecomhq/storefront-backend/internal/ledger"
	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/ecomhq/storefront-backend/pkg/logger"
)

// PurchaseHistory returns the shopper's past purchases, newest first.
func PurchaseHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		accountID, err := currentSubjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.History(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}
