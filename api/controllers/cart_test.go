package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecomhq/storefront-backend/api/middleware"
	cartsvc "github.com/ecomhq/storefront-backend/internal/cart"
	"github.com/ecomhq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
)

type stubCartService struct {
	line     *models.CartLine
	view     *cartsvc.View
	checkout *cartsvc.CheckoutResult
	err      error
	addedQty *int
}

func (s stubCartService) AddLine(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*models.CartLine, error) {
	if s.addedQty != nil {
		*s.addedQty = quantity
	}
	return s.line, s.err
}

func (s stubCartService) SetQuantity(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*models.CartLine, error) {
	return s.line, s.err
}

func (s stubCartService) RemoveLine(ctx context.Context, accountID, productID uuid.UUID) error {
	return s.err
}

func (s stubCartService) View(ctx context.Context, accountID uuid.UUID) (*cartsvc.View, error) {
	return s.view, s.err
}

func (s stubCartService) Checkout(ctx context.Context, accountID uuid.UUID, at time.Time) (*cartsvc.CheckoutResult, error) {
	return s.checkout, s.err
}

func withChiParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithSubjectID(req.Context(), uuid.NewString()))
}

func TestCartViewSuccess(t *testing.T) {
	view := &cartsvc.View{
		Lines: []cartsvc.ViewLine{{
			ProductID:   uuid.New(),
			ProductName: "Walnut Desk",
			UnitPrice:   decimal.NewFromInt(420),
			Quantity:    2,
			LineTotal:   decimal.NewFromInt(840),
		}},
		Total: decimal.NewFromInt(840),
	}
	handler := CartView(stubCartService{view: view}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data cartsvc.View `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Lines) != 1 || envelope.Data.Lines[0].ProductName != "Walnut Desk" {
		t.Fatalf("unexpected view payload: %+v", envelope.Data)
	}
}

func TestCartViewMissingSubject(t *testing.T) {
	handler := CartView(stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddDefaultsQuantityToOne(t *testing.T) {
	var got int
	handler := CartAdd(stubCartService{line: &models.CartLine{Quantity: 1}, addedQty: &got}, nil)

	body := `{"product_id":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/lines", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got != 1 {
		t.Fatalf("expected quantity 1 got %d", got)
	}
}

func TestCartAddSurfacesQuantityValidation(t *testing.T) {
	handler := CartAdd(stubCartService{err: pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")}, nil)

	body := `{"product_id":"` + uuid.NewString() + `","quantity":0}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/lines", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartSetQuantityNotFound(t *testing.T) {
	handler := CartSetQuantity(stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}, nil)

	target := "/api/v1/cart/lines/" + uuid.NewString()
	req := authedRequest(http.MethodPut, target, `{"quantity":3}`)
	req = withChiParam(req, "productId", uuid.NewString())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	handler := Checkout(stubCartService{checkout: &cartsvc.CheckoutResult{Empty: true}}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data cartsvc.CheckoutResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Empty {
		t.Fatalf("expected empty checkout outcome, got %+v", envelope.Data)
	}
}
