package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/repository"
	"github.com/lisensia/lisensia_api/internal/service"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// stubStore is a canned-response FulfillmentStore for handler tests.
type stubStore struct {
	software    *models.Software
	version     *models.SoftwareVersion
	reservation *repository.Reservation
	reserveErr  error
	releaseN    int
	releaseErr  error
}

func (s *stubStore) GetSoftwareByName(_ context.Context, _ string) (*models.Software, error) {
	if s.software == nil {
		return nil, sql.ErrNoRows
	}
	return s.software, nil
}

func (s *stubStore) GetVersion(_ context.Context, _ int, _, _ string) (*models.SoftwareVersion, error) {
	if s.version == nil {
		return nil, sql.ErrNoRows
	}
	return s.version, nil
}

func (s *stubStore) ReserveLicenses(_ context.Context, _ repository.ReserveParams) (*repository.Reservation, error) {
	if s.reserveErr != nil {
		return nil, s.reserveErr
	}
	return s.reservation, nil
}

func (s *stubStore) CreateOrder(_ context.Context, o *models.Order) error {
	o.ID = 1
	return nil
}

func (s *stubStore) ReleaseOrder(_ context.Context, _ int) (int, error) {
	return s.releaseN, s.releaseErr
}

func newTestRouter(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	fulfillmentSvc := service.NewFulfillmentService(store, nil)
	h := NewOrderHandler(nil, fulfillmentSvc)

	r := gin.New()
	r.POST("/v1/orders/find", h.FindOrder)
	r.POST("/v1/orders/process", h.ProcessOrder)
	r.DELETE("/v1/orders/:id", h.DeleteOrder)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFindOrderFlatContract(t *testing.T) {
	orderID := "WC-1001"
	store := &stubStore{
		software: &models.Software{ID: 1, Name: "Editor", RequiresLicense: true},
		version:  &models.SoftwareVersion{ID: 3, SoftwareID: 1, OS: "windows", Version: "1.0", DownloadLink: "https://dl.example.com/editor"},
		reservation: &repository.Reservation{
			Order:       models.Order{ID: 7, OrderID: orderID, ItemName: "Editor", LicenseCount: 2, Status: models.OrderStatusProcessed},
			LicenseKeys: []string{"KEY-1", "KEY-2"},
		},
	}
	r := newTestRouter(store)

	w := postJSON(t, r, "/v1/orders/find", gin.H{
		"order_id": orderID, "item_name": "Editor", "os": "windows", "version": "1.0", "item_amount": 2,
	})

	require.Equal(t, http.StatusOK, w.Code)

	// The storefront contract is flat: no envelope, explicit nulls.
	var body struct {
		Message      string   `json:"message"`
		Item         string   `json:"item"`
		OrderID      *string  `json:"order_id"`
		DownloadLink *string  `json:"download_link"`
		Licenses     []string `json:"licenses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Order processed successfully", body.Message)
	assert.Equal(t, "Editor", body.Item)
	require.NotNil(t, body.OrderID)
	assert.Equal(t, orderID, *body.OrderID)
	require.NotNil(t, body.DownloadLink)
	assert.Equal(t, "https://dl.example.com/editor", *body.DownloadLink)
	assert.Equal(t, []string{"KEY-1", "KEY-2"}, body.Licenses)
}

func TestFindOrderSoftwareNotFoundStatus(t *testing.T) {
	r := newTestRouter(&stubStore{})

	w := postJSON(t, r, "/v1/orders/find", gin.H{
		"order_id": "WC-1", "item_name": "Unknown",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Software not found")
}

func TestFindOrderInsufficientStockStatus(t *testing.T) {
	store := &stubStore{
		software:   &models.Software{ID: 1, Name: "Editor", RequiresLicense: true},
		reserveErr: utils.ErrInsufficientStock,
	}
	r := newTestRouter(store)

	w := postJSON(t, r, "/v1/orders/find", gin.H{
		"order_id": "WC-1", "item_name": "Editor",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient license stock")
}

func TestFindOrderLinkOnlyFlatContract(t *testing.T) {
	store := &stubStore{
		software:   &models.Software{ID: 1, Name: "ProSuite", RequiresLicense: true, SearchByVersion: true},
		version:    &models.SoftwareVersion{ID: 3, SoftwareID: 1, OS: "windows", Version: "2.0", DownloadLink: "https://dl.example.com/prosuite"},
		reserveErr: utils.ErrInsufficientStock,
	}
	r := newTestRouter(store)

	w := postJSON(t, r, "/v1/orders/find", gin.H{
		"order_id": "WC-1", "item_name": "ProSuite", "os": "windows", "version": "2.0",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://dl.example.com/prosuite", body["download_link"])
	assert.Nil(t, body["order_id"])
	assert.Empty(t, body["licenses"])
}

func TestFindOrderRejectsInvalidBody(t *testing.T) {
	r := newTestRouter(&stubStore{})

	w := postJSON(t, r, "/v1/orders/find", gin.H{"item_name": "Editor"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessOrderVersionNotFoundStatus(t *testing.T) {
	store := &stubStore{
		software: &models.Software{ID: 1, Name: "Editor", RequiresLicense: true},
	}
	r := newTestRouter(store)

	w := postJSON(t, r, "/v1/orders/process", gin.H{
		"order_id": "WC-1", "item_name": "Editor", "os": "windows", "version": "9.9",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Software version not found")
}

func TestDeleteOrderReportsReleasedCount(t *testing.T) {
	r := newTestRouter(&stubStore{releaseN: 3})

	req := httptest.NewRequest(http.MethodDelete, "/v1/orders/7", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"released_licenses":3`)
}

func TestDeleteOrderNotFoundStatus(t *testing.T) {
	r := newTestRouter(&stubStore{releaseErr: utils.ErrOrderNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/v1/orders/7", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
