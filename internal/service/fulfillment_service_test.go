package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/repository"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// fakeStore is an in-memory FulfillmentStore with the same semantics as the
// database-backed repository: ascending-id claims, all-or-nothing
// reservations, released keys returning to the pool.
type fakeStore struct {
	mu       sync.Mutex
	software []*models.Software
	versions []*models.SoftwareVersion
	licenses []*fakeLicense
	orders   map[int]*fakeOrder

	nextSoftwareID int
	nextVersionID  int
	nextLicenseID  int
	nextOrderID    int
}

type fakeLicense struct {
	id         int
	softwareID int
	versionID  *int
	key        string
	used       bool
}

type fakeOrder struct {
	order      models.Order
	licenseIDs []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[int]*fakeOrder)}
}

func (f *fakeStore) addSoftware(name string, requiresLicense, searchByVersion bool) *models.Software {
	f.nextSoftwareID++
	s := &models.Software{
		ID:              f.nextSoftwareID,
		Name:            name,
		RequiresLicense: requiresLicense,
		SearchByVersion: searchByVersion,
	}
	f.software = append(f.software, s)
	return s
}

func (f *fakeStore) addVersion(softwareID int, os, version, link string) *models.SoftwareVersion {
	f.nextVersionID++
	v := &models.SoftwareVersion{
		ID:           f.nextVersionID,
		SoftwareID:   softwareID,
		OS:           os,
		Version:      version,
		DownloadLink: link,
	}
	f.versions = append(f.versions, v)
	return v
}

func (f *fakeStore) addLicenses(softwareID int, versionID *int, keys ...string) {
	for _, key := range keys {
		f.nextLicenseID++
		f.licenses = append(f.licenses, &fakeLicense{
			id:         f.nextLicenseID,
			softwareID: softwareID,
			versionID:  versionID,
			key:        key,
		})
	}
}

func (f *fakeStore) availableKeys(softwareID int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for _, l := range f.licenses {
		if l.softwareID == softwareID && !l.used {
			keys = append(keys, l.key)
		}
	}
	return keys
}

func (f *fakeStore) GetSoftwareByName(_ context.Context, name string) (*models.Software, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.software {
		if strings.EqualFold(s.Name, name) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetVersion(_ context.Context, softwareID int, os, version string) (*models.SoftwareVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.SoftwareID == softwareID && v.OS == os && v.Version == version {
			copied := *v
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) ReserveLicenses(_ context.Context, p repository.ReserveParams) (*repository.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var candidates []*fakeLicense
	for _, l := range f.licenses {
		if l.softwareID != p.SoftwareID || l.used {
			continue
		}
		if p.VersionID != nil && (l.versionID == nil || *l.versionID != *p.VersionID) {
			continue
		}
		candidates = append(candidates, l)
		if len(candidates) == p.Quantity {
			break
		}
	}
	if len(candidates) < p.Quantity {
		return nil, utils.ErrInsufficientStock
	}

	keys := make([]string, len(candidates))
	ids := make([]int, len(candidates))
	for i, l := range candidates {
		l.used = true
		keys[i] = l.key
		ids[i] = l.id
	}

	f.nextOrderID++
	order := models.Order{
		ID:           f.nextOrderID,
		OrderID:      p.OrderID,
		ItemName:     p.ItemName,
		OS:           p.OS,
		Version:      p.Version,
		LicenseCount: p.Quantity,
		Status:       models.OrderStatusProcessed,
		SoftwareID:   &p.SoftwareID,
	}
	f.orders[order.ID] = &fakeOrder{order: order, licenseIDs: ids}

	return &repository.Reservation{Order: order, LicenseKeys: keys}, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextOrderID++
	o.ID = f.nextOrderID
	f.orders[o.ID] = &fakeOrder{order: *o}
	return nil
}

func (f *fakeStore) ReleaseOrder(_ context.Context, orderID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fo, ok := f.orders[orderID]
	if !ok {
		return 0, utils.ErrOrderNotFound
	}
	for _, id := range fo.licenseIDs {
		for _, l := range f.licenses {
			if l.id == id {
				l.used = false
			}
		}
	}
	delete(f.orders, orderID)
	return len(fo.licenseIDs), nil
}

func newTestService(store *fakeStore) *FulfillmentService {
	return NewFulfillmentService(store, nil)
}

func TestFindOrderSoftwareNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "Ghostwriter", ItemAmount: 1,
	})
	assert.ErrorIs(t, err, utils.ErrSoftwareNotFound)
}

func TestFindOrderNoLicenseRequired(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("FreeTool", false, false)
	store.addVersion(sw.ID, "windows", "1.0", "https://dl.example.com/freetool")
	svc := newTestService(store)

	result, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "freetool", OS: "windows", Version: "1.0", ItemAmount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoLicenseRequired, result.Outcome)
	require.NotNil(t, result.DownloadLink)
	assert.Equal(t, "https://dl.example.com/freetool", *result.DownloadLink)
	assert.Empty(t, result.Licenses)
	assert.Nil(t, result.OrderID)
	// No order is recorded on this path.
	assert.Empty(t, store.orders)
}

func TestFindOrderVersionNotFound(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("ProSuite", true, true)
	store.addLicenses(sw.ID, nil, "KEY-1")
	svc := newTestService(store)

	result, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "ProSuite", OS: "mac", Version: "9.9", ItemAmount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeVersionNotFound, result.Outcome)
	assert.Empty(t, result.Licenses)
	assert.Empty(t, store.orders)
	assert.Len(t, store.availableKeys(sw.ID), 1)
}

func TestFindOrderClaimsOldestKeysFirst(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("Editor", true, false)
	store.addLicenses(sw.ID, nil, "KEY-1", "KEY-2", "KEY-3")
	svc := newTestService(store)

	result, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "Editor", ItemAmount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, result.Outcome)
	assert.Equal(t, []string{"KEY-1", "KEY-2"}, result.Licenses)
	require.NotNil(t, result.OrderID)
	assert.Equal(t, "ORD-1", *result.OrderID)
	assert.Equal(t, []string{"KEY-3"}, store.availableKeys(sw.ID))
	assert.Len(t, store.orders, 1)
}

func TestFindOrderInsufficientStockLeavesPoolUntouched(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("Editor", true, false)
	store.addLicenses(sw.ID, nil, "KEY-1", "KEY-2")
	svc := newTestService(store)

	_, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "Editor", ItemAmount: 5,
	})
	assert.ErrorIs(t, err, utils.ErrInsufficientStock)
	// A failed claim never consumes keys or records an order.
	assert.Len(t, store.availableKeys(sw.ID), 2)
	assert.Empty(t, store.orders)
}

func TestFindOrderLinkOnlyFallback(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("ProSuite", true, true)
	v := store.addVersion(sw.ID, "windows", "2.0", "https://dl.example.com/prosuite")
	store.addLicenses(sw.ID, &v.ID, "KEY-1")
	svc := newTestService(store)

	// Drain the pool first.
	_, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "ProSuite", OS: "windows", Version: "2.0", ItemAmount: 1,
	})
	require.NoError(t, err)

	result, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-2", ItemName: "ProSuite", OS: "windows", Version: "2.0", ItemAmount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeLinkOnly, result.Outcome)
	require.NotNil(t, result.DownloadLink)
	assert.Equal(t, "https://dl.example.com/prosuite", *result.DownloadLink)
	assert.Empty(t, result.Licenses)
	assert.Nil(t, result.OrderID)
	// Only the first request produced an order.
	assert.Len(t, store.orders, 1)
}

func TestFindOrderLinkOnlyOnPartialShortage(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("Editor", true, false)
	store.addVersion(sw.ID, "windows", "1.0", "https://dl.example.com/editor")
	store.addLicenses(sw.ID, nil, "KEY-1")
	svc := newTestService(store)

	// Two requested, one available: the link ships instead of a partial claim.
	result, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "Editor", OS: "windows", Version: "1.0", ItemAmount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeLinkOnly, result.Outcome)
	assert.Empty(t, result.Licenses)
	assert.Len(t, store.availableKeys(sw.ID), 1)
	assert.Empty(t, store.orders)
}

func TestFindOrderNoFallbackWithoutDownloadLink(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("ProSuite", true, true)
	store.addVersion(sw.ID, "windows", "2.0", "")
	svc := newTestService(store)

	_, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "ProSuite", OS: "windows", Version: "2.0", ItemAmount: 1,
	})
	assert.ErrorIs(t, err, utils.ErrInsufficientStock)
}

func TestFindOrderScopesPoolByVersion(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("ProSuite", true, true)
	v1 := store.addVersion(sw.ID, "windows", "1.0", "https://dl.example.com/v1")
	v2 := store.addVersion(sw.ID, "windows", "2.0", "https://dl.example.com/v2")
	store.addLicenses(sw.ID, &v1.ID, "V1-KEY")
	store.addLicenses(sw.ID, &v2.ID, "V2-KEY")
	svc := newTestService(store)

	result, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "ProSuite", OS: "windows", Version: "2.0", ItemAmount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"V2-KEY"}, result.Licenses)
	assert.Contains(t, store.availableKeys(sw.ID), "V1-KEY")
}

func TestFindOrderUnscopedPoolIgnoresVersionPin(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("Editor", true, false)
	v := store.addVersion(sw.ID, "windows", "1.0", "")
	store.addLicenses(sw.ID, &v.ID, "PINNED-KEY")
	store.addLicenses(sw.ID, nil, "FREE-KEY")
	svc := newTestService(store)

	result, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "Editor", ItemAmount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PINNED-KEY", "FREE-KEY"}, result.Licenses)
}

func TestFindOrderConcurrentClaimsNoDoubleAllocation(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("Editor", true, false)
	keys := make([]string, 10)
	for i := range keys {
		keys[i] = "KEY-" + string(rune('A'+i))
	}
	store.addLicenses(sw.ID, nil, keys...)
	svc := newTestService(store)

	const attempts = 20
	var wg sync.WaitGroup
	results := make([][]string, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.FindOrder(context.Background(), FindOrderRequest{
				OrderID: "ORD", ItemName: "Editor", ItemAmount: 1,
			})
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = r.Licenses
		}(i)
	}
	wg.Wait()

	claimed := make(map[string]int)
	succeeded := 0
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], utils.ErrInsufficientStock)
			continue
		}
		succeeded++
		for _, k := range results[i] {
			claimed[k]++
		}
	}

	assert.Equal(t, len(keys), succeeded)
	for key, n := range claimed {
		assert.Equal(t, 1, n, "key %s claimed more than once", key)
	}
	assert.Empty(t, store.availableKeys(sw.ID))
}

func TestProcessOrderVersionRequired(t *testing.T) {
	store := newFakeStore()
	store.addSoftware("Editor", true, false)
	svc := newTestService(store)

	_, err := svc.ProcessOrder(context.Background(), ProcessOrderRequest{
		OrderID: "ORD-1", ItemName: "Editor", OS: "windows", Version: "9.9", LicenseCount: 1,
	})
	assert.ErrorIs(t, err, utils.ErrVersionNotFound)
}

func TestProcessOrderCreatesOrderWithoutLicense(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("FreeTool", false, false)
	store.addVersion(sw.ID, "windows", "1.0", "https://dl.example.com/freetool")
	svc := newTestService(store)

	result, err := svc.ProcessOrder(context.Background(), ProcessOrderRequest{
		OrderID: "ORD-1", ItemName: "FreeTool", OS: "windows", Version: "1.0", LicenseCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoLicenseRequired, result.Outcome)
	assert.Empty(t, result.Licenses)
	// Unlike the find path, an order is recorded even without licenses.
	require.Len(t, store.orders, 1)
	for _, fo := range store.orders {
		assert.Equal(t, 0, fo.order.LicenseCount)
		assert.Equal(t, models.OrderStatusProcessed, fo.order.Status)
	}
}

func TestProcessOrderShortageIsHardFailure(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("ProSuite", true, true)
	store.addVersion(sw.ID, "windows", "2.0", "https://dl.example.com/prosuite")
	svc := newTestService(store)

	// Even with a download link available, the process path has no fallback.
	_, err := svc.ProcessOrder(context.Background(), ProcessOrderRequest{
		OrderID: "ORD-1", ItemName: "ProSuite", OS: "windows", Version: "2.0", LicenseCount: 1,
	})
	assert.ErrorIs(t, err, utils.ErrInsufficientStock)
	assert.Empty(t, store.orders)
}

func TestReleaseOrderReturnsKeysToPool(t *testing.T) {
	store := newFakeStore()
	sw := store.addSoftware("Editor", true, false)
	store.addLicenses(sw.ID, nil, "KEY-1", "KEY-2")
	svc := newTestService(store)

	result, err := svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-1", ItemName: "Editor", ItemAmount: 2,
	})
	require.NoError(t, err)
	assert.Empty(t, store.availableKeys(sw.ID))

	var internalID int
	for id := range store.orders {
		internalID = id
	}
	released, err := svc.ReleaseOrder(context.Background(), internalID)
	require.NoError(t, err)
	assert.Equal(t, 2, released)
	assert.Len(t, store.availableKeys(sw.ID), 2)
	assert.Empty(t, store.orders)

	// Released keys are immediately claimable again.
	result, err = svc.FindOrder(context.Background(), FindOrderRequest{
		OrderID: "ORD-2", ItemName: "Editor", ItemAmount: 2,
	})
	require.NoError(t, err)
	assert.Len(t, result.Licenses, 2)
}

func TestReleaseOrderNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.ReleaseOrder(context.Background(), 42)
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}
