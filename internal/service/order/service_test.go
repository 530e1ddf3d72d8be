package order

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/cache"
	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/entity"
	"github.com/Additional-Code/stitchbook/internal/messaging"
	repo "github.com/Additional-Code/stitchbook/internal/repository/order"
	"github.com/Additional-Code/stitchbook/internal/storage"
	"github.com/Additional-Code/stitchbook/internal/testutil"
	"github.com/Additional-Code/stitchbook/pkg/errorbank"
)

var fixedNow = time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	dir       string
	publisher *recordingClient
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := t.TempDir()
	publisher := &recordingClient{Client: messaging.NewNoop("orders.lifecycle")}
	svc := NewService(Params{
		Repository: repo.NewRepository(testutil.SQLite(t)),
		Artifacts:  storage.NewLocal(dir, storage.NewNamer()),
		Cache:      cache.NewMemory(16, time.Minute),
		Config:     config.Config{Cache: config.Cache{DefaultTTL: time.Minute}},
		Logger:     zap.NewNop(),
		Publisher:  publisher,
	})
	svc.now = func() time.Time { return fixedNow }
	return fixture{svc: svc, dir: dir, publisher: publisher}
}

func (f fixture) artifacts(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func image(content string) *Image {
	return &Image{Filename: "gown.PNG", Size: int64(len(content)), Content: strings.NewReader(content)}
}

func findOrder(t *testing.T, orders []entity.Order, billNumber string) entity.Order {
	t.Helper()
	for _, o := range orders {
		if o.BillNumber == billNumber {
			return o
		}
	}
	t.Fatalf("order %s not listed", billNumber)
	return entity.Order{}
}

func TestCreateThenCompleteLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	billNumber, err := f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: "B100", DeliveryDate: "2025-01-10"})
	require.NoError(t, err)
	assert.Equal(t, "B100", billNumber)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	created := findOrder(t, all, "B100")
	assert.Equal(t, "", created.Notes)
	assert.Equal(t, entity.StatusPending, created.Status)
	assert.Nil(t, created.CompletionDate)
	assert.Nil(t, created.ImagePath)

	stored, err := f.svc.repo.GetByBillNumber(ctx, "B100")
	require.NoError(t, err)
	assert.True(t, stored.BillDate.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, entity.DefaultCustomerName, stored.CustomerName)

	require.NoError(t, f.svc.CompleteOrder(ctx, "B100"))

	all, err = f.svc.ListAll(ctx)
	require.NoError(t, err)
	completed := findOrder(t, all, "B100")
	assert.Equal(t, entity.StatusComplete, completed.Status)
	require.NotNil(t, completed.CompletionDate)
	assert.True(t, completed.CompletionDate.Equal(fixedNow))

	err = f.svc.CompleteOrder(ctx, "B100")
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound), "second completion is a no-op")
}

func TestCreateOrderStoresImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: "B7", DeliveryDate: "2025-02-01", Notes: "hem 2cm", Image: image("img")})
	require.NoError(t, err)

	files := f.artifacts(t)
	require.Len(t, files, 1)
	assert.Regexp(t, `^B7-style-\d+\.png$`, files[0])

	order, err := f.svc.GetOrder(ctx, "B7")
	require.NoError(t, err)
	require.NotNil(t, order.ImagePath)
	assert.Equal(t, files[0], *order.ImagePath)
	assert.Equal(t, "hem 2cm", order.Notes)
}

func TestCreateOrderDuplicateRollsBackImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: "B1", DeliveryDate: "2025-01-10", Image: image("first")})
	require.NoError(t, err)
	first := f.artifacts(t)
	require.Len(t, first, 1)

	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: "B1", DeliveryDate: "2025-03-10", Image: image("second")})
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))
	assert.Equal(t, first, f.artifacts(t), "failed attempt leaves no artifact")
}

func TestCreateOrderConcurrentSameKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: "RACE", DeliveryDate: "2025-01-10", Image: image("x")})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errorbank.IsKind(err, errorbank.KindConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, f.artifacts(t), 1)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateOrderInput
	}{
		{name: "missing bill number", in: CreateOrderInput{DeliveryDate: "2025-01-10", Image: image("x")}},
		{name: "blank bill number", in: CreateOrderInput{BillNumber: "  ", DeliveryDate: "2025-01-10", Image: image("x")}},
		{name: "missing delivery date", in: CreateOrderInput{BillNumber: "B1", Image: image("x")}},
		{name: "malformed delivery date", in: CreateOrderInput{BillNumber: "B1", DeliveryDate: "10/01/2025", Image: image("x")}},
		{name: "bill number over column width", in: CreateOrderInput{BillNumber: strings.Repeat("B", entity.MaxBillNumberLength+1), DeliveryDate: "2025-01-10", Image: image("x")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateOrder(context.Background(), tc.in)
			require.Error(t, err)
			assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
			assert.Empty(t, f.artifacts(t))

			all, err := f.svc.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestCreateOrderAcceptsBillNumberAtColumnWidth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	billNumber := strings.Repeat("B", entity.MaxBillNumberLength)

	got, err := f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: billNumber, DeliveryDate: "2025-01-10"})
	require.NoError(t, err)
	assert.Equal(t, billNumber, got)

	order, err := f.svc.GetOrder(ctx, billNumber)
	require.NoError(t, err)
	assert.Equal(t, billNumber, order.BillNumber)

	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: billNumber + "X", DeliveryDate: "2025-01-10"})
	appErr := errorbank.From(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, "billNumber is too long", appErr.Message())
}

func TestCompleteOrderMissing(t *testing.T) {
	f := newFixture(t)

	err := f.svc.CompleteOrder(context.Background(), "nope")
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindNotFound, appErr.Kind())
	assert.Equal(t, "order not found or status not updated", appErr.Message())

	err = f.svc.CompleteOrder(context.Background(), " ")
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}

func TestGetOrderUsesCacheAndEvictsOnComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: "C1", DeliveryDate: "2025-01-10"})
	require.NoError(t, err)

	raw, err := f.svc.cache.Get(ctx, cacheKey("C1"))
	require.NoError(t, err, "creation warms the cache")
	var cached entity.Order
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, entity.StatusPending, cached.Status)

	require.NoError(t, f.svc.CompleteOrder(ctx, "C1"))
	_, err = f.svc.cache.Get(ctx, cacheKey("C1"))
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	order, err := f.svc.GetOrder(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusComplete, order.Status)

	_, err = f.svc.GetOrder(ctx, "missing")
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestLifecycleEventsPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{BillNumber: "E1", DeliveryDate: "2025-01-10"})
	require.NoError(t, err)
	require.NoError(t, f.svc.CompleteOrder(ctx, "E1"))

	require.Len(t, f.publisher.published, 2)
	assert.Equal(t, "E1", f.publisher.published[0].key)
	assert.Equal(t, EventOrderCreated, f.publisher.published[0].headers[messaging.HeaderEventType])
	assert.Equal(t, EventOrderCompleted, f.publisher.published[1].headers[messaging.HeaderEventType])

	var event LifecycleEvent
	require.NoError(t, json.Unmarshal(f.publisher.published[0].value, &event))
	assert.Equal(t, "2025-01-10", event.DeliveryDate)
	assert.Equal(t, entity.StatusPending, event.Status)
}

func newMockedService(r *repoMock, s *storeMock) *Service {
	svc := NewService(Params{
		Repository: r,
		Artifacts:  s,
		Logger:     zap.NewNop(),
		Publisher:  messaging.NewNoop("t"),
	})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCreateOrderStorageFailure(t *testing.T) {
	r := &repoMock{}
	s := &storeMock{}
	writeErr := errors.Join(storage.ErrWrite, errors.New("disk full"))
	s.On("Save", mock.Anything, "B1", mock.Anything, int64(1), ".PNG").Return("", writeErr)

	_, err := newMockedService(r, s).CreateOrder(context.Background(), CreateOrderInput{BillNumber: "B1", DeliveryDate: "2025-01-10", Image: image("x")})
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindInternal))
	assert.ErrorIs(t, err, storage.ErrWrite)

	r.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCreateOrderPersistenceFailureRollsBackImage(t *testing.T) {
	r := &repoMock{}
	s := &storeMock{}
	dbErr := errors.New("connection refused")
	s.On("Save", mock.Anything, "B1", mock.Anything, int64(1), ".PNG").Return("B1-style-1.png", nil)
	s.On("Delete", mock.Anything, "B1-style-1.png").Return(nil).Once()
	r.On("Insert", mock.Anything, mock.MatchedBy(func(o *entity.Order) bool {
		return o.ImagePath != nil && *o.ImagePath == "B1-style-1.png"
	})).Return(repo.InsertResult{}, dbErr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := newMockedService(r, s).CreateOrder(ctx, CreateOrderInput{BillNumber: "B1", DeliveryDate: "2025-01-10", Image: image("x")})
	require.Error(t, err)

	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindInternal, appErr.Kind())
	assert.Equal(t, "failed to create order", appErr.Message())
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, storage.ErrWrite)
	s.AssertExpectations(t)
	r.AssertExpectations(t)
}

func TestCreateOrderRollbackFailureKeepsOriginalError(t *testing.T) {
	r := &repoMock{}
	s := &storeMock{}
	s.On("Save", mock.Anything, "B1", mock.Anything, int64(1), ".PNG").Return("B1-style-1.png", nil)
	s.On("Delete", mock.Anything, "B1-style-1.png").Return(os.ErrNotExist)
	r.On("Insert", mock.Anything, mock.Anything).Return(repo.InsertResult{Inserted: false}, nil)

	_, err := newMockedService(r, s).CreateOrder(context.Background(), CreateOrderInput{BillNumber: "B1", DeliveryDate: "2025-01-10", Image: image("x")})
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))
	s.AssertCalled(t, "Delete", mock.Anything, "B1-style-1.png")
}

func TestCreateOrderWithoutImageSkipsStore(t *testing.T) {
	r := &repoMock{}
	s := &storeMock{}
	r.On("Insert", mock.Anything, mock.MatchedBy(func(o *entity.Order) bool {
		return o.ImagePath == nil && o.Notes == "" && o.Status == entity.StatusPending &&
			o.DeliveryDate.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	})).Return(repo.InsertResult{Inserted: true}, nil)

	billNumber, err := newMockedService(r, s).CreateOrder(context.Background(), CreateOrderInput{BillNumber: " B1 ", DeliveryDate: "2025-01-10T18:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "B1", billNumber)
	s.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	r.AssertExpectations(t)
}

func TestCompleteOrderPersistenceFailure(t *testing.T) {
	r := &repoMock{}
	r.On("CompleteIfEligible", mock.Anything, "B1", fixedNow).Return(repo.UpdateResult{}, errors.New("timeout"))

	err := newMockedService(r, &storeMock{}).CompleteOrder(context.Background(), "B1")
	assert.True(t, errorbank.IsKind(err, errorbank.KindInternal))
	r.AssertExpectations(t)
}
