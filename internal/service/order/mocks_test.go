package order

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Additional-Code/stitchbook/internal/entity"
	"github.com/Additional-Code/stitchbook/internal/messaging"
	repo "github.com/Additional-Code/stitchbook/internal/repository/order"
)

type repoMock struct{ mock.Mock }

func (m *repoMock) Insert(ctx context.Context, order *entity.Order) (repo.InsertResult, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(repo.InsertResult), args.Error(1)
}

func (m *repoMock) CompleteIfEligible(ctx context.Context, billNumber string, completedAt time.Time) (repo.UpdateResult, error) {
	args := m.Called(ctx, billNumber, completedAt)
	return args.Get(0).(repo.UpdateResult), args.Error(1)
}

func (m *repoMock) ListPending(ctx context.Context, start, end time.Time) ([]entity.Order, error) {
	args := m.Called(ctx, start, end)
	orders, _ := args.Get(0).([]entity.Order)
	return orders, args.Error(1)
}

func (m *repoMock) ListAll(ctx context.Context) ([]entity.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]entity.Order)
	return orders, args.Error(1)
}

func (m *repoMock) GetByBillNumber(ctx context.Context, billNumber string) (*entity.Order, error) {
	args := m.Called(ctx, billNumber)
	order, _ := args.Get(0).(*entity.Order)
	return order, args.Error(1)
}

type storeMock struct{ mock.Mock }

func (m *storeMock) Save(ctx context.Context, key string, payload io.Reader, size int64, ext string) (string, error) {
	args := m.Called(ctx, key, payload, size, ext)
	return args.String(0), args.Error(1)
}

func (m *storeMock) Delete(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

type publishedMessage struct {
	key     string
	value   []byte
	headers map[string]string
}

// recordingClient captures published messages.
type recordingClient struct {
	messaging.Client
	published []publishedMessage
}

func (r *recordingClient) Publish(_ context.Context, key, value []byte, headers map[string]string) error {
	r.published = append(r.published, publishedMessage{key: string(key), value: value, headers: headers})
	return nil
}
