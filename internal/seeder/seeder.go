package seeder

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/entity"
	repo "github.com/Additional-Code/stitchbook/internal/repository/order"
)

// Module provides the Seeder to the Fx graph.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	repo   *repo.Repository
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Seeder on top of the order repository.
func New(r *repo.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{repo: r, logger: logger, now: time.Now}
}

// Orders seeds example orders if they are missing. Existing bill numbers are
// left untouched, so the seed can be rerun.
func (s *Seeder) Orders(ctx context.Context) (int, error) {
	today := entity.DateOf(s.now())
	notes := []string{"", "shorten sleeves", "two fittings requested", "rush"}

	inserted := 0
	for i, note := range notes {
		order := &entity.Order{
			BillNumber:   sampleBillNumber(i),
			CustomerName: entity.DefaultCustomerName,
			BillDate:     today,
			DeliveryDate: today.AddDate(0, 0, 3*(i+1)),
			TotalAmount:  entity.DefaultTotalAmount,
			Notes:        note,
			Status:       entity.StatusPending,
		}
		res, err := s.repo.Insert(ctx, order)
		if err != nil {
			return inserted, err
		}
		if res.Inserted {
			inserted++
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("inserted", inserted), zap.Int("samples", len(notes)))
	}
	return inserted, nil
}

func sampleBillNumber(i int) string {
	return "SEED-" + string(rune('A'+i))
}
