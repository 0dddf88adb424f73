package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aidosgk/kaspi-orders-backend/internal/analytics"
	"github.com/aidosgk/kaspi-orders-backend/internal/kaspi"
	"github.com/aidosgk/kaspi-orders-backend/pkg/enums"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

const entryFetchWorkers = 4

// Orders sold in these states count toward the sales signal.
var soldStates = []enums.OrderState{
	enums.OrderStateCompleted,
	enums.OrderStateArchive,
}

// SummarySource lists orders bucketed into a business-day range.
type SummarySource interface {
	ListOrderSummaries(ctx context.Context, q analytics.Query) ([]analytics.OrderSummary, error)
}

// EntrySource fetches line items for one order.
type EntrySource interface {
	OrderEntries(ctx context.Context, orderID string) ([]kaspi.OrderEntry, error)
}

// SalesCounter derives per-product sold quantities from the upstream order
// feed. It backs ledger recalculation when no explicit sales map is given.
type SalesCounter struct {
	summaries SummarySource
	entries   EntrySource
	logg      *logger.Logger
}

func NewSalesCounter(summaries SummarySource, entries EntrySource, logg *logger.Logger) (*SalesCounter, error) {
	if summaries == nil {
		return nil, errors.New("summary source is required")
	}
	if entries == nil {
		return nil, errors.New("entry source is required")
	}
	return &SalesCounter{summaries: summaries, entries: entries, logg: logg}, nil
}

// CountSales tallies units sold per product code across business days in
// [start, end]. Entries without a product code are skipped.
func (c *SalesCounter) CountSales(ctx context.Context, start, end time.Time) (map[string]int, error) {
	orders, err := c.summaries.ListOrderSummaries(ctx, analytics.Query{
		Start:     start,
		End:       end,
		DateField: enums.DateFieldCreation,
		States:    soldStates,
	})
	if err != nil {
		return nil, err
	}

	sales := make(map[string]int)
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(entryFetchWorkers)
	for _, order := range orders {
		order := order
		group.Go(func() error {
			entries, err := c.entries.OrderEntries(groupCtx, order.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, entry := range entries {
				if entry.ProductCode == "" {
					continue
				}
				sales[entry.ProductCode] += entry.Quantity
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if c.logg != nil {
		fields := map[string]any{"orders": len(orders), "products": len(sales)}
		c.logg.Info(c.logg.WithFields(ctx, fields), "sales window counted")
	}
	return sales, nil
}
