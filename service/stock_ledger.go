package service

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"grocery_store/metrics"
	"grocery_store/model"
)

// StockLine is one product/quantity pair to reserve or restore.
type StockLine struct {
	ProductID uint
	Quantity  int
}

// Reservation records what Reserve actually decremented.
type Reservation struct {
	Lines []StockLine
}

// StockLedger is the only component allowed to move product stock counters.
type StockLedger struct {
	products ProductRepository
	metrics  *metrics.OrderMetrics
	logger   *zap.Logger
}

func NewStockLedger(products ProductRepository, m *metrics.OrderMetrics, logger *zap.Logger) *StockLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockLedger{products: products, metrics: m, logger: logger}
}

// Check validates lines against an already loaded product set without mutating anything.
func (l *StockLedger) Check(products map[uint]model.Product, lines []StockLine) error {
	for _, line := range aggregateLines(lines) {
		product, ok := products[line.ProductID]
		if !ok {
			return validationError(ErrProductUnavailable, "Product %d is no longer available", line.ProductID)
		}
		if !product.IsActive {
			return validationError(ErrProductInactive, "Product %s is not available for purchase", product.Name)
		}
		if product.Stock < line.Quantity {
			return conflictError(ErrInsufficientStock, "Insufficient stock for %s. Available: %d, requested: %d",
				product.Name, product.Stock, line.Quantity)
		}
	}
	return nil
}

// Reserve decrements stock for every line or for none. Each decrement is a single
// conditional update, so concurrent reservations cannot oversell. On a failed line the
// lines already taken in this call are given back before returning.
func (l *StockLedger) Reserve(ctx context.Context, lines []StockLine) (Reservation, error) {
	agg := aggregateLines(lines)
	if len(agg) == 0 {
		return Reservation{}, validationError(ErrEmptyCart, "Cart is empty")
	}

	taken := make([]StockLine, 0, len(agg))
	for _, line := range agg {
		if line.Quantity < 1 {
			l.compensate(ctx, taken)
			return Reservation{}, validationError(nil, "Quantity for product %d must be at least 1", line.ProductID)
		}
		ok, err := l.products.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			l.compensate(ctx, taken)
			return Reservation{}, internalError(err, "stock reservation")
		}
		if !ok {
			l.compensate(ctx, taken)
			l.metrics.StockRejected()
			return Reservation{}, l.classify(ctx, line)
		}
		taken = append(taken, line)
	}
	return Reservation{Lines: taken}, nil
}

// Restore re-increments stock unconditionally. Exactly-once is the caller's job and is
// enforced through the order status compare-and-swap.
func (l *StockLedger) Restore(ctx context.Context, lines []StockLine) error {
	for _, line := range aggregateLines(lines) {
		if err := l.products.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			return internalError(err, "stock restoration")
		}
	}
	return nil
}

func (l *StockLedger) compensate(ctx context.Context, taken []StockLine) {
	for _, line := range taken {
		if err := l.products.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			l.logger.Error("stock compensation failed",
				zap.Uint("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
		}
	}
}

func (l *StockLedger) classify(ctx context.Context, line StockLine) error {
	products, err := l.products.FindByIDs(ctx, []uint{line.ProductID})
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return internalError(err, "stock lookup")
	}
	if checkErr := l.Check(products, []StockLine{line}); checkErr != nil {
		return checkErr
	}
	// The row changed between the update and the lookup; report it as contention.
	return conflictError(ErrInsufficientStock, "Insufficient stock for product %d", line.ProductID)
}

// aggregateLines merges duplicate products and orders lines by product id so that
// concurrent multi-item reservations lock rows in the same order.
func aggregateLines(lines []StockLine) []StockLine {
	totals := make(map[uint]int, len(lines))
	for _, line := range lines {
		totals[line.ProductID] += line.Quantity
	}
	out := make([]StockLine, 0, len(totals))
	for id, qty := range totals {
		out = append(out, StockLine{ProductID: id, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b StockLine) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})
	return out
}

func linesFromItems(items []model.OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}
