package service

import (
	"context"

	"grocery_store/model"
)

type QuoteLine struct {
	ProductID   uint
	ProductName string
	Quantity    int
	UnitPrice   float64
	LineTotal   float64
}

type Quote struct {
	Lines       []QuoteLine
	TotalAmount float64
}

// OrderItems turns the quote into the immutable line snapshot stored on the order.
func (q Quote) OrderItems() []model.OrderItem {
	items := make([]model.OrderItem, 0, len(q.Lines))
	for _, line := range q.Lines {
		items = append(items, model.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	return items
}

func (q Quote) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(q.Lines))
	for _, line := range q.Lines {
		lines = append(lines, StockLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return lines
}

// PricingEngine prices cart contents against live catalog prices.
type PricingEngine struct {
	products ProductRepository
	ledger   *StockLedger
}

func NewPricingEngine(products ProductRepository, ledger *StockLedger) *PricingEngine {
	return &PricingEngine{products: products, ledger: ledger}
}

// Price rejects the whole cart if any product is missing, inactive or short on stock.
// Tax is not part of TotalAmount; see model.Tax.
func (p *PricingEngine) Price(ctx context.Context, items []model.CartItem) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, validationError(ErrEmptyCart, "Cart is empty")
	}

	ids := make([]uint, 0, len(items))
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return Quote{}, validationError(nil, "Quantity for product %d must be at least 1", item.ProductID)
		}
		ids = append(ids, item.ProductID)
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	products, err := p.products.FindByIDs(ctx, ids)
	if err != nil {
		return Quote{}, internalError(err, "product lookup")
	}
	if err := p.ledger.Check(products, lines); err != nil {
		return Quote{}, err
	}

	quote := Quote{Lines: make([]QuoteLine, 0, len(items))}
	var total float64
	for _, item := range items {
		product := products[item.ProductID]
		line := QuoteLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			LineTotal:   model.RoundMoney(float64(item.Quantity) * product.Price),
		}
		total += line.LineTotal
		quote.Lines = append(quote.Lines, line)
	}
	quote.TotalAmount = model.RoundMoney(total)
	return quote, nil
}
