package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"grocery_store/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type memProducts struct {
	mu       sync.Mutex
	products map[uint]model.Product
}

func newMemProducts(products ...model.Product) *memProducts {
	m := &memProducts{products: make(map[uint]model.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memProducts) FindByIDs(_ context.Context, ids []uint) (map[uint]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memProducts) DecrementStock(_ context.Context, id uint, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || !p.IsActive || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	m.products[id] = p
	return true, nil
}

func (m *memProducts) IncrementStock(_ context.Context, id uint, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrRecordNotFound
	}
	p.Stock += qty
	m.products[id] = p
	return nil
}

func (m *memProducts) stock(id uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memProducts) setPrice(id uint, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Price = price
	m.products[id] = p
}

type memOrders struct {
	mu        sync.Mutex
	orders    map[uint]model.Order
	nextID    uint
	nextItem  uint
	createErr error
	// afterUpdate mutates the stored copy after a successful write.
	afterUpdate func(*model.Order)
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uint]model.Order)}
}

func cloneOrder(o model.Order) model.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func (m *memOrders) Create(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	order.ID = m.nextID
	for i := range order.Items {
		m.nextItem++
		order.Items[i].ID = m.nextItem
		order.Items[i].OrderID = order.ID
	}
	m.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id uint) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, ErrRecordNotFound
	}
	return cloneOrder(o), nil
}

func (m *memOrders) Update(_ context.Context, order model.Order, expectedVersion uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if stored.Version != expectedVersion {
		return ErrStaleWrite
	}
	next := cloneOrder(order)
	next.Items = stored.Items
	next.Version = expectedVersion + 1
	if m.afterUpdate != nil {
		m.afterUpdate(&next)
	}
	m.orders[order.ID] = next
	return nil
}

func (m *memOrders) List(_ context.Context, f OrderFilter) ([]model.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.Order
	for _, o := range m.orders {
		if f.OwnerID != nil && o.OwnerID != *f.OwnerID {
			continue
		}
		if f.OrderStatus != "" && o.OrderStatus != f.OrderStatus {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		switch f.RefundStatus {
		case "":
		case model.RefundFilterNone:
			if o.Refund.Requested {
				continue
			}
		default:
			if string(o.Refund.Status) != f.RefundStatus {
				continue
			}
		}
		matched = append(matched, cloneOrder(o))
	}
	slices.SortFunc(matched, func(a, b model.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	end := min(f.Offset+f.Limit, len(matched))
	return matched[f.Offset:end], total, nil
}

func (m *memOrders) get(t *testing.T, id uint) model.Order {
	t.Helper()
	o, err := m.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("order %d: %v", id, err)
	}
	return o
}

// put replaces a stored order, used to arrange states that need several admin steps.
func (m *memOrders) put(o model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = cloneOrder(o)
}

type memCarts struct {
	mu        sync.Mutex
	nextID    uint
	items     map[uint][]model.CartItem
	removeErr error
	// afterRead runs once the cart was read, outside the lock, to stage a concurrent change.
	afterRead func()
}

func newMemCarts() *memCarts {
	return &memCarts{items: make(map[uint][]model.CartItem)}
}

func (m *memCarts) set(userID uint, items ...model.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[userID] = nil
	m.addLocked(userID, items...)
}

func (m *memCarts) add(userID uint, items ...model.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(userID, items...)
}

func (m *memCarts) addLocked(userID uint, items ...model.CartItem) {
	for _, item := range items {
		m.nextID++
		item.ID = m.nextID
		item.UserID = userID
		m.items[userID] = append(m.items[userID], item)
	}
}

func (m *memCarts) Items(_ context.Context, userID uint) ([]model.CartItem, error) {
	m.mu.Lock()
	items := slices.Clone(m.items[userID])
	hook := m.afterRead
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return items, nil
}

func (m *memCarts) Remove(_ context.Context, userID uint, itemIDs []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return 0, m.removeErr
	}
	before := len(m.items[userID])
	m.items[userID] = slices.DeleteFunc(m.items[userID], func(item model.CartItem) bool {
		return slices.Contains(itemIDs, item.ID)
	})
	return int64(before - len(m.items[userID])), nil
}

type memUsers struct {
	admins []uint
	users  map[uint]model.User
}

func (m *memUsers) AdminIDs(context.Context) ([]uint, error) {
	return m.admins, nil
}

func (m *memUsers) FindByID(_ context.Context, id uint) (model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrRecordNotFound
	}
	return u, nil
}

type captureNotifier struct {
	mu      sync.Mutex
	emitted []model.Notification
	err     error
	panics  bool
}

func (c *captureNotifier) Emit(_ context.Context, n model.Notification) error {
	if c.panics {
		panic("notifier exploded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.emitted = append(c.emitted, n)
	return nil
}

func (c *captureNotifier) ofType(kind model.NotificationType) []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Notification
	for _, n := range c.emitted {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

type memBlobs struct {
	mu        sync.Mutex
	seq       int
	stored    map[string][]byte
	deleted   []string
	storeErr  error
	deleteErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{stored: make(map[string][]byte)}
}

func (m *memBlobs) Store(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return "", m.storeErr
	}
	m.seq++
	url := fmt.Sprintf("https://blobs.test/%s-%d.png", name, m.seq)
	m.stored[url] = data
	return url, nil
}

func (m *memBlobs) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.stored, url)
	return nil
}

type fixture struct {
	svc      *OrderService
	products *memProducts
	orders   *memOrders
	carts    *memCarts
	users    *memUsers
	notifier *captureNotifier
	blobs    *memBlobs
}

const (
	adminID    uint = 1
	customerID uint = 7
	strangerID uint = 8

	productA uint = 100
	productB uint = 200
)

type fixtureOption func(*OrderServiceDeps)

func withRender(render func(string, int) ([]byte, error)) fixtureOption {
	return func(d *OrderServiceDeps) {
		d.Payments = NewPaymentPathResolver(PaymentResolverConfig{
			MerchantUPIID: "freshcart@okaxis",
			MerchantName:  "FreshCart",
			Render:        render,
			NewNote:       func() string { return "01JTESTNOTE" },
		})
	}
}

func withMerchant(upi string) fixtureOption {
	return func(d *OrderServiceDeps) {
		d.Payments = NewPaymentPathResolver(PaymentResolverConfig{
			MerchantUPIID: upi,
			MerchantName:  "FreshCart",
			NewNote:       func() string { return "01JTESTNOTE" },
		})
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		products: newMemProducts(
			model.Product{DTO: model.DTO{ID: productA}, Name: "Apples", Price: 10, Stock: 10, IsActive: true},
			model.Product{DTO: model.DTO{ID: productB}, Name: "Bread", Price: 2.5, Stock: 3, IsActive: true},
		),
		orders: newMemOrders(),
		carts:  newMemCarts(),
		users: &memUsers{
			admins: []uint{adminID},
			users: map[uint]model.User{
				adminID:    {DTO: model.DTO{ID: adminID}, Name: "Admin", Role: "admin"},
				customerID: {DTO: model.DTO{ID: customerID}, Name: "Asha", Role: "user"},
			},
		},
		notifier: &captureNotifier{},
		blobs:    newMemBlobs(),
	}
	var seq atomic.Int64
	deps := OrderServiceDeps{
		Orders:   f.orders,
		Products: f.products,
		Carts:    f.carts,
		Users:    f.users,
		Blobs:    f.blobs,
		Notifier: f.notifier,
		Clock:    func() time.Time { return fixedNow },
		NewPublicCode: func() string {
			return fmt.Sprintf("ORD-%08X", seq.Add(1))
		},
		Dispatch: func(fn func()) { fn() },
	}
	withMerchant("freshcart@okaxis")(&deps)
	for _, opt := range opts {
		opt(&deps)
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	f.svc = svc
	return f
}

func testAddress() *model.ShippingAddress {
	return &model.ShippingAddress{
		FullName:   "Asha Rao",
		Phone:      "9876543210",
		Street:     "12 Market Road",
		City:       "Pune",
		State:      "MH",
		PostalCode: "411001",
	}
}

// placeOrder puts qty of productA in the customer's cart and creates an order for it.
func (f *fixture) placeOrder(t *testing.T, method model.PaymentMethod, qty int) model.Order {
	t.Helper()
	f.carts.set(customerID, model.CartItem{UserID: customerID, ProductID: productA, Quantity: qty})
	res, err := f.svc.Create(context.Background(), CreateOrderCommand{
		OwnerID:         customerID,
		PaymentMethod:   method,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return res.Order
}

var errBoom = errors.New("boom")
