package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// state — все данные in-memory хранилища. Unit of work работает с копией state
// и подменяет оригинал только при успешном завершении.
type state struct {
	products  map[int64]domain.Product
	customers map[int64]domain.Customer
	orders    map[int64]domain.Order
	payments  map[int64]domain.Payment // по order id
	timeline  map[int64][]domain.TimelineEvent
	outbox    map[string]outboxRecord

	productSeq  int64
	customerSeq int64
	orderSeq    int64
	itemSeq     int64
	paymentSeq  int64
	outboxSeq   int64
}

func newState() *state {
	return &state{
		products:  make(map[int64]domain.Product),
		customers: make(map[int64]domain.Customer),
		orders:    make(map[int64]domain.Order),
		payments:  make(map[int64]domain.Payment),
		timeline:  make(map[int64][]domain.TimelineEvent),
		outbox:    make(map[string]outboxRecord),
	}
}

// clone делает снимок: карты копируются, срезы позиций и событий тоже.
func (s *state) clone() *state {
	c := *s
	c.products = make(map[int64]domain.Product, len(s.products))
	for k, v := range s.products {
		c.products[k] = v
	}
	c.customers = make(map[int64]domain.Customer, len(s.customers))
	for k, v := range s.customers {
		c.customers[k] = v
	}
	c.orders = make(map[int64]domain.Order, len(s.orders))
	for k, v := range s.orders {
		v.Items = append([]domain.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	c.payments = make(map[int64]domain.Payment, len(s.payments))
	for k, v := range s.payments {
		c.payments[k] = v
	}
	c.timeline = make(map[int64][]domain.TimelineEvent, len(s.timeline))
	for k, v := range s.timeline {
		c.timeline[k] = append([]domain.TimelineEvent(nil), v...)
	}
	c.outbox = make(map[string]outboxRecord, len(s.outbox))
	for k, v := range s.outbox {
		c.outbox[k] = v
	}
	return &c
}

// Store — in-memory реализация domain.Store для локальной разработки и тестов.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{state: newState()}
}

// access даёт репозиториям доступ к данным: вне транзакции под мьютексом Store,
// внутри unit of work напрямую к снимку (мьютекс уже захвачен в Do).
type access struct {
	store *Store
	tx    *state
}

func (a access) read(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	return fn(a.store.state)
}

func (a access) write(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

func repositories(a access) domain.Repositories {
	return domain.Repositories{
		Products:  &productRepository{a},
		Customers: &customerRepository{a},
		Orders:    &orderRepository{a},
		Payments:  &paymentRepository{a},
		Timeline:  &timelineRepository{a},
		Outbox:    &outboxRepository{a},
		Reports:   &reportRepository{a},
	}
}

// Repositories возвращает репозитории, каждый вызов которых атомарен сам по себе.
func (s *Store) Repositories() domain.Repositories {
	return repositories(access{store: s})
}

// Do выполняет fn под эксклюзивной блокировкой над снимком состояния.
// Снимок публикуется только если fn вернула nil.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, repositories(access{store: s, tx: snapshot})); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

// Ping всегда успешен: хранилище в памяти процесса.
func (s *Store) Ping(context.Context) error { return nil }

// Close ничего не освобождает.
func (s *Store) Close() error { return nil }

var _ domain.Store = (*Store)(nil)
