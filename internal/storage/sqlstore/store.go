// Package sqlstore реализует репозитории поверх sqlx для PostgreSQL и SQLite.
// Запросы пишутся с плейсхолдерами `?` и переписываются через Rebind под драйвер.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Store оборачивает sqlx-подключение и реализует domain.Store.
type Store struct {
	db *sqlx.DB
}

// New создаёт Store поверх открытого подключения. Схема должна быть создана заранее.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB возвращает sqlx DB, когда нужен низкоуровневый доступ.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func repositories(ext sqlx.ExtContext) domain.Repositories {
	return domain.Repositories{
		Products:  &productRepository{db: ext},
		Customers: &customerRepository{db: ext},
		Orders:    &orderRepository{db: ext},
		Payments:  &paymentRepository{db: ext},
		Timeline:  &timelineRepository{db: ext},
		Outbox:    &outboxRepository{db: ext},
		Reports:   &reportRepository{db: ext},
	}
}

// Repositories возвращает репозитории, работающие вне транзакции.
func (s *Store) Repositories() domain.Repositories {
	return repositories(s.db)
}

// Do выполняет fn в транзакции: commit при nil, rollback при ошибке или панике.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(ctx, repositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql store is not initialized")
	}
	return s.db.PingContext(ctx)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ domain.Store = (*Store)(nil)
