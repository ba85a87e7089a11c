package datastore

import (
	"context"
	"database/sql"

	"openelex-backend/internal/models"
)

const DefaultBulkSize = 1000

// BulkInserter is a bounded buffer in front of a flush sink. Records
// appended before a flush persist before any record appended after it;
// order within a single batch is unspecified.
type BulkInserter[T any] struct {
	buf     []T
	maxSize int
	count   int64
	flushes int64
	sink    func(ctx context.Context, batch []T) error
}

func NewBulkInserter[T any](maxSize int, sink func(ctx context.Context, batch []T) error) *BulkInserter[T] {
	if maxSize <= 0 {
		maxSize = DefaultBulkSize
	}
	return &BulkInserter[T]{
		buf:     make([]T, 0, maxSize),
		maxSize: maxSize,
		sink:    sink,
	}
}

func (b *BulkInserter[T]) Append(ctx context.Context, item T) error {
	b.buf = append(b.buf, item)
	b.count++
	if len(b.buf) >= b.maxSize {
		return b.Flush(ctx)
	}
	return nil
}

func (b *BulkInserter[T]) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	batch := b.buf
	b.buf = make([]T, 0, b.maxSize)
	b.flushes++
	return b.sink(ctx, batch)
}

// Count reports the total number of records appended so far.
func (b *BulkInserter[T]) Count() int64 { return b.count }

// Pending reports how many records sit unflushed in the buffer.
func (b *BulkInserter[T]) Pending() int { return len(b.buf) }

// Flushes reports how many times the sink has been invoked.
func (b *BulkInserter[T]) Flushes() int64 { return b.flushes }

// NewRawResultInserter buffers RawResult rows and writes each batch
// inside one transaction.
func NewRawResultInserter(db *sql.DB, maxSize int) *BulkInserter[models.RawResult] {
	return NewBulkInserter(maxSize, func(ctx context.Context, batch []models.RawResult) error {
		return inTx(ctx, db, func(qtx *Queries) error {
			for _, r := range batch {
				if err := qtx.CreateRawResult(ctx, r); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// NewResultInserter buffers canonical Result rows the same way.
func NewResultInserter(db *sql.DB, maxSize int) *BulkInserter[models.Result] {
	return NewBulkInserter(maxSize, func(ctx context.Context, batch []models.Result) error {
		return inTx(ctx, db, func(qtx *Queries) error {
			for _, r := range batch {
				if err := qtx.CreateResult(ctx, r); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func inTx(ctx context.Context, db *sql.DB, fn func(qtx *Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(New(db).WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}
