package repository

import (
	"context"

	"scrim-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TxFunc runs fn against a repository set bound to a single transaction.
type TxFunc func(ctx context.Context, fn func(tx *Repository) error) error

type Repository struct {
	Scrim     ScrimRepository
	Booking   BookingRepository
	Payment   PaymentRepository
	Room      RoomRepository
	Promotion PromotionRepository

	runTx TxFunc
}

// WithTx runs fn in one transaction. Calling it on a set that is already
// transaction-bound reuses the open transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.runTx(ctx, fn)
}

// Compose assembles a repository set from arbitrary implementations, used by alternative ledger backends.
func Compose(scrim ScrimRepository, booking BookingRepository, payment PaymentRepository,
	room RoomRepository, promotion PromotionRepository, runTx TxFunc) *Repository {
	return &Repository{
		Scrim:     scrim,
		Booking:   booking,
		Payment:   payment,
		Room:      room,
		Promotion: promotion,
		runTx:     runTx,
	}
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepositorySet(db, log)
	repo.runTx = func(ctx context.Context, fn func(tx *Repository) error) error {
		return database.RunInTx(ctx, db, func(tx pgx.Tx) error {
			txRepo := newRepositorySet(tx, log)
			txRepo.runTx = func(_ context.Context, nested func(*Repository) error) error {
				return nested(txRepo)
			}
			return fn(txRepo)
		})
	}
	return repo
}

func newRepositorySet(db database.DBTX, log *zap.Logger) *Repository {
	return &Repository{
		Scrim:     NewScrimRepository(db, log),
		Booking:   NewBookingRepository(db, log),
		Payment:   NewPaymentRepository(db, log),
		Room:      NewRoomRepository(db, log),
		Promotion: NewPromotionRepository(db, log),
	}
}
