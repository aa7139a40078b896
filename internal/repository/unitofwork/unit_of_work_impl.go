package unitofwork

import (
	"context"

	"solar-parcel-be/internal/repository/contract"
	"solar-parcel-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type unitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(ctx context.Context, db *gorm.DB) UnitOfWork {
	return &unitOfWork{db: db.WithContext(ctx)}
}

func (u *unitOfWork) SearchLogRepository() contract.SearchLogRepository {
	return implementation.NewSearchLogRepository(u.db)
}

func (u *unitOfWork) Transaction(fn func(tx UnitOfWork) error) error {
	return u.db.Transaction(func(tx *gorm.DB) error {
		return fn(&unitOfWork{db: tx})
	})
}
