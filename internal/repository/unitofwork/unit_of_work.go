package unitofwork

import (
	"solar-parcel-be/internal/repository/contract"
)

// UnitOfWork hands out repositories bound to one request context.
type UnitOfWork interface {
	SearchLogRepository() contract.SearchLogRepository

	// Transaction runs fn with repositories sharing a single transaction. A returned error
	// rolls it back.
	Transaction(fn func(tx UnitOfWork) error) error
}
