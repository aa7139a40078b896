package contract

import (
	"context"

	"solar-parcel-be/internal/entity"
	"solar-parcel-be/internal/repository/specification"
)

type SearchLogRepository interface {
	Create(ctx context.Context, log *entity.SearchLog) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SearchLog, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SearchLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
