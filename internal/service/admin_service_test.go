package service

import (
	"context"
	"testing"
	"time"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/internal/entity"
	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_GetSearchLogs(t *testing.T) {
	db := newLogDB(t)
	uowFactory := unitofwork.NewRepositoryFactory(db)
	ctx := context.Background()

	repo := uowFactory.NewUnitOfWork(ctx).SearchLogRepository()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	seed := []struct {
		session string
		outcome string
	}{
		{"s1", "completed"},
		{"s1", "exhausted"},
		{"s2", "completed"},
		{"s2", "off_topic"},
		{"s2", "completed"},
	}
	for i, row := range seed {
		require.NoError(t, repo.Create(ctx, &entity.SearchLog{
			Id:        uuid.New(),
			SessionId: row.session,
			Query:     "parcels",
			Outcome:   row.outcome,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	svc := NewAdminService(uowFactory, logger.NewNopLogger())

	tests := []struct {
		name      string
		req       dto.SearchLogListRequest
		wantTotal int64
		wantItems int
	}{
		{"first page", dto.SearchLogListRequest{Page: 1, Limit: 2}, 5, 2},
		{"last page", dto.SearchLogListRequest{Page: 3, Limit: 2}, 5, 1},
		{"by session", dto.SearchLogListRequest{Page: 1, Limit: 10, SessionId: "s1"}, 2, 2},
		{"by outcome", dto.SearchLogListRequest{Page: 1, Limit: 10, Outcome: "completed"}, 3, 3},
		{"both", dto.SearchLogListRequest{Page: 1, Limit: 10, SessionId: "s2", Outcome: "off_topic"}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.GetSearchLogs(ctx, &tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Len(t, res.Items, tt.wantItems)
		})
	}

	res, err := svc.GetSearchLogs(ctx, &dto.SearchLogListRequest{Page: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "completed", res.Items[0].Outcome)
	assert.Equal(t, "s2", res.Items[0].SessionId, "newest first")
}
