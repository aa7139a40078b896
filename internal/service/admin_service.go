package service

import (
	"context"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/internal/entity"
	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/internal/repository/specification"
	"solar-parcel-be/internal/repository/unitofwork"
)

type IAdminService interface {
	GetSearchLogs(ctx context.Context, req *dto.SearchLogListRequest) (*dto.SearchLogListResponse, error)
	GetSystemLogs(ctx context.Context, req *dto.LogListRequest) ([]*dto.LogListResponse, error)
	GetLogDetail(ctx context.Context, id string) (*dto.LogListResponse, error)
}

type adminService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewAdminService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IAdminService {
	return &adminService{uowFactory: uowFactory, logger: log}
}

func (s *adminService) GetSearchLogs(ctx context.Context, req *dto.SearchLogListRequest) (*dto.SearchLogListResponse, error) {
	var filters []specification.Specification
	if req.SessionId != "" {
		filters = append(filters, specification.BySession{SessionID: req.SessionId})
	}
	if req.Outcome != "" {
		filters = append(filters, specification.ByOutcome{Outcome: req.Outcome})
	}

	var (
		total int64
		logs  []*entity.SearchLog
	)
	// Count and page are read in one transaction so they agree while the consumer writes.
	err := s.uowFactory.NewUnitOfWork(ctx).Transaction(func(tx unitofwork.UnitOfWork) error {
		repo := tx.SearchLogRepository()

		var err error
		if total, err = repo.Count(ctx, filters...); err != nil {
			return err
		}

		specs := append(append([]specification.Specification{}, filters...),
			specification.OrderBy{Field: "created_at", Desc: true},
			specification.Pagination{Limit: req.Limit, Offset: (req.Page - 1) * req.Limit},
		)
		logs, err = repo.FindAll(ctx, specs...)
		return err
	})
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SearchLogResponse, 0, len(logs))
	for _, l := range logs {
		items = append(items, toSearchLogResponse(l))
	}
	return &dto.SearchLogListResponse{Items: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *adminService) GetSystemLogs(_ context.Context, req *dto.LogListRequest) ([]*dto.LogListResponse, error) {
	entries, err := s.logger.GetLogs(logger.LogFilter{
		Level:  req.Level,
		Module: req.Module,
		Limit:  req.Limit,
		Offset: (req.Page - 1) * req.Limit,
	})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.LogListResponse, 0, len(entries))
	for i := range entries {
		res = append(res, toLogResponse(&entries[i]))
	}
	return res, nil
}

func (s *adminService) GetLogDetail(_ context.Context, id string) (*dto.LogListResponse, error) {
	entry, err := s.logger.GetLogById(id)
	if err != nil {
		return nil, err
	}
	return toLogResponse(entry), nil
}

func toSearchLogResponse(l *entity.SearchLog) *dto.SearchLogResponse {
	return &dto.SearchLogResponse{
		Id:            l.Id,
		SessionId:     l.SessionId,
		Query:         l.Query,
		ExpandedQuery: l.ExpandedQuery,
		Sql:           l.Sql,
		Outcome:       l.Outcome,
		Attempts:      l.Attempts,
		ParcelCount:   l.ParcelCount,
		Summary:       l.Summary,
		Error:         l.Error,
		DurationMs:    l.DurationMs,
		Metadata:      l.Metadata,
		CreatedAt:     l.CreatedAt,
	}
}

func toLogResponse(e *logger.LogEntry) *dto.LogListResponse {
	return &dto.LogListResponse{
		Id:        e.Id,
		Timestamp: e.Timestamp,
		Level:     e.Level,
		Module:    e.Module,
		Message:   e.Message,
		Details:   e.Details,
	}
}
