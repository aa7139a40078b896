package mapper

import (
	"encoding/json"

	"solar-parcel-be/internal/entity"
	"solar-parcel-be/internal/model"

	"gorm.io/datatypes"
)

type SearchLogMapper struct{}

func NewSearchLogMapper() *SearchLogMapper {
	return &SearchLogMapper{}
}

func (m *SearchLogMapper) ToEntity(s *model.SearchLog) *entity.SearchLog {
	if s == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(s.Metadata) > 0 {
		// Metadata is written by ToModel; unreadable rows keep an empty map.
		_ = json.Unmarshal(s.Metadata, &metadata)
	}

	return &entity.SearchLog{
		Id:            s.Id,
		SessionId:     s.SessionId,
		Query:         s.Query,
		ExpandedQuery: s.ExpandedQuery,
		Sql:           s.Sql,
		Outcome:       s.Outcome,
		Attempts:      s.Attempts,
		ParcelCount:   s.ParcelCount,
		Summary:       s.Summary,
		Error:         s.Error,
		DurationMs:    s.DurationMs,
		Metadata:      metadata,
		CreatedAt:     s.CreatedAt,
	}
}

func (m *SearchLogMapper) ToModel(s *entity.SearchLog) (*model.SearchLog, error) {
	if s == nil {
		return nil, nil
	}

	var metadata datatypes.JSON
	if s.Metadata != nil {
		raw, err := json.Marshal(s.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = datatypes.JSON(raw)
	}

	return &model.SearchLog{
		Id:            s.Id,
		SessionId:     s.SessionId,
		Query:         s.Query,
		ExpandedQuery: s.ExpandedQuery,
		Sql:           s.Sql,
		Outcome:       s.Outcome,
		Attempts:      s.Attempts,
		ParcelCount:   s.ParcelCount,
		Summary:       s.Summary,
		Error:         s.Error,
		DurationMs:    s.DurationMs,
		Metadata:      metadata,
		CreatedAt:     s.CreatedAt,
	}, nil
}

func (m *SearchLogMapper) ToEntities(models []*model.SearchLog) []*entity.SearchLog {
	out := make([]*entity.SearchLog, len(models))
	for i, s := range models {
		out[i] = m.ToEntity(s)
	}
	return out
}
