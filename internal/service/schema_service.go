package service

import (
	"context"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/pkg/schema"
)

type ISchemaService interface {
	Describe(ctx context.Context) (*dto.SchemaResponse, error)
	// Refresh drops any cached catalog. It reports false when the provider does not cache.
	Refresh() bool
}

type refresher interface {
	Refresh()
}

type schemaService struct {
	provider schema.Provider
	schemas  []string
}

func NewSchemaService(provider schema.Provider, schemas []string) ISchemaService {
	return &schemaService{provider: provider, schemas: schemas}
}

func (s *schemaService) Describe(ctx context.Context) (*dto.SchemaResponse, error) {
	text, err := s.provider.Describe(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SchemaResponse{Schemas: s.schemas, Text: text}, nil
}

func (s *schemaService) Refresh() bool {
	r, ok := s.provider.(refresher)
	if ok {
		r.Refresh()
	}
	return ok
}
