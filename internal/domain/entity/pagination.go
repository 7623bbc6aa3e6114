package entity

import (
	"fmt"

	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
)

// PaginationParams is one page of a customer's payment history, optionally
// narrowed to a status or provider.
type PaginationParams struct {
	Page     int                 `query:"page"`
	Limit    int                 `query:"limit"`
	Status   model.PaymentStatus `query:"status"`
	Provider model.ProviderType  `query:"provider"`
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps page and limit into range and rejects unknown filters
func (p *PaginationParams) Normalize() error {
	if p.Page < DefaultPage {
		p.Page = DefaultPage
	}
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageSize
	case p.Limit > MaxPageSize:
		p.Limit = MaxPageSize
	}

	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("unknown payment status %q", p.Status)
	}
	if p.Provider != "" && !p.Provider.Valid() {
		return fmt.Errorf("unknown provider %q", p.Provider)
	}
	return nil
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
}

type PaginatedPaymentsResponse struct {
	Data       []*model.Payment `json:"data"`
	Pagination PaginationMeta   `json:"pagination"`
}

func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	meta := PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
	}
	if limit > 0 {
		meta.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return meta
}
