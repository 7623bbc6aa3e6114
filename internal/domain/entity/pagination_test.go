package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
)

func TestPaginationParams_Normalize(t *testing.T) {
	p := PaginationParams{Page: 0, Limit: 500}
	require.NoError(t, p.Normalize())
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, MaxPageSize, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = PaginationParams{Page: 3, Limit: 0, Status: model.PaymentStatusSettled, Provider: model.ProviderStripe}
	require.NoError(t, p.Normalize())
	assert.Equal(t, DefaultPageSize, p.Limit)
	assert.Equal(t, 40, p.Offset())
}

func TestPaginationParams_NormalizeRejectsUnknownFilters(t *testing.T) {
	p := PaginationParams{Status: "paid"}
	assert.EqualError(t, p.Normalize(), `unknown payment status "paid"`)

	p = PaginationParams{Provider: "toss"}
	assert.EqualError(t, p.Normalize(), `unknown provider "toss"`)
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(2, 20, 41)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, int64(41), meta.Total)

	assert.Equal(t, 0, NewPaginationMeta(1, 20, 0).TotalPages)
	assert.Equal(t, 2, NewPaginationMeta(1, 20, 40).TotalPages)
}
