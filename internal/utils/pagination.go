package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PaginationParams struct {
	Limit  int    `json:"limit" form:"limit"`
	Offset int    `json:"offset" form:"offset"`
	Sort   string `json:"sort" form:"sort"`
	Order  string `json:"order" form:"order"`
	Search string `json:"search" form:"search"`
}

type PaginationMeta struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

func GetPaginationParams(c *gin.Context) *PaginationParams {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	return NewPaginationParams(limit, offset, c.DefaultQuery("sort", "created_at"), c.DefaultQuery("order", "desc"), c.Query("search"))
}

// NewPaginationParams clamps the raw values into the supported range.
func NewPaginationParams(limit, offset int, sort, order, search string) *PaginationParams {
	if limit < MinPageSize {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if !Contains(SortableOfferFields, sort) {
		sort = "created_at"
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	return &PaginationParams{
		Limit:  limit,
		Offset: offset,
		Sort:   sort,
		Order:  order,
		Search: strings.TrimSpace(search),
	}
}

func (p *PaginationParams) GetSkip() int {
	return p.Offset
}

func (p *PaginationParams) GetLimit() int {
	return p.Limit
}

func (p *PaginationParams) GetSortOptions() *options.FindOptions {
	opts := options.Find()
	opts.SetSkip(int64(p.GetSkip()))
	opts.SetLimit(int64(p.GetLimit()))

	sortOrder := 1
	if p.Order == "desc" {
		sortOrder = -1
	}
	// _id breaks ties so pages are stable
	opts.SetSort(bson.D{{Key: p.Sort, Value: sortOrder}, {Key: "_id", Value: sortOrder}})

	return opts
}

// Window returns the [start, end) bounds of the page within n items.
func (p *PaginationParams) Window(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

func CreatePaginationMeta(params *PaginationParams, total int64) *PaginationMeta {
	return &PaginationMeta{
		Limit:   params.Limit,
		Offset:  params.Offset,
		Total:   total,
		HasNext: hasNextPage(params, total),
	}
}

// hasNextPage compares against the remaining rows so huge offsets cannot
// overflow.
func hasNextPage(params *PaginationParams, total int64) bool {
	offset := int64(params.Offset)
	if offset >= total {
		return false
	}
	return int64(params.Limit) < total-offset
}
