package models

import "go.mongodb.org/mongo-driver/v2/bson"

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest carries pagination query parameters.
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// Normalize clamps page and size into their valid ranges.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) Skip() int64 {
	n := p.Normalize()
	return int64((n.Page - 1) * n.PageSize)
}

func (p PageRequest) Limit() int64 {
	return int64(p.Normalize().PageSize)
}

// Paginate builds the response metadata for total matching documents.
func (p PageRequest) Paginate(total int64) *Pagination {
	n := p.Normalize()
	return &Pagination{Page: n.Page, PageSize: n.PageSize, TotalCount: int(total)}
}

// ParseID converts a hex identifier. The boolean is false for malformed ids.
func ParseID(hex string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, false
	}
	return id, true
}

func containsID(ids []bson.ObjectID, id bson.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
