package service

import (
	"math"
	"strconv"

	"github.com/d60-Lab/roadmap-api/internal/apperror"
)

const (
	DefaultQuestionLimit = 10
	DefaultReplyLimit    = 5
	MaxPageLimit         = 100
)

// Page is a normalized 1-based page request.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Offset() int { return (p.Number - 1) * p.Limit }

// ParsePage 解析 query 中的 page/limit，空值取默认
func ParsePage(pageRaw, limitRaw string, defaultLimit int) (Page, error) {
	p := Page{Number: 1, Limit: defaultLimit}
	if limitRaw != "" {
		n, err := strconv.Atoi(limitRaw)
		if err != nil || n < 1 || n > MaxPageLimit {
			return Page{}, apperror.Validation("limit", "limit must be between 1 and 100")
		}
		p.Limit = n
	}
	if pageRaw != "" {
		n, err := strconv.Atoi(pageRaw)
		if err != nil || n < 1 {
			return Page{}, apperror.Validation("page", "page must be a positive integer")
		}
		// offset 必须落在 int32 内，否则 skip 溢出
		if n-1 > math.MaxInt32/p.Limit {
			return Page{}, apperror.Validation("page", "page is out of range")
		}
		p.Number = n
	}
	return p, nil
}
