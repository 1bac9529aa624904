package admin

import (
	"net/url"

	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
	"github.com/everclearorg/mark-sub000/internal/storage/postgres"
)

func postgresEarmarkFilter(q url.Values) postgres.EarmarkFilter {
	limit, offset := parseLimitOffset(q)
	var statuses []rebalance.EarmarkStatus
	for _, s := range q["status"] {
		statuses = append(statuses, rebalance.EarmarkStatus(s))
	}
	return postgres.EarmarkFilter{Status: statuses, Limit: limit, Offset: offset}
}

func postgresOperationFilter(q url.Values) postgres.OperationFilter {
	limit, offset := parseLimitOffset(q)
	var statuses []rebalance.OperationStatus
	for _, s := range q["status"] {
		statuses = append(statuses, rebalance.OperationStatus(s))
	}
	var chainID int64
	if v := q.Get("chainId"); v != "" {
		chainID = parseInt64(v)
	}
	return postgres.OperationFilter{
		Status:         statuses,
		ChainID:        chainID,
		EarmarkID:      q.Get("earmarkId"),
		StandaloneOnly: q.Get("standalone") == "true",
		Limit:          limit,
		Offset:         offset,
	}
}

func parseInt64(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
