package orders

import (
	"context"
	"time"

	"github.com/Sternrassler/mws-orders-client/pkg/pagination"
)

var _ pagination.PageFetcher[Order] = (*OrderPager)(nil)

// OrderPager fetches the pages of one order listing. The first page is a
// listOrders call, follow-up pages are listOrdersByNextToken calls charged
// against the same bucket.
type OrderPager struct {
	pack        *Pack
	dateFrom    time.Time
	dateTo      time.Time
	orderStatus []string
}

// OrderPager returns a pager over orders created between dateFrom and
// dateTo, optionally filtered by status.
func (p *Pack) OrderPager(dateFrom, dateTo time.Time, orderStatus []string) *OrderPager {
	return &OrderPager{
		pack:        p,
		dateFrom:    dateFrom,
		dateTo:      dateTo,
		orderStatus: append([]string(nil), orderStatus...),
	}
}

// FetchFirst implements pagination.PageFetcher.
func (op *OrderPager) FetchFirst(ctx context.Context) ([]Order, string, error) {
	resp, err := op.pack.ListOrdersWithStatus(ctx, op.dateFrom, op.dateTo, op.orderStatus)
	if err != nil {
		return nil, "", err
	}
	list, err := DecodeOrderList(resp)
	if err != nil {
		return nil, "", err
	}
	return list.Orders, list.NextToken, nil
}

// FetchNext implements pagination.PageFetcher.
func (op *OrderPager) FetchNext(ctx context.Context, nextToken string) ([]Order, string, error) {
	resp, err := op.pack.ListOrdersByNextToken(ctx, nextToken)
	if err != nil {
		return nil, "", err
	}
	list, err := DecodeOrderList(resp)
	if err != nil {
		return nil, "", err
	}
	return list.Orders, list.NextToken, nil
}
