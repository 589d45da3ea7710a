package orders

import (
	"context"
	"strings"
	"time"

	"github.com/Sternrassler/mws-orders-client/pkg/clientpack"
	"github.com/Sternrassler/mws-orders-client/pkg/mws"
)

// FormatTime renders t as ISO 8601 with a numeric offset in t's own
// location, e.g. 2024-01-15T10:00:00+00:00.
func FormatTime(t time.Time) string {
	return t.Format(mws.TimestampFormat)
}

// SplitOrderIDs splits a comma-separated id list. Items are not trimmed.
func SplitOrderIDs(ids string) []string {
	return strings.Split(ids, ",")
}

func (p *Pack) baseParams() *mws.Params {
	return mws.NewParams().
		Set(ParamSellerID, p.sellerID).
		Set(ParamMarketplaceID, p.marketplaceID)
}

// GetOrderParams builds the parameters of a getOrder call.
func (p *Pack) GetOrderParams(orderIDs []string) *mws.Params {
	return p.baseParams().SetList(ParamAmazonOrderIDs, orderIDs)
}

// ListOrdersByCreateDateParams builds the parameters of a listOrders call
// over a creation date range.
func (p *Pack) ListOrdersByCreateDateParams(dateFrom, dateTo time.Time) *mws.Params {
	return p.baseParams().
		Set(ParamCreatedAfter, FormatTime(dateFrom)).
		Set(ParamCreatedBefore, FormatTime(dateTo))
}

// ListOrdersByNextTokenParams builds the parameters of a
// listOrdersByNextToken call.
func (p *Pack) ListOrdersByNextTokenParams(nextToken string) *mws.Params {
	return p.baseParams().Set(ParamNextToken, nextToken)
}

// ListOrdersWithStatusParams builds the parameters of a listOrders call
// filtered by status. OrderStatus is only set for a non-empty list.
func (p *Pack) ListOrdersWithStatusParams(dateFrom, dateTo time.Time, orderStatus []string) *mws.Params {
	params := p.ListOrdersByCreateDateParams(dateFrom, dateTo)
	if len(orderStatus) > 0 {
		params.SetList(ParamOrderStatus, orderStatus)
	}
	return params
}

// GetOrder fetches orders by Amazon order id.
func (p *Pack) GetOrder(ctx context.Context, orderIDs []string) (*mws.Response, error) {
	return clientpack.ThrottledCall(ctx, p, MethodGetOrder, p.GetOrderParams(orderIDs))
}

// GetOrderCSV fetches orders given as one comma-separated id string.
func (p *Pack) GetOrderCSV(ctx context.Context, orderIDs string) (*mws.Response, error) {
	return p.GetOrder(ctx, SplitOrderIDs(orderIDs))
}

// ListOrdersByCreateDate lists orders created between dateFrom and dateTo.
func (p *Pack) ListOrdersByCreateDate(ctx context.Context, dateFrom, dateTo time.Time) (*mws.Response, error) {
	return clientpack.ThrottledCall(ctx, p, MethodListOrders, p.ListOrdersByCreateDateParams(dateFrom, dateTo))
}

// ListOrdersByNextToken fetches the next page of a listing. It is charged
// against the listOrders bucket.
func (p *Pack) ListOrdersByNextToken(ctx context.Context, nextToken string) (*mws.Response, error) {
	return clientpack.ThrottledCall(ctx, p, MethodListOrdersByNextToken, p.ListOrdersByNextTokenParams(nextToken))
}

// ListOrdersWithStatus lists orders created between dateFrom and dateTo,
// optionally filtered by status. A nil or empty orderStatus lists all.
func (p *Pack) ListOrdersWithStatus(ctx context.Context, dateFrom, dateTo time.Time, orderStatus []string) (*mws.Response, error) {
	return clientpack.ThrottledCall(ctx, p, MethodListOrders, p.ListOrdersWithStatusParams(dateFrom, dateTo, orderStatus))
}
