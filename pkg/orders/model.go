package orders

import (
	"encoding/xml"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/mws-orders-client/pkg/mws"
)

// ErrUnexpectedResponse is returned when a body holds no order result.
var ErrUnexpectedResponse = errors.New("unexpected orders response")

// Money is an amount in a currency.
type Money struct {
	CurrencyCode string `xml:"CurrencyCode" json:"currency_code"`
	Amount       string `xml:"Amount" json:"amount"`
}

// Address is a shipping address.
type Address struct {
	Name          string `xml:"Name" json:"name"`
	AddressLine1  string `xml:"AddressLine1" json:"address_line1,omitempty"`
	AddressLine2  string `xml:"AddressLine2" json:"address_line2,omitempty"`
	City          string `xml:"City" json:"city"`
	StateOrRegion string `xml:"StateOrRegion" json:"state_or_region,omitempty"`
	PostalCode    string `xml:"PostalCode" json:"postal_code"`
	CountryCode   string `xml:"CountryCode" json:"country_code"`
}

// Order is one order as returned by the Orders API.
type Order struct {
	AmazonOrderID          string    `xml:"AmazonOrderId" json:"amazon_order_id"`
	SellerOrderID          string    `xml:"SellerOrderId" json:"seller_order_id,omitempty"`
	PurchaseDate           time.Time `xml:"PurchaseDate" json:"purchase_date"`
	LastUpdateDate         time.Time `xml:"LastUpdateDate" json:"last_update_date"`
	OrderStatus            string    `xml:"OrderStatus" json:"order_status"`
	FulfillmentChannel     string    `xml:"FulfillmentChannel" json:"fulfillment_channel"`
	SalesChannel           string    `xml:"SalesChannel" json:"sales_channel,omitempty"`
	ShipServiceLevel       string    `xml:"ShipServiceLevel" json:"ship_service_level,omitempty"`
	OrderTotal             *Money    `xml:"OrderTotal" json:"order_total,omitempty"`
	NumberOfItemsShipped   int       `xml:"NumberOfItemsShipped" json:"items_shipped"`
	NumberOfItemsUnshipped int       `xml:"NumberOfItemsUnshipped" json:"items_unshipped"`
	PaymentMethod          string    `xml:"PaymentMethod" json:"payment_method,omitempty"`
	MarketplaceID          string    `xml:"MarketplaceId" json:"marketplace_id"`
	BuyerEmail             string    `xml:"BuyerEmail" json:"buyer_email,omitempty"`
	BuyerName              string    `xml:"BuyerName" json:"buyer_name,omitempty"`
	ShippingAddress        *Address  `xml:"ShippingAddress" json:"shipping_address,omitempty"`
	OrderType              string    `xml:"OrderType" json:"order_type,omitempty"`
	IsPrime                bool      `xml:"IsPrime" json:"is_prime"`
	IsBusinessOrder        bool      `xml:"IsBusinessOrder" json:"is_business_order"`
}

// OrderList is the result of getOrder, listOrders and listOrdersByNextToken.
type OrderList struct {
	NextToken string  `json:"next_token,omitempty"`
	Orders    []Order `json:"orders"`
	RequestID string  `json:"request_id,omitempty"`
}

type orderListResult struct {
	NextToken string  `xml:"NextToken"`
	Orders    []Order `xml:"Orders>Order"`
}

type orderListDocument struct {
	XMLName               xml.Name
	GetOrder              *orderListResult `xml:"GetOrderResult"`
	ListOrders            *orderListResult `xml:"ListOrdersResult"`
	ListOrdersByNextToken *orderListResult `xml:"ListOrdersByNextTokenResult"`
	ResponseMetadata      struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

// DecodeOrderList parses the body of an Orders response.
func DecodeOrderList(resp *mws.Response) (*OrderList, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: no response", ErrUnexpectedResponse)
	}

	var doc orderListDocument
	if err := xml.Unmarshal(resp.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode orders response: %w", err)
	}

	result := doc.GetOrder
	if result == nil {
		result = doc.ListOrders
	}
	if result == nil {
		result = doc.ListOrdersByNextToken
	}
	if result == nil {
		return nil, fmt.Errorf("%w: <%s>", ErrUnexpectedResponse, doc.XMLName.Local)
	}

	requestID := doc.ResponseMetadata.RequestID
	if requestID == "" {
		requestID = resp.Metadata.RequestID
	}

	return &OrderList{
		NextToken: result.NextToken,
		Orders:    result.Orders,
		RequestID: requestID,
	}, nil
}
