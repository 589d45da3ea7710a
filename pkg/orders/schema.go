package orders

import (
	"github.com/Sternrassler/mws-orders-client/pkg/mws"
	"github.com/Sternrassler/mws-orders-client/pkg/throttle"
)

// ServiceVersion is the Orders API version this pack speaks.
const ServiceVersion = "2013-09-01"

// ServiceURLSuffix is the path of the Orders service below a regional endpoint.
const ServiceURLSuffix = "/Orders/" + ServiceVersion

// Schema lists the parameters each Orders action accepts and how list
// parameters are flattened.
var Schema = mws.Schema{
	"GetOrder": {
		ParamSellerID:       mws.Scalar,
		ParamAmazonOrderIDs: mws.ListOf("Id"),
	},
	"ListOrders": {
		ParamSellerID:           mws.Scalar,
		ParamMarketplaceID:      mws.ListOf("Id"),
		ParamCreatedAfter:       mws.Scalar,
		ParamCreatedBefore:      mws.Scalar,
		ParamLastUpdatedAfter:   mws.Scalar,
		ParamLastUpdatedBefore:  mws.Scalar,
		ParamOrderStatus:        mws.ListOf("Status"),
		ParamFulfillmentChannel: mws.ListOf("Channel"),
		ParamPaymentMethod:      mws.ListOf("Method"),
		ParamBuyerEmail:         mws.Scalar,
		ParamSellerOrderID:      mws.Scalar,
		ParamMaxResultsPerPage:  mws.Scalar,
		ParamTFMShipmentStatus:  mws.ListOf("Status"),
	},
	"ListOrdersByNextToken": {
		ParamSellerID:  mws.Scalar,
		ParamNextToken: mws.Scalar,
	},
}

// ThrottleConfig returns the throttle buckets of the Orders API:
// getOrder and listOrders own a bucket of 6 restoring one token every
// 66.7 seconds, listOrdersByNextToken is charged against listOrders.
func ThrottleConfig() throttle.Config {
	return throttle.Config{
		MethodGetOrder:              throttle.OwnBucket(6, 0.015),
		MethodListOrders:            throttle.OwnBucket(6, 0.015),
		MethodListOrdersByNextToken: throttle.DelegatesTo(MethodListOrders),
	}
}
