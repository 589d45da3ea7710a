// Package orders is the MWS Orders client pack. It shapes the parameter
// maps of the Orders calls and dispatches them through its own throttle
// manager to a signing MWS transport.
package orders

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Sternrassler/mws-orders-client/pkg/clientpack"
	"github.com/Sternrassler/mws-orders-client/pkg/config"
	"github.com/Sternrassler/mws-orders-client/pkg/mws"
	"github.com/Sternrassler/mws-orders-client/pkg/quota"
	"github.com/Sternrassler/mws-orders-client/pkg/throttle"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Wire-level parameter names.
const (
	ParamAmazonOrderIDs     = "AmazonOrderId"
	ParamCreatedAfter       = "CreatedAfter"
	ParamCreatedBefore      = "CreatedBefore"
	ParamMarketplaceID      = "MarketplaceId"
	ParamMarketplaceIDList  = "MarketplaceId.Id.1"
	ParamSellerID           = "SellerId"
	ParamNextToken          = "NextToken"
	ParamLastUpdatedAfter   = "LastUpdatedAfter"
	ParamLastUpdatedBefore  = "LastUpdatedBefore"
	ParamOrderStatus        = "OrderStatus"
	ParamFulfillmentChannel = "FulfillmentChannel"
	ParamPaymentMethod      = "PaymentMethod"
	ParamBuyerEmail         = "BuyerEmail"
	ParamSellerOrderID      = "SellerOrderId"
	ParamMaxResultsPerPage  = "MaxResultsPerPage"
	ParamTFMShipmentStatus  = "TFMShipmentStatus"
)

// Method identifiers, used as throttle keys.
const (
	MethodGetOrder              = "getOrder"
	MethodListOrders            = "listOrders"
	MethodListOrdersByNextToken = "listOrdersByNextToken"
)

// Order status values.
const (
	StatusPendingAvailability = "PendingAvailability"
	StatusPending             = "Pending"
	StatusUnshipped           = "Unshipped"
	StatusPartiallyShipped    = "PartiallyShipped"
	StatusShipped             = "Shipped"
	StatusInvoiceUnconfirmed  = "InvoiceUnconfirmed"
	StatusCanceled            = "Canceled"
	StatusUnfulfillable       = "Unfulfillable"
)

// Statuses lists every order status value.
var Statuses = []string{
	StatusPendingAvailability,
	StatusPending,
	StatusUnshipped,
	StatusPartiallyShipped,
	StatusShipped,
	StatusInvoiceUnconfirmed,
	StatusCanceled,
	StatusUnfulfillable,
}

var (
	_ clientpack.ThrottledClient = (*Pack)(nil)
	_ clientpack.PreAdmitter     = (*Pack)(nil)
)

// Pack is the Orders client pack for one seller on one marketplace.
type Pack struct {
	marketplaceID string
	sellerID      string

	throttle *throttle.Manager
	quota    *quota.Tracker
	client   *mws.Client

	// redis is set when the pack opened the connection itself.
	redis  *redis.Client
	logger zerolog.Logger
}

type options struct {
	httpClient  *http.Client
	store       throttle.Store
	redisClient *redis.Client
	throttleOps []throttle.Option
	quotaOpts   []quota.Option
	mwsOpts     []mws.Option
	logger      *zerolog.Logger
}

// Option configures a Pack.
type Option func(*options)

// WithHTTPClient sets the HTTP client of the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithStore sets the throttle bucket store, overriding the configured one.
func WithStore(s throttle.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithRedisClient shares throttle buckets through an existing Redis client.
// The pack does not close it.
func WithRedisClient(rdb *redis.Client) Option {
	return func(o *options) {
		o.redisClient = rdb
	}
}

// WithThrottleOptions passes extra options to the throttle manager.
func WithThrottleOptions(opts ...throttle.Option) Option {
	return func(o *options) {
		o.throttleOps = append(o.throttleOps, opts...)
	}
}

// WithQuotaOptions passes extra options to the hourly quota tracker.
func WithQuotaOptions(opts ...quota.Option) Option {
	return func(o *options) {
		o.quotaOpts = append(o.quotaOpts, opts...)
	}
}

// WithTransportOptions passes extra options to the MWS transport.
func WithTransportOptions(opts ...mws.Option) Option {
	return func(o *options) {
		o.mwsOpts = append(o.mwsOpts, opts...)
	}
}

// WithLogger sets the logger of the pack and its components.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// New builds an Orders pack from cfg. It resolves the seller and the
// marketplace of cfg's Amazon site, sets up the throttle manager and the
// transport for the Orders endpoint. Configuration errors are returned as
// reported by cfg.
func New(cfg *config.PoolConfig, opts ...Option) (*Pack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil pool config", config.ErrInvalidConfig)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.With().Str("component", "orders").Logger()
	if o.logger != nil {
		logger = o.logger.With().Str("component", "orders").Logger()
	}

	marketplaceID, err := cfg.MarketplaceID(cfg.AmazonSite)
	if err != nil {
		return nil, err
	}

	p := &Pack{
		marketplaceID: marketplaceID,
		sellerID:      cfg.SellerID,
		logger:        logger,
	}

	if err := p.initThrottleManager(cfg, &o); err != nil {
		p.Close()
		return nil, err
	}

	svc, err := cfg.ConfigForService(ServiceURLSuffix)
	if err != nil {
		p.Close()
		return nil, err
	}

	mwsOpts := []mws.Option{mws.WithLogger(logger.With().Str("component", "mws-client").Logger())}
	if o.httpClient != nil {
		mwsOpts = append(mwsOpts, mws.WithHTTPClient(o.httpClient))
	}
	mwsOpts = append(mwsOpts, o.mwsOpts...)

	p.client, err = mws.New(mws.Config{
		ServiceURL:           svc.ServiceURL,
		ServiceVersion:       ServiceVersion,
		AccessKey:            svc.AccessKey,
		SecretKey:            svc.SecretKey,
		ApplicationName:      svc.ApplicationName,
		ApplicationVersion:   svc.ApplicationVersion,
		MWSAuthToken:         svc.MWSAuthToken,
		Timeout:              svc.Transport.Timeout,
		MaxErrorRetry:        svc.Transport.MaxErrorRetry,
		MaxRequestsPerSecond: svc.Transport.MaxRequestsPerSecond,
		Burst:                svc.Transport.Burst,
		Schema:               Schema,
	}, mwsOpts...)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create mws client: %w", err)
	}

	logger.Debug().
		Str("seller_id", p.sellerID).
		Str("marketplace_id", p.marketplaceID).
		Str("service_url", svc.ServiceURL).
		Msg("Orders client pack ready")

	return p, nil
}

// initThrottleManager builds the throttle manager from ThrottleConfig and
// the hourly quota tracker. Buckets and quota state live in Redis when a
// client or address is configured, so every process using the same seller
// account shares one quota.
func (p *Pack) initThrottleManager(cfg *config.PoolConfig, o *options) error {
	rdb := o.redisClient
	if rdb == nil && cfg.Throttle.RedisAddr != "" {
		p.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Throttle.RedisAddr,
			Password: cfg.Throttle.RedisPassword,
			DB:       cfg.Throttle.RedisDB,
		})
		rdb = p.redis
	}

	store := o.store
	if store == nil && rdb != nil {
		store = throttle.NewRedisStore(rdb)
	}

	quotaOpts := []quota.Option{
		quota.WithKeyPrefix(fmt.Sprintf("mws:quota:%s:orders:", p.sellerID)),
		quota.WithLogger(p.logger.With().Str("component", "quota").Logger()),
	}
	if rdb != nil {
		quotaOpts = append(quotaOpts, quota.WithRedis(rdb))
	}
	p.quota = quota.NewTracker(append(quotaOpts, o.quotaOpts...)...)

	throttleOpts := []throttle.Option{
		throttle.WithKeyPrefix(fmt.Sprintf("mws:throttle:%s:orders:", p.sellerID)),
		throttle.WithMaxWait(cfg.Throttle.MaxWait),
		throttle.WithLogger(p.logger.With().Str("component", "throttle").Logger()),
	}
	if store != nil {
		throttleOpts = append(throttleOpts, throttle.WithStore(store))
	}
	throttleOpts = append(throttleOpts, o.throttleOps...)

	m, err := throttle.NewManager(ThrottleConfig(), throttleOpts...)
	if err != nil {
		return fmt.Errorf("init throttle manager: %w", err)
	}
	p.throttle = m
	return nil
}

// ThrottleManager returns the live throttle manager of the pack.
func (p *Pack) ThrottleManager() *throttle.Manager {
	return p.throttle
}

// QuotaTracker returns the hourly quota tracker of the pack.
func (p *Pack) QuotaTracker() *quota.Tracker {
	return p.quota
}

// quotaBucket returns the bucket whose hourly quota method spends.
func (p *Pack) quotaBucket(method string) string {
	if b, _, err := p.throttle.Bucket(method); err == nil {
		return b
	}
	return method
}

// PreAdmit refuses method with a *quota.ExhaustedError while the last
// response for its bucket reported no hourly quota left. ThrottledCall
// consults it before taking a throttle token.
func (p *Pack) PreAdmit(ctx context.Context, method string) error {
	return p.quota.Check(ctx, p.quotaBucket(method))
}

// Call performs method on the Orders service without throttling. Use the
// typed operations, which go through clientpack.ThrottledCall.
//
// Calls are refused with a *quota.ExhaustedError while the last response
// for method's bucket reported no hourly quota left; the quota may have run
// out while a typed operation waited for admission.
func (p *Pack) Call(ctx context.Context, method string, params *mws.Params) (*mws.Response, error) {
	bucket := p.quotaBucket(method)

	if err := p.quota.Check(ctx, bucket); err != nil {
		return nil, err
	}

	resp, err := p.client.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}

	if err := p.quota.Update(ctx, bucket, resp.Metadata); err != nil {
		p.logger.Warn().Err(err).Str("bucket", bucket).Msg("Failed to record quota state")
	}
	return resp, nil
}

// SellerID returns the seller the pack calls for.
func (p *Pack) SellerID() string {
	return p.sellerID
}

// MarketplaceID returns the marketplace the pack calls for.
func (p *Pack) MarketplaceID() string {
	return p.marketplaceID
}

// Close releases the Redis connection the pack opened, if any.
func (p *Pack) Close() error {
	if p.redis == nil {
		return nil
	}
	err := p.redis.Close()
	p.redis = nil
	return err
}
