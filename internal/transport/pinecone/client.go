// Package pinecone adapts the Pinecone Go SDK to the retrieval providers:
// index query over the data plane, embed and rerank on the inference API,
// index description on the control plane.
package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gopinecone "github.com/pinecone-io/go-pinecone/v2/pinecone"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

const (
	serviceName = "pinecone"

	sourceTag      = "ragchat"
	defaultTimeout = 30 * time.Second
)

// QueryConn is the data plane surface of an index connection.
type QueryConn interface {
	QueryByVectorValues(ctx context.Context, in *gopinecone.QueryByVectorValuesRequest) (*gopinecone.QueryVectorsResponse, error)
	Close() error
}

// IndexDialer opens a data plane connection to an index host, scoped to a namespace.
type IndexDialer func(host, namespace string) (QueryConn, error)

// Config holds Pinecone connection settings.
type Config struct {
	APIKey string
	// ControlURL overrides the control plane and inference host.
	ControlURL string
	Timeout    time.Duration
	Logger     *zap.Logger
	// HTTPClient overrides the REST client (tests).
	HTTPClient *http.Client
	// Dialer overrides how index connections are opened (tests).
	Dialer IndexDialer
}

// Client wraps the SDK client. It is safe for concurrent use.
type Client struct {
	sdk     *gopinecone.Client
	timeout time.Duration
	logger  *zap.Logger
	dial    IndexDialer

	hostMu sync.Mutex
	hosts  map[string]string
}

// NewClient creates a Pinecone client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone api key is required: %w", domain.ErrConfiguration)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sdk, err := gopinecone.NewClient(gopinecone.NewClientParams{
		ApiKey:     cfg.APIKey,
		Host:       cfg.ControlURL,
		RestClient: hc,
		SourceTag:  sourceTag,
	})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	c := &Client{
		sdk:     sdk,
		timeout: timeout,
		logger:  logger,
		dial:    cfg.Dialer,
		hosts:   make(map[string]string),
	}
	if c.dial == nil {
		c.dial = c.dialIndex
	}
	return c, nil
}

func (c *Client) dialIndex(host, namespace string) (QueryConn, error) {
	conn, err := c.sdk.Index(gopinecone.NewIndexConnParams{Host: host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("connect to index host %s: %w", host, err)
	}
	return conn, nil
}

// DescribeIndex fetches index metadata from the control plane.
func (c *Client) DescribeIndex(ctx context.Context, name string) (*gopinecone.Index, error) {
	start := time.Now()
	idx, err := c.sdk.DescribeIndex(ctx, name)
	if err != nil {
		return nil, c.fail("describe_index", start, err)
	}
	c.succeed("describe_index", start)
	return idx, nil
}

// indexHost returns the data plane host of an index, resolving and caching it on first use.
func (c *Client) indexHost(ctx context.Context, name string) (string, error) {
	c.hostMu.Lock()
	host, ok := c.hosts[name]
	c.hostMu.Unlock()
	if ok {
		return host, nil
	}

	idx, err := c.DescribeIndex(ctx, name)
	if err != nil {
		return "", fmt.Errorf("resolve index host: %w", err)
	}
	if idx == nil || idx.Host == "" {
		return "", domain.ContractViolation(serviceName, "index %q described without host", name)
	}

	c.hostMu.Lock()
	c.hosts[name] = idx.Host
	c.hostMu.Unlock()
	return idx.Host, nil
}

// SetIndexHost pins the data plane host of an index, skipping the control plane lookup.
func (c *Client) SetIndexHost(name, host string) {
	c.hostMu.Lock()
	c.hosts[name] = host
	c.hostMu.Unlock()
}

// ping lists indexes, which only succeeds with a valid key.
func (c *Client) ping(ctx context.Context) error {
	start := time.Now()
	if _, err := c.sdk.ListIndexes(ctx); err != nil {
		return c.fail("list_indexes", start, err)
	}
	c.succeed("list_indexes", start)
	return nil
}

func (c *Client) succeed(op string, start time.Time) {
	metrics.ObserveRemote(serviceName, op, "success", time.Since(start).Seconds())
}

// fail records the failed call and maps err to a domain error.
func (c *Client) fail(op string, start time.Time, err error) error {
	metrics.ObserveRemote(serviceName, op, "error", time.Since(start).Seconds())
	mapped := mapError(op, err)
	c.logger.Debug("Pinecone request failed", zap.String("op", op), zap.Error(mapped))
	return mapped
}

// mapError classifies SDK failures: REST errors by HTTP status, data plane
// errors by gRPC code, undecodable bodies as contract violations. Anything
// else is a transport failure and transient.
func mapError(op string, err error) error {
	var pe *gopinecone.PineconeError
	if errors.As(err, &pe) {
		return statusError(op, pe.Code, pe.Error())
	}

	if st, ok := status.FromError(err); ok {
		return statusError(op, grpcHTTPStatus(st.Code()), st.Code().String()+": "+st.Message())
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.ContractViolation(serviceName, "decode %s response: %v", op, err)
	}

	return domain.NewServiceError(serviceName, op, 0, err.Error())
}

func statusError(op string, code int, msg string) error {
	if domain.TransientStatus(code) {
		return domain.NewServiceError(serviceName, op, code, msg)
	}
	return domain.NewRejectedError(serviceName, op, code, msg)
}

// grpcHTTPStatus maps data plane codes onto the HTTP statuses the REST API would use.
func grpcHTTPStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
