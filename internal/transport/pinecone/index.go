package pinecone

import (
	"context"
	"fmt"
	"sync"
	"time"

	gopinecone "github.com/pinecone-io/go-pinecone/v2/pinecone"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/index"
	"github.com/kailas-cloud/ragchat/internal/domain/match"
)

// Index queries one namespace of a Pinecone serverless or pod index.
type Index struct {
	client    *Client
	name      string
	namespace string

	connMu sync.Mutex
	conn   QueryConn
}

// NewIndex creates an index handle. An empty namespace queries the default namespace.
// The data plane connection is opened on first query.
func NewIndex(c *Client, name, namespace string) (*Index, error) {
	if name == "" {
		return nil, fmt.Errorf("pinecone index name is required: %w", domain.ErrConfiguration)
	}
	return &Index{client: c, name: name, namespace: namespace}, nil
}

func (ix *Index) connection(ctx context.Context) (QueryConn, error) {
	ix.connMu.Lock()
	defer ix.connMu.Unlock()
	if ix.conn != nil {
		return ix.conn, nil
	}

	host, err := ix.client.indexHost(ctx, ix.name)
	if err != nil {
		return nil, err
	}
	conn, err := ix.client.dial(host, ix.namespace)
	if err != nil {
		return nil, domain.NewServiceError(serviceName, "connect", 0, err.Error())
	}
	ix.conn = conn
	return conn, nil
}

// Query returns the topK nearest neighbors of vector with metadata, in the order Pinecone returns them.
// The data plane reports no query latency, so Response.Latency stays nil.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) (index.Response, error) {
	conn, err := ix.connection(ctx)
	if err != nil {
		return index.Response{}, err
	}

	qctx, cancel := context.WithTimeout(ctx, ix.client.timeout)
	defer cancel()

	start := time.Now()
	resp, err := conn.QueryByVectorValues(qctx, &gopinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return index.Response{}, ix.client.fail("query", start, err)
	}
	ix.client.succeed("query", start)

	matches := make([]match.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			return index.Response{}, domain.ContractViolation(serviceName, "query returned a match without vector")
		}
		var md map[string]any
		if m.Vector.Metadata != nil {
			md = m.Vector.Metadata.AsMap()
		}
		mt, err := match.New(m.Vector.Id, float64(m.Score), md)
		if err != nil {
			return index.Response{}, fmt.Errorf("%s query: %w", serviceName, err)
		}
		matches = append(matches, mt)
	}

	return index.Response{Matches: matches}, nil
}

// HealthCheck verifies the index exists and is ready.
func (ix *Index) HealthCheck(ctx context.Context) error {
	desc, err := ix.client.DescribeIndex(ctx, ix.name)
	if err != nil {
		return fmt.Errorf("describe index: %w", err)
	}
	if desc.Status == nil || !desc.Status.Ready {
		state := "unknown"
		if desc.Status != nil {
			state = string(desc.Status.State)
		}
		return fmt.Errorf("index %q not ready: %s", ix.name, state)
	}
	return nil
}

// Close releases the data plane connection, if one was opened.
func (ix *Index) Close() {
	ix.connMu.Lock()
	defer ix.connMu.Unlock()
	if ix.conn != nil {
		_ = ix.conn.Close()
		ix.conn = nil
	}
}
