package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// MaxResultWindow is the default index.max_result_window; from+size beyond
// it is rejected by the store.
const MaxResultWindow = 10000

type ElasticConfig struct {
	Scheme    string
	Host      string
	Port      int
	Index     string
	BatchSize int
	Timeout   time.Duration
	// Transport overrides the HTTP transport of the client.
	Transport http.RoundTripper
}

// ElasticSource queries an Elasticsearch-compatible _search endpoint.
type ElasticSource struct {
	client    *elasticsearch.Client
	endpoint  string
	index     []string
	batchSize int
	timeout   time.Duration
}

func NewElasticSource(cfg ElasticConfig) (*ElasticSource, error) {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}
	address := scheme + "://" + cfg.Host + ":" + strconv.Itoa(cfg.Port)
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{address},
		Transport: cfg.Transport,
		// The poller has its own backoff.
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create flow store client: %w", err)
	}

	s := &ElasticSource{
		client:    client,
		endpoint:  address + "/_search",
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
	}
	if cfg.Index != "" {
		s.index = []string{cfg.Index}
		s.endpoint = address + "/" + cfg.Index + "/_search"
	}
	return s, nil
}

func (s *ElasticSource) Endpoint() string { return s.endpoint }

type rangeQuery struct {
	From  int                 `json:"from,omitempty"`
	Size  int                 `json:"size"`
	Sort  []map[string]string `json:"sort"`
	Query struct {
		Range map[string]map[string]string `json:"range"`
	} `json:"query"`
}

func (s *ElasticSource) requestBody(c Cursor) ([]byte, error) {
	q := rangeQuery{From: c.Skip, Size: s.batchSize}
	if q.From+q.Size > MaxResultWindow {
		q.From = max(MaxResultWindow-q.Size, 0)
	}
	q.Sort = []map[string]string{{FieldTimestamp: "asc"}}
	q.Query.Range = map[string]map[string]string{
		FieldTimestamp: {
			"gte":    strconv.FormatInt(c.Since, 10),
			"lt":     "now",
			"format": "epoch_millis",
		},
	}
	return json.Marshal(q)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticSource) Query(ctx context.Context, c Cursor) ([]Entry, error) {
	body, err := s.requestBody(c)
	if err != nil {
		return nil, &TransportError{Op: "encode", Err: err}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := esapi.SearchRequest{
		Index: s.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, &TransportError{Op: "search", Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, &TransportError{Op: "search", Err: fmt.Errorf("bad status: %s: %s", res.Status(), strings.TrimSpace(string(msg)))}
	}

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	var sr searchResponse
	if err := dec.Decode(&sr); err != nil {
		return nil, &TransportError{Op: "decode", Err: err}
	}

	entries := make([]Entry, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		e := ParseDocument(h.Source)
		e.Record.ID = h.ID
		entries = append(entries, e)
	}
	return entries, nil
}
