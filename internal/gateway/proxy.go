package gateway

import (
	"context"
	"net/http"

	"github.com/joao-fontenele/groceryflow/internal/telemetry"
)

var forwardedHeaders = []string{"Content-Type", "Accept", telemetry.HeaderCorrelationID}

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
	}
}

func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, h := range forwardedHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	if id := telemetry.CorrelationID(ctx); id != "" {
		req.Header.Set(telemetry.HeaderCorrelationID, id)
	}

	return p.client.Do(req)
}
