// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"research-orchestration-core/shared/logger"
)

// AuthStyle is how a provider expects its API key carried on the wire:
// a bearer Authorization header, a named API-key header, or a query
// parameter.
type AuthStyle int

const (
	AuthBearer AuthStyle = iota
	AuthAPIKeyHeader
	AuthQueryParam
)

// httpAdapter is a generic net/http-backed Adapter shared by every
// provider service; only its AuthStyle, header name and base URL
// differ between the six closed service tags.
type httpAdapter struct {
	service    string
	config     *ServiceConfig
	authStyle  AuthStyle
	authHeader string // header name for AuthAPIKeyHeader, query param name for AuthQueryParam
	endpoints  []string
	client     *http.Client
	log        *logger.Logger
}

func newHTTPAdapter(service string, config *ServiceConfig, style AuthStyle, authHeader string, endpoints []string) *httpAdapter {
	return &httpAdapter{
		service:    service,
		config:     config,
		authStyle:  style,
		authHeader: authHeader,
		endpoints:  endpoints,
		client:     &http.Client{Timeout: config.DefaultTimeout},
		log:        logger.New("registry." + service),
	}
}

func (a *httpAdapter) Endpoints() []string {
	return append([]string(nil), a.endpoints...)
}

// Request performs one HTTP call. It never returns a Go error for a
// non-2xx response or a transport failure — those are reported via
// Response.Success=false — except when the request itself is
// malformed by the caller (AdapterViolation), which is this adapter's
// only fatal-to-the-request error.
func (a *httpAdapter) Request(ctx context.Context, req Request, key string) (Response, error) {
	if req.Endpoint == "" || req.Method == "" {
		return Response{}, fmt.Errorf("adapter_violation: endpoint and method are required")
	}

	timeout := a.config.DefaultTimeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("adapter_violation: marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, a.config.BaseURL+req.Endpoint, bodyReader)
	if err != nil {
		return Response{}, fmt.Errorf("adapter_violation: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range a.config.CustomHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	a.applyAuth(httpReq, key)

	start := time.Now()
	httpResp, err := a.client.Do(httpReq)
	elapsed := time.Since(start)

	if err != nil {
		a.log.ErrorWithErr("request failed", err, map[string]interface{}{"endpoint": req.Endpoint})
		return Response{
			RequestID:    req.RequestID,
			Success:      false,
			ErrorMessage: err.Error(),
			ResponseMS:   elapsed.Milliseconds(),
			Timestamp:    time.Now().UTC(),
		}, nil
	}
	defer httpResp.Body.Close()

	raw, _ := io.ReadAll(httpResp.Body)
	body := map[string]interface{}{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	headers := map[string]string{}
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	success := httpResp.StatusCode >= 200 && httpResp.StatusCode < 300
	resp := Response{
		RequestID:  req.RequestID,
		StatusCode: httpResp.StatusCode,
		Headers:    headers,
		Body:       body,
		ResponseMS: elapsed.Milliseconds(),
		Success:    success,
		Timestamp:  time.Now().UTC(),
	}
	if !success {
		resp.ErrorMessage = fmt.Sprintf("%s returned status %d", a.service, httpResp.StatusCode)
	}
	return resp, nil
}

func (a *httpAdapter) applyAuth(req *http.Request, key string) {
	switch a.authStyle {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+key)
	case AuthAPIKeyHeader:
		req.Header.Set(a.authHeader, key)
	case AuthQueryParam:
		q := req.URL.Query()
		q.Set(a.authHeader, key)
		req.URL.RawQuery = q.Encode()
	}
}

// HealthCheck calls the configured health endpoint and reports
// reachability; it never propagates a transport error up the call
// stack, matching the registry's "health-check failures never
// propagate" rule.
func (a *httpAdapter) HealthCheck(ctx context.Context, key string) (Health, error) {
	resp, err := a.Request(ctx, Request{
		RequestID: "health-" + a.service,
		Endpoint:  a.config.HealthCheckEndpoint,
		Method:    http.MethodGet,
	}, key)
	if err != nil {
		return Health{Healthy: false, Detail: err.Error(), CheckedAt: time.Now().UTC()}, nil
	}
	return Health{
		Healthy:   resp.Success,
		LatencyMS: resp.ResponseMS,
		Detail:    resp.ErrorMessage,
		CheckedAt: resp.Timestamp,
	}, nil
}

// ValidateKey performs a lightweight authenticated call and reports
// whether the key was accepted.
func (a *httpAdapter) ValidateKey(ctx context.Context, key string) (bool, error) {
	health, err := a.HealthCheck(ctx, key)
	if err != nil {
		return false, err
	}
	return health.Healthy, nil
}
