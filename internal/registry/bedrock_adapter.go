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
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"research-orchestration-core/shared/logger"
)

// bedrockAdapter routes ai_analysis/ai_summary/synthesis step calls to
// AWS Bedrock instead of OpenRouter's HTTP API. It is selected in
// place of the plain openrouter adapter when BEDROCK_REGION is set,
// mirroring the teacher's multi-backend LLMRouter (OpenAI/Bedrock/
// Ollama) generalized to this registry's single-adapter-per-service
// contract: Bedrock is an alternate transport for the same service
// tag, not a seventh service.
type bedrockAdapter struct {
	client *bedrockruntime.Client
	region string
	log    *logger.Logger
}

// NewBedrockAdapter builds the Bedrock-backed alternate for
// openrouter. The key parameter passed to Request/ValidateKey is
// unused: Bedrock calls are authenticated via the AWS SDK's own
// credential chain, not a per-key secret, so the adapter accepts and
// ignores it to keep the shared Adapter contract uniform.
func NewBedrockAdapter(ctx context.Context, region string) (Adapter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("adapter_violation: load aws config: %w", err)
	}
	return &bedrockAdapter{
		client: bedrockruntime.NewFromConfig(cfg),
		region: region,
		log:    logger.New("registry.bedrock"),
	}, nil
}

func (b *bedrockAdapter) Endpoints() []string {
	return []string{"invoke-model"}
}

func (b *bedrockAdapter) Request(ctx context.Context, req Request, _ string) (Response, error) {
	modelID, _ := req.Body["model"].(string)
	if modelID == "" {
		modelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	payload, err := json.Marshal(req.Body)
	if err != nil {
		return Response{}, fmt.Errorf("adapter_violation: marshal body: %w", err)
	}

	timeout := 25 * time.Second
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := b.client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	elapsed := time.Since(start)

	if err != nil {
		b.log.ErrorWithErr("bedrock invoke failed", err, map[string]interface{}{"model": modelID})
		return Response{
			RequestID:    req.RequestID,
			Success:      false,
			ErrorMessage: err.Error(),
			ResponseMS:   elapsed.Milliseconds(),
			Timestamp:    time.Now().UTC(),
		}, nil
	}

	body := map[string]interface{}{}
	_ = json.Unmarshal(out.Body, &body)

	return Response{
		RequestID:  req.RequestID,
		StatusCode: 200,
		Body:       body,
		ResponseMS: elapsed.Milliseconds(),
		Success:    true,
		Timestamp:  time.Now().UTC(),
		Metadata:   map[string]interface{}{"backend": "bedrock", "model": modelID},
	}, nil
}

func (b *bedrockAdapter) HealthCheck(ctx context.Context, key string) (Health, error) {
	_, err := b.Request(ctx, Request{
		RequestID: "health-bedrock",
		Body:      map[string]interface{}{"model": "anthropic.claude-3-haiku-20240307-v1:0", "messages": []interface{}{}},
	}, key)
	if err != nil {
		return Health{Healthy: false, Detail: err.Error(), CheckedAt: time.Now().UTC()}, nil
	}
	return Health{Healthy: true, CheckedAt: time.Now().UTC()}, nil
}

func (b *bedrockAdapter) ValidateKey(ctx context.Context, key string) (bool, error) {
	h, err := b.HealthCheck(ctx, key)
	return h.Healthy, err
}

var _ Adapter = (*bedrockAdapter)(nil)
