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

import "research-orchestration-core/shared/types"

// closedServiceTags is the registry's entire addressable surface; no
// other service tag is ever valid.
var closedServiceTags = map[string]struct{}{
	string(types.ServiceOpenRouter): {},
	string(types.ServiceSerpAPI):    {},
	string(types.ServiceJina):       {},
	string(types.ServiceFirecrawl):  {},
	string(types.ServiceTavily):     {},
	string(types.ServiceExa):        {},
}

// IsKnownService reports whether tag (already lowercased) belongs to
// the closed service-tag set.
func IsKnownService(tag string) bool {
	_, ok := closedServiceTags[tag]
	return ok
}

// NewOpenRouterAdapter builds the adapter for openrouter.ai's chat
// completion API, used by the ai_analysis/ai_summary/synthesis step
// kinds.
func NewOpenRouterAdapter(config *ServiceConfig) Adapter {
	return newHTTPAdapter(string(types.ServiceOpenRouter), config, AuthBearer, "",
		[]string{"/api/v1/chat/completions", "/api/v1/models"})
}

// NewSerpAPIAdapter builds the adapter for SerpApi web search, used by
// the web_search step kind.
func NewSerpAPIAdapter(config *ServiceConfig) Adapter {
	return newHTTPAdapter(string(types.ServiceSerpAPI), config, AuthQueryParam, "api_key",
		[]string{"/search"})
}

// NewJinaAdapter builds the adapter for Jina's embeddings and reader
// APIs, used by the embeddings and content_extraction step kinds.
func NewJinaAdapter(config *ServiceConfig) Adapter {
	return newHTTPAdapter(string(types.ServiceJina), config, AuthBearer, "",
		[]string{"/v1/embeddings", "/v1/reader"})
}

// NewFirecrawlAdapter builds the adapter for Firecrawl's scrape and
// map APIs, used by the content_extraction and content_mapping step
// kinds.
func NewFirecrawlAdapter(config *ServiceConfig) Adapter {
	return newHTTPAdapter(string(types.ServiceFirecrawl), config, AuthBearer, "",
		[]string{"/v1/scrape", "/v1/map"})
}

// NewTavilyAdapter builds the adapter for Tavily's search API, used by
// the quick methodology's web_search step.
func NewTavilyAdapter(config *ServiceConfig) Adapter {
	return newHTTPAdapter(string(types.ServiceTavily), config, AuthAPIKeyHeader, "X-Api-Key",
		[]string{"/search"})
}

// NewExaAdapter builds the adapter for Exa's academic/neural search
// API, used by the academic_search step kind.
func NewExaAdapter(config *ServiceConfig) Adapter {
	return newHTTPAdapter(string(types.ServiceExa), config, AuthAPIKeyHeader, "x-api-key",
		[]string{"/search", "/contents"})
}
