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

package workflow

import (
	"strings"

	"research-orchestration-core/shared/types"
)

// ExtractSources pulls deduplicated source URLs out of a step's raw
// output body, checking the three shapes the provider adapters emit:
// a `sources` array of objects carrying `url` or `link`, and a flat
// `mapped_urls` string array. Exported so methodology Postprocess
// implementations share one extraction rule instead of reinventing it.
func ExtractSources(outputs map[string]map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var ordered []string

	add := func(url string) {
		url = strings.TrimSpace(url)
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		ordered = append(ordered, url)
	}

	for _, out := range outputs {
		if sources, ok := out["sources"].([]interface{}); ok {
			for _, raw := range sources {
				entry, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				if url, ok := entry["url"].(string); ok {
					add(url)
				} else if link, ok := entry["link"].(string); ok {
					add(link)
				}
			}
		}
		if mapped, ok := out["mapped_urls"].([]interface{}); ok {
			for _, raw := range mapped {
				if url, ok := raw.(string); ok {
					add(url)
				}
			}
		}
	}
	return ordered
}

// WordCount returns the whitespace-delimited word count of content.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// CompileResults assembles the final ResearchResults for a completed
// workflow from its terminal-step content and every step's raw
// outputs, stamping source count, word count, and methodology tag.
// Execution time is filled in by the caller once StartedAt/CompletedAt
// are both known.
func CompileResults(w *types.Workflow, content string, outputs map[string]map[string]interface{}, metadata map[string]string) *types.ResearchResults {
	sources := ExtractSources(outputs)
	return &types.ResearchResults{
		Content:     content,
		Sources:     sources,
		Metadata:    metadata,
		WordCount:   WordCount(content),
		SourceCount: len(sources),
		Methodology: w.Methodology,
	}
}
