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

package methodology

import (
	"research-orchestration-core/internal/workflow"
	"research-orchestration-core/shared/types"
)

// All returns the closed set of methodologies this library implements,
// keyed by their workflow tag. internal/runtime registers every entry
// with the workflow engine at startup.
func All() map[types.Methodology]workflow.Methodology {
	return map[types.Methodology]workflow.Methodology{
		types.MethodologyQuick:         Quick{},
		types.MethodologyComprehensive: Comprehensive{},
		types.MethodologyAcademic:      Academic{},
		types.MethodologyDonLim:        DonLim{},
		types.MethodologyNickScamara:   NickScamara{},
		types.MethodologyHybrid:        Hybrid{},
	}
}
