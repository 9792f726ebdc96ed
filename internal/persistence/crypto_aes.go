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

package persistence

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"research-orchestration-core/shared/types"
)

// AESGCMCrypto is a reference Crypto implementation: AES-256-GCM with
// a random nonce prepended to the ciphertext. The core treats the
// result as an opaque blob; nothing outside this file interprets its
// layout.
type AESGCMCrypto struct {
	gcm cipher.AEAD
}

// NewAESGCMCrypto builds an AESGCMCrypto from a 32-byte key.
func NewAESGCMCrypto(key []byte) (*AESGCMCrypto, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, types.NewError(types.InvalidConfiguration, "persistence", "NewAESGCMCrypto", "invalid key", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, types.NewError(types.InvalidConfiguration, "persistence", "NewAESGCMCrypto", "failed to build GCM", err)
	}
	return &AESGCMCrypto{gcm: gcm}, nil
}

// Encrypt seals plaintext behind a fresh random nonce, returning
// nonce||ciphertext.
func (c *AESGCMCrypto) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, types.NewError(types.InvalidConfiguration, "persistence", "Encrypt", "failed to generate nonce", err)
	}
	return c.gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt reverses Encrypt, splitting the leading nonce back off
// before opening the seal.
func (c *AESGCMCrypto) Decrypt(ciphertext []byte) (string, error) {
	n := c.gcm.NonceSize()
	if len(ciphertext) < n {
		return "", types.NewError(types.InvalidConfiguration, "persistence", "Decrypt", "ciphertext shorter than nonce", nil)
	}
	nonce, sealed := ciphertext[:n], ciphertext[n:]
	plaintext, err := c.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", types.NewError(types.InvalidConfiguration, "persistence", "Decrypt", "failed to open seal", err)
	}
	return string(plaintext), nil
}
