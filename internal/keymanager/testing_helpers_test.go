// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keymanager

import "research-orchestration-core/shared/types"

// plaintextCrypto is a test double that skips real encryption so
// tests can assert on round-tripped secrets without pulling in the
// persistence package's AES implementation.
type plaintextCrypto struct{}

func (plaintextCrypto) Encrypt(plaintext string) ([]byte, error) { return []byte(plaintext), nil }
func (plaintextCrypto) Decrypt(ciphertext []byte) (string, error) { return string(ciphertext), nil }

// memoryPersistence is an in-memory Persistence test double.
type memoryPersistence struct {
	keys map[string]*types.ApiKey
}

func newMemoryPersistence() *memoryPersistence {
	return &memoryPersistence{keys: make(map[string]*types.ApiKey)}
}

func (p *memoryPersistence) StoreKey(key *types.ApiKey) error {
	p.keys[key.ID] = key
	return nil
}

func (p *memoryPersistence) DeleteKey(id string) error {
	delete(p.keys, id)
	return nil
}

func (p *memoryPersistence) GetAllKeys() ([]*types.ApiKey, error) {
	out := make([]*types.ApiKey, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, k)
	}
	return out, nil
}

func newTestManager() *Manager {
	return NewManager(plaintextCrypto{}, newMemoryPersistence(), nil)
}
