/*
Copyright 2025 Arksync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package arksync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willnyarko/arksync/config"
)

// fakeAspace is an in-memory stand-in for the ArchivesSpace API: login,
// agent fetch, agent update.
type fakeAspace struct {
	mu       sync.Mutex
	agents   map[string]map[string]interface{}
	getOrder []string
	posts    map[string]int
	logins   int
}

func newFakeAspace() *fakeAspace {
	return &fakeAspace{
		agents: map[string]map[string]interface{}{},
		posts:  map[string]int{},
	}
}

func (f *fakeAspace) addAgent(uri, title string, identifiers ...map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agent := map[string]interface{}{
		"uri":          uri,
		"title":        title,
		"lock_version": float64(0),
	}
	if len(identifiers) > 0 {
		entries := make([]interface{}, 0, len(identifiers))
		for _, id := range identifiers {
			entries = append(entries, id)
		}
		agent["agent_record_identifiers"] = entries
	}
	f.agents[uri] = agent
}

func (f *fakeAspace) postCount(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[uri]
}

func (f *fakeAspace) fetchOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := make([]string, len(f.getOrder))
	copy(order, f.getOrder)
	return order
}

func (f *fakeAspace) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeAspace) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if strings.HasPrefix(r.URL.Path, "/users/") && strings.HasSuffix(r.URL.Path, "/login") {
			f.logins++
			_ = json.NewEncoder(w).Encode(map[string]string{"session": "tok-test"})
			return
		}

		agent, ok := f.agents[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Agent not found"})
			return
		}

		switch r.Method {
		case http.MethodGet:
			f.getOrder = append(f.getOrder, r.URL.Path)
			_ = json.NewEncoder(w).Encode(agent)
		case http.MethodPost:
			var updated map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			lock, _ := agent["lock_version"].(float64)
			updated["lock_version"] = lock + 1
			f.agents[r.URL.Path] = updated
			f.posts[r.URL.Path]++
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status":       "Updated",
				"lock_version": lock + 1,
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// newTestArksync wires an orchestrator against the fake server with every
// on-disk artifact in temp directories.
func newTestArksync(t *testing.T, serverURL string, dryRun bool) *Arksync {
	t.Helper()

	config.MockConfig(&config.Configuration{
		ProjectName: "Arksync Test",
		Credentials: config.CredentialsConfig{
			ArchivesSpace: config.ArchivesSpaceConfig{
				APIURL:   serverURL,
				Username: "admin",
				Password: "admin",
			},
			SNAC: config.SNACConfig{BaseURL: serverURL},
		},
		Paths: config.PathsConfig{
			PrimaryCacheDir:   t.TempDir(),
			SecondaryCacheDir: t.TempDir(),
			SNACCacheDir:      t.TempDir(),
			CheckpointDir:     t.TempDir(),
			ReportsDir:        t.TempDir(),
		},
		Run: config.RunConfig{
			BatchSize:          2,
			Workers:            2,
			CheckpointInterval: 1,
			RefreshInterval:    1000,
			MaxAttempts:        1,
			ThrottleRPS:        1000,
		},
	})

	a, err := NewArksync(config.EnvTest, dryRun)
	require.NoError(t, err)
	return a
}

func startFakeAspace(t *testing.T) (*fakeAspace, *httptest.Server) {
	t.Helper()
	fake := newFakeAspace()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	return fake, server
}
