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

package datasources

import (
	"context"
	"net/http"

	"github.com/willnyarko/arksync/internal/request"
)

// SNACClient reads constellation summaries from the SNAC API. SNAC is
// read-only here; it feeds the local snapshot cache the comparator and
// warm-cache command use.
type SNACClient struct {
	baseURL string
	client  *http.Client
}

func NewSNACClient(baseURL string) *SNACClient {
	return &SNACClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: request.DefaultTimeout},
	}
}

type snacReadRequest struct {
	Command string `json:"command"`
	ArkID   string `json:"arkid"`
	Type    string `json:"type"`
}

// FetchSummary reads a constellation summary by ARK. The full payload is
// returned as a generic map so the cache file preserves everything SNAC
// sent, modeled or not.
func (c *SNACClient) FetchSummary(ctx context.Context, ark string) (map[string]interface{}, error) {
	payload, err := request.ToJsonReq(snacReadRequest{Command: "read", ArkID: ark, Type: "summary"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var summary map[string]interface{}
	if _, err := request.Call(c.client, req, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// MergedRedirect inspects a summary for a merge notice: SNAC answers
// success-notice with a redirect target when the requested ARK was merged
// into another constellation. Returns the target ARK and whether a merge was
// recorded.
func MergedRedirect(summary map[string]interface{}) (string, bool) {
	if summary["result"] != "success-notice" {
		return "", false
	}
	message, _ := summary["message"].(map[string]interface{})
	info, _ := message["info"].(map[string]interface{})
	if info["type"] != "merged" {
		return "", false
	}
	redirect, _ := info["redirect"].(string)
	return redirect, true
}
