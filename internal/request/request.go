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

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/willnyarko/arksync/internal/apierror"
)

// DefaultTimeout bounds every remote call. The remote system has no
// server-side deadline we can rely on; without this a stuck call would hang
// a worker for the rest of the run.
const DefaultTimeout = 30 * time.Second

var defaultClient = &http.Client{Timeout: DefaultTimeout}

// ToJsonReq converts a Go object to a JSON-encoded HTTP request payload,
// wrapped in a buffer ready to be sent.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, e := json.Marshal(payload)
	if e != nil {
		return nil, e
	}
	return bytes.NewBuffer(c), nil
}

// Call sends req and decodes the JSON response body into response. The
// request Content-Type is set to application/json. Failures are normalized
// into the apierror taxonomy:
//   - transport errors -> TRANSIENT_NETWORK
//   - non-2xx statuses -> classified by apierror.FromStatus
//   - undecodable 2xx bodies -> MALFORMED_RESPONSE
//
// A nil client uses a shared client with the default timeout. A nil response
// skips body decoding.
func Call(client *http.Client, req *http.Request, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if client == nil {
		client = defaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return resp, apierror.NewAPIError(apierror.ErrTransientNetwork,
			fmt.Sprintf("%s %s: %v", req.Method, req.URL.Path, err), nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, apierror.NewAPIError(apierror.ErrTransientNetwork,
			fmt.Sprintf("read response from %s: %v", req.URL.Path, err), nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, apierror.FromStatus(resp.StatusCode,
			fmt.Sprintf("%s %s", req.Method, req.URL.Path), string(body))
	}

	if response != nil {
		if err := json.Unmarshal(body, response); err != nil {
			return resp, apierror.NewAPIError(apierror.ErrMalformedResponse,
				fmt.Sprintf("decode response from %s: %v", req.URL.Path, err), string(body))
		}
	}
	return resp, nil
}
