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

package notification

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/willnyarko/arksync/config"
)

func TestSlackNotification(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	webhook := "https://hooks.slack.com/services/T000/B000/XXXX"
	var payload string
	httpmock.RegisterResponder("POST", webhook,
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			payload = string(body)
			return httpmock.NewStringResponse(200, `{"ok": true}`), nil
		})

	config.MockConfig(&config.Configuration{
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: webhook}},
	})

	SlackNotification(errors.New("session refresh failed"))

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Contains(t, payload, "Arksync run failure")
	assert.Contains(t, payload, "session refresh failed")
}
