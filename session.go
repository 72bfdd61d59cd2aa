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
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/willnyarko/arksync/config"
	"github.com/willnyarko/arksync/internal/apierror"
	"github.com/willnyarko/arksync/internal/request"
	"github.com/willnyarko/arksync/model"
)

const sessionHeader = "X-ArchivesSpace-Session"

// Session is an authenticated handle to the ArchivesSpace API. It is
// read-only while a batch is in flight; the manager swaps handles only
// between batches.
type Session struct {
	Token   string
	BaseURL string
}

// SessionManager acquires and refreshes ArchivesSpace sessions for one
// environment and performs the credentialed record operations. Retry policy
// is the caller's concern: every method here is a single attempt.
type SessionManager struct {
	username string
	password string
	baseURL  string
	env      string
	client   *http.Client

	mu      sync.RWMutex
	current *Session
}

// NewSessionManager resolves the environment's base address and prepares a
// manager. No network traffic happens until Authenticate. Resolution fails
// loudly when production is selected without an explicit production URL.
func NewSessionManager(cnf *config.Configuration, environment string) (*SessionManager, error) {
	baseURL, err := cnf.APIURLFor(environment)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConfig, err.Error(), nil)
	}
	return &SessionManager{
		username: cnf.Credentials.ArchivesSpace.Username,
		password: cnf.Credentials.ArchivesSpace.Password,
		baseURL:  baseURL,
		env:      environment,
		client:   &http.Client{Timeout: request.DefaultTimeout},
	}, nil
}

// BaseURL returns the resolved environment address.
func (m *SessionManager) BaseURL() string {
	return m.baseURL
}

// Current returns the most recently acquired session, or nil before the
// first Authenticate.
func (m *SessionManager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Authenticate exchanges credentials for a session token. A 2xx response
// without a session token is an auth failure, not a transient one.
func (m *SessionManager) Authenticate(ctx context.Context) (*Session, error) {
	logrus.Infof("Authenticating with ArchivesSpace %s API at %s", strings.ToUpper(m.env), m.baseURL)

	loginURL := fmt.Sprintf("%s/users/%s/login?password=%s",
		m.baseURL, url.PathEscape(m.username), url.QueryEscape(m.password))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build login request")
	}

	var body struct {
		Session string `json:"session"`
	}
	if _, err := request.Call(m.client, req, &body); err != nil {
		return nil, err
	}
	if body.Session == "" {
		return nil, apierror.NewAPIError(apierror.ErrAuth,
			fmt.Sprintf("no session token returned by ArchivesSpace %s", strings.ToUpper(m.env)), nil)
	}

	session := &Session{Token: body.Session, BaseURL: m.baseURL}
	m.mu.Lock()
	m.current = session
	m.mu.Unlock()

	logrus.Infof("Authentication successful to %s", strings.ToUpper(m.env))
	return session, nil
}

// Refresh re-acquires credentials, replacing the current handle. Called
// proactively on a fixed batch cadence to pre-empt session expiry; reacting
// to 401s mid-batch would mean pausing live workers.
func (m *SessionManager) Refresh(ctx context.Context) error {
	_, err := m.Authenticate(ctx)
	return err
}

func (m *SessionManager) newRecordRequest(ctx context.Context, method, recordURI string, payload *strings.Reader) (*http.Request, error) {
	session := m.Current()
	if session == nil {
		return nil, apierror.NewAPIError(apierror.ErrAuth, "no active session, call Authenticate first", nil)
	}
	var req *http.Request
	var err error
	if payload != nil {
		req, err = http.NewRequestWithContext(ctx, method, m.baseURL+recordURI, payload)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, m.baseURL+recordURI, nil)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "build %s request for %s", method, recordURI)
	}
	req.Header.Set(sessionHeader, session.Token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// FetchAgent retrieves one agent record by URI path.
func (m *SessionManager) FetchAgent(ctx context.Context, agentURI string) (*model.AgentRecord, error) {
	req, err := m.newRecordRequest(ctx, http.MethodGet, agentURI, nil)
	if err != nil {
		return nil, err
	}
	agent := &model.AgentRecord{}
	if _, err := request.Call(m.client, req, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// SubmitAgent posts an updated agent record back. Returns the lock version
// ArchivesSpace stamped on the saved record, or -1 when the response did not
// carry one.
func (m *SessionManager) SubmitAgent(ctx context.Context, agentURI string, agent *model.AgentRecord) (int, error) {
	payload, err := request.ToJsonReq(agent)
	if err != nil {
		return -1, apierror.NewAPIError(apierror.ErrSubmitFailure,
			fmt.Sprintf("encode agent %s: %v", agentURI, err), nil)
	}
	req, err := m.newRecordRequest(ctx, http.MethodPost, agentURI, strings.NewReader(payload.String()))
	if err != nil {
		return -1, err
	}

	var body struct {
		LockVersion *int `json:"lock_version"`
	}
	if _, err := request.Call(m.client, req, &body); err != nil {
		return -1, err
	}
	if body.LockVersion == nil {
		return -1, nil
	}
	return *body.LockVersion, nil
}
