package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenops/grounds/internal/account"
	accountrepo "github.com/gardenops/grounds/internal/account/repositoryimpl"
	"github.com/gardenops/grounds/internal/attachment"
	"github.com/gardenops/grounds/internal/config"
	"github.com/gardenops/grounds/internal/eventbus"
	"github.com/gardenops/grounds/internal/session"
	"github.com/gardenops/grounds/internal/task"
	taskrepo "github.com/gardenops/grounds/internal/task/repositoryimpl"
	"github.com/gardenops/grounds/pkg/storage"
)

// startTestServer wires the full stack against a temp directory and
// seeds one admin and one generic account.
func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	bus := eventbus.New()
	accountRepo := accountrepo.NewJSONRepository(store)
	taskRepo := taskrepo.NewJSONRepository(store)
	attachments := attachment.NewStore(store)

	taskServer := task.NewServer(taskRepo, accountRepo, attachments, bus)
	accountServer := account.NewServer(accountRepo, taskServer)
	manager := session.NewManager(time.Hour)
	sessionServer := session.NewServer(manager, accountServer)
	accountServer.SetSessionInvalidator(manager)

	_, err = account.Seed(context.Background(), accountRepo, []account.SeedAccount{
		{Username: "head-gardener", Password: "topsecret", Role: "admin"},
		{Username: "alice", Password: "topsecret", Role: "staff"},
	})
	require.NoError(t, err)

	srv := NewServer(&config.Env{}, sessionServer, taskServer, accountServer, attachments)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func login(t *testing.T, client *http.Client, baseURL, username, password string) map[string]any {
	t.Helper()
	resp, body := doJSON(t, client, http.MethodPost, baseURL+"/api/login", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login body: %v", body)
	return body
}

func TestHealth(t *testing.T) {
	ts := startTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginAndSession(t *testing.T) {
	ts := startTestServer(t)
	client := newClient(t)

	body := login(t, client, ts.URL, "head-gardener", "topsecret")
	assert.Equal(t, "admin", body["role"])
	assert.Equal(t, "head-gardener", body["username"])

	resp, body := doJSON(t, client, http.MethodGet, ts.URL+"/api/session", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body["role"])

	resp, body = doJSON(t, client, http.MethodPost, ts.URL+"/api/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["loggedOut"])

	resp, body = doJSON(t, client, http.MethodGet, ts.URL+"/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", body["code"])
}

func TestLoginBadCredentials(t *testing.T) {
	ts := startTestServer(t)
	client := newClient(t)

	resp, body := doJSON(t, client, http.MethodPost, ts.URL+"/api/login", map[string]string{
		"username": "head-gardener",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", body["message"])

	// An unknown username gets the same answer as a wrong password.
	resp, body = doJSON(t, client, http.MethodPost, ts.URL+"/api/login", map[string]string{
		"username": "nobody",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", body["message"])
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	ts := startTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL, "head-gardener", "topsecret")

	resp, created := doJSON(t, client, http.MethodPost, ts.URL+"/api/tasks", map[string]any{
		"title":    "Prune the apple trees",
		"category": "TreeWork",
		"dueDate":  "2026-04-10",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "create body: %v", created)
	assert.Equal(t, "Spring", created["season"])
	assert.Equal(t, false, created["completed"])
	taskID, _ := created["id"].(string)
	require.NotEmpty(t, taskID)

	listResp, err := client.Get(ts.URL + "/api/tasks")
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, "Prune the apple trees", list[0]["title"])

	resp, completed := doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/api/tasks/%s/complete", ts.URL, taskID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, completed["completed"])

	// Completing twice is rejected.
	resp, body := doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/api/tasks/%s/complete", ts.URL, taskID), nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, "failed_precondition", body["code"])

	resp, archived := doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/api/tasks/%s/archive", ts.URL, taskID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, archived["archived"])

	resp, body = doJSON(t, client, http.MethodDelete, fmt.Sprintf("%s/api/tasks/%s", ts.URL, taskID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["deleted"])

	resp, body = doJSON(t, client, http.MethodDelete, fmt.Sprintf("%s/api/tasks/%s", ts.URL, taskID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestGenericRoleDeniedOverHTTP(t *testing.T) {
	ts := startTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL, "alice", "topsecret")

	resp, body := doJSON(t, client, http.MethodPost, ts.URL+"/api/tasks", map[string]any{
		"title":    "Mow the lawn",
		"category": "LawnCare",
		"dueDate":  "2026-07-01",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "permission_denied", body["code"])
}

func TestUnauthenticatedRequests(t *testing.T) {
	ts := startTestServer(t)
	client := newClient(t)

	resp, body := doJSON(t, client, http.MethodGet, ts.URL+"/api/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", body["code"])
}

func TestUnknownAPIRoute(t *testing.T) {
	ts := startTestServer(t)
	client := newClient(t)

	resp, body := doJSON(t, client, http.MethodGet, ts.URL+"/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestUploadPathTraversalRejected(t *testing.T) {
	ts := startTestServer(t)

	resp, err := http.Get(ts.URL + "/uploads/../tasks/secret.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
