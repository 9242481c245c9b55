package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	commonconfig "github.com/Xushengqwer/go-common/config"
	"github.com/Xushengqwer/go-common/core"

	"github.com/Xushengqwer/fallback_replay/internal/config"
	"github.com/Xushengqwer/fallback_replay/internal/models"
)

func testLogger(t *testing.T) *core.ZapLogger {
	t.Helper()
	logger, err := core.NewZapLogger(commonconfig.ZapConfig{})
	if err != nil {
		t.Fatalf("初始化测试 logger 失败: %v", err)
	}
	return logger
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.BackendConfig{
		BaseURL:          baseURL,
		RequestTimeoutMs: 2000,
	}, testLogger(t))
	if err != nil {
		t.Fatalf("NewClient 返回错误: %v", err)
	}
	return client
}

func TestFetchMessage(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantOK      bool
		wantErr     bool
		wantPayload string
	}{
		{
			name:        "queue has message",
			status:      http.StatusOK,
			body:        `{"queue_name":"sql_fallback","message":{"name":"Ana","email":"ana@x.com"}}`,
			wantOK:      true,
			wantPayload: `{"name":"Ana","email":"ana@x.com"}`,
		},
		{
			name:   "queue empty with null message",
			status: http.StatusOK,
			body:   `{"queue_name":"sql_fallback","message":null}`,
			wantOK: false,
		},
		{
			name:   "queue empty with absent message",
			status: http.StatusOK,
			body:   `{}`,
			wantOK: false,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"detail":"boom"}`,
			wantErr: true,
		},
		{
			name:    "malformed response body",
			status:  http.StatusOK,
			body:    `not-json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotMethod string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotMethod = r.Method
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			payload, ok, err := client.FetchMessage(context.Background(), "sql_fallback")

			if tt.wantErr {
				if err == nil {
					t.Fatalf("期望错误，实际为 nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchMessage 返回错误: %v", err)
			}
			if gotMethod != http.MethodGet || gotPath != "/messages/sql_fallback" {
				t.Errorf("请求不符合预期: %s %s", gotMethod, gotPath)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, 期望 %v", ok, tt.wantOK)
			}
			if tt.wantOK && string(payload) != tt.wantPayload {
				t.Errorf("payload = %s, 期望 %s", payload, tt.wantPayload)
			}
		})
	}
}

func TestCreateUser(t *testing.T) {
	var gotPath, gotMethod, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1,"name":"Ana","email":"ana@x.com"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.CreateUser(context.Background(), models.UserReplayRecord{Name: "Ana", Email: "ana@x.com"})
	if err != nil {
		t.Fatalf("CreateUser 返回错误: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/users/" {
		t.Errorf("请求不符合预期: %s %s", gotMethod, gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if string(gotBody) != `{"name":"Ana","email":"ana@x.com"}` {
		t.Errorf("请求体 = %s", gotBody)
	}
}

func TestCreateUserErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail":"database unavailable"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.CreateUser(context.Background(), models.UserReplayRecord{Name: "Ana", Email: "ana@x.com"})
	if err == nil {
		t.Fatal("期望写入失败返回错误，实际为 nil")
	}
}

func TestAppendLogDetailsPassthrough(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/logs/" {
			t.Errorf("请求不符合预期: %s %s", r.Method, r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"abc"}`)
	}))
	defer server.Close()

	// details 中刻意保留空白和嵌套结构，重放必须逐字节传递。
	details := json.RawMessage(`{"retry": 3, "nested": {"path": ["a", "b"]}}`)
	client := newTestClient(t, server.URL)
	err := client.AppendLog(context.Background(), models.LogReplayRecord{Action: "user_sync", Details: details})
	if err != nil {
		t.Fatalf("AppendLog 返回错误: %v", err)
	}

	var sent struct {
		Action  string          `json:"action"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("解析捕获的请求体失败: %v", err)
	}
	if sent.Action != "user_sync" {
		t.Errorf("action = %q", sent.Action)
	}
	if string(sent.Details) != string(details) {
		t.Errorf("details 未逐字节传递: %s != %s", sent.Details, details)
	}
}

func TestEnqueueMessage(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages/" {
			t.Errorf("请求不符合预期: %s %s", r.Method, r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.EnqueueMessage(context.Background(), "sql_fallback", json.RawMessage(`{"name":"Ana","email":"ana@x.com"}`))
	if err != nil {
		t.Fatalf("EnqueueMessage 返回错误: %v", err)
	}
	if string(gotBody) != `{"queue_name":"sql_fallback","message":{"name":"Ana","email":"ana@x.com"}}` {
		t.Errorf("请求体 = %s", gotBody)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(config.BackendConfig{}, testLogger(t))
	if err != nil {
		t.Fatalf("NewClient 返回错误: %v", err)
	}
	if client.baseURL != "http://localhost:8000" {
		t.Errorf("默认 baseURL = %q", client.baseURL)
	}
}
