package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func cloudTestServer(t *testing.T, handler http.HandlerFunc) *CursorCloudTool {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCursorCloudTool(CursorCloudConfig{APIKey: "key-123", BaseURL: srv.URL})
}

// TestCursorCloud_Launch verifies the request body shape, basic auth, and the
// summary line.
func TestCursorCloud_Launch(t *testing.T) {
	tool := cloudTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/agents" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key-123" || pass != "" {
			t.Errorf("auth = %q / %q / %v", user, pass, ok)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		prompt, _ := body["prompt"].(map[string]interface{})
		if prompt["text"] != "fix the flaky test" {
			t.Errorf("prompt = %+v", prompt)
		}
		source, _ := body["source"].(map[string]interface{})
		if source["repository"] != "https://github.com/org/repo" {
			t.Errorf("source = %+v", source)
		}
		if body["model"] != "default" {
			t.Errorf("model = %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "ag-1", "name": "fix-flaky", "status": "RUNNING",
			"target": {"url": "https://cursor.com/agents/ag-1"}}`)
	})

	res := tool.Execute(context.Background(), map[string]interface{}{
		"action":     "launch",
		"prompt":     "fix the flaky test",
		"repository": "https://github.com/org/repo",
	})
	if res.IsError {
		t.Fatalf("error: %s", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "Agent 'fix-flaky' launched (id=ag-1)") {
		t.Errorf("summary = %q", res.ForLLM)
	}
}

// TestCursorCloud_ModelPolicy verifies an unconfirmed non-default model is
// forced back to default, and a confirmed one passes through.
func TestCursorCloud_ModelPolicy(t *testing.T) {
	var gotModels []string
	tool := cloudTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		gotModels = append(gotModels, fmt.Sprintf("%v", body["model"]))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "ag-2", "status": "RUNNING"}`)
	})

	base := map[string]interface{}{
		"action":     "launch",
		"prompt":     "task",
		"repository": "https://github.com/org/repo",
		"model":      "claude-4-opus",
	}
	tool.Execute(context.Background(), base)

	confirmed := map[string]interface{}{}
	for k, v := range base {
		confirmed[k] = v
	}
	confirmed["user_confirmed_model"] = true
	tool.Execute(context.Background(), confirmed)

	if len(gotModels) != 2 || gotModels[0] != "default" || gotModels[1] != "claude-4-opus" {
		t.Errorf("models = %v", gotModels)
	}
}

// TestCursorCloud_List verifies the per-agent summary lines.
func TestCursorCloud_List(t *testing.T) {
	tool := cloudTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents" || r.URL.Query().Get("limit") != "20" {
			t.Errorf("%s ? %s", r.URL.Path, r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"agents": [
			{"id": "ag-1", "status": "RUNNING", "name": "one"},
			{"id": "ag-2", "status": "FINISHED", "name": "two"}]}`)
	})

	res := tool.Execute(context.Background(), map[string]interface{}{"action": "list"})
	if res.IsError {
		t.Fatalf("error: %s", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "2 agent(s):") || !strings.Contains(res.ForLLM, "ag-2") {
		t.Errorf("summary = %q", res.ForLLM)
	}
}

// TestCursorCloud_ActionAliases verifies create/get/info route to their
// canonical handlers.
func TestCursorCloud_ActionAliases(t *testing.T) {
	var paths []string
	tool := cloudTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "ag-1", "status": "RUNNING", "apiKeyName": "k"}`)
	})

	tool.Execute(context.Background(), map[string]interface{}{"action": "get", "agent_id": "ag-1"})
	tool.Execute(context.Background(), map[string]interface{}{"action": "info"})

	want := []string{"GET /agents/ag-1", "GET /me"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v", paths)
	}
}

// TestCursorCloud_Errors covers the pre-flight and validation error messages.
func TestCursorCloud_Errors(t *testing.T) {
	noKey := NewCursorCloudTool(CursorCloudConfig{})
	res := noKey.Execute(context.Background(), map[string]interface{}{"action": "list"})
	if !res.IsError || !strings.Contains(res.ForLLM, "Cursor API key not configured") {
		t.Errorf("result = %+v", res)
	}

	tool := cloudTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	res = tool.Execute(context.Background(), map[string]interface{}{"action": "teleport"})
	if !res.IsError || !strings.Contains(res.ForLLM, "Unknown action 'teleport'") {
		t.Errorf("result = %+v", res)
	}
	res = tool.Execute(context.Background(), map[string]interface{}{"action": "status"})
	if !res.IsError || !strings.Contains(res.ForLLM, "agent_id is required") {
		t.Errorf("result = %+v", res)
	}
	res = tool.Execute(context.Background(), map[string]interface{}{"action": "launch", "prompt": "x"})
	if !res.IsError || !strings.Contains(res.ForLLM, "Either repository or pr_url is required") {
		t.Errorf("result = %+v", res)
	}
}

// TestCursorCloud_HTTPError verifies non-2xx responses surface status and
// body snippet.
func TestCursorCloud_HTTPError(t *testing.T) {
	tool := cloudTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	res := tool.Execute(context.Background(), map[string]interface{}{"action": "me"})
	if !res.IsError || !strings.Contains(res.ForLLM, "HTTP 429") {
		t.Errorf("result = %+v", res)
	}
}
