package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	cursorAPIBase        = "https://api.cursor.com/v0"
	cursorTimeoutSeconds = 60
	cursorDefaultModel   = "default"
)

// CursorCloudTool manages Cursor Cloud Agents over the v0 HTTP API. Auth is
// HTTP basic with the API key as username and an empty password.
type CursorCloudTool struct {
	apiKey       string
	defaultModel string
	client       *http.Client
	baseURL      string
}

// CursorCloudConfig holds the cloud agent tool settings.
type CursorCloudConfig struct {
	APIKey       string
	DefaultModel string
	BaseURL      string // override for tests
}

func NewCursorCloudTool(cfg CursorCloudConfig) *CursorCloudTool {
	base := cfg.BaseURL
	if base == "" {
		base = cursorAPIBase
	}
	model := cfg.DefaultModel
	if model == "" {
		model = cursorDefaultModel
	}
	return &CursorCloudTool{
		apiKey:       cfg.APIKey,
		defaultModel: model,
		client:       &http.Client{Timeout: cursorTimeoutSeconds * time.Second},
		baseURL:      base,
	}
}

func (t *CursorCloudTool) Name() string { return "cursor_agent" }

func (t *CursorCloudTool) Description() string {
	return "Launch and manage Cursor Cloud Agents on repositories: launch, status, list, conversation, followup, stop, delete, models, repos, me."
}

// actionAliases maps every accepted action spelling to its canonical name.
var actionAliases = map[string]string{
	"launch":       "launch",
	"create":       "launch",
	"status":       "status",
	"get":          "status",
	"list":         "list",
	"conversation": "conversation",
	"followup":     "followup",
	"follow_up":    "followup",
	"stop":         "stop",
	"delete":       "delete",
	"models":       "models",
	"repos":        "repos",
	"repositories": "repos",
	"me":           "me",
	"info":         "me",
}

func (t *CursorCloudTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.apiKey == "" {
		return ErrorResult("Cursor API key not configured. Set cursor_api_key in config or CURSOR_API_KEY env var.")
	}

	rawAction, _ := args["action"].(string)
	action, ok := actionAliases[strings.ToLower(strings.TrimSpace(rawAction))]
	if !ok {
		names := map[string]bool{}
		for _, canonical := range actionAliases {
			names[canonical] = true
		}
		available := make([]string, 0, len(names))
		for n := range names {
			available = append(available, n)
		}
		sort.Strings(available)
		return ErrorResult(fmt.Sprintf("Unknown action '%s'. Available: %s", rawAction, strings.Join(available, ", ")))
	}

	var (
		payload map[string]interface{}
		err     error
	)
	switch action {
	case "launch":
		payload, err = t.launch(ctx, args)
	case "status":
		payload, err = t.status(ctx, args)
	case "list":
		payload, err = t.listAgents(ctx, args)
	case "conversation":
		payload, err = t.conversation(ctx, args)
	case "followup":
		payload, err = t.followup(ctx, args)
	case "stop":
		payload, err = t.stop(ctx, args)
	case "delete":
		payload, err = t.deleteAgent(ctx, args)
	case "models":
		payload, err = t.listModels(ctx)
	case "repos":
		payload, err = t.listRepos(ctx)
	case "me":
		payload, err = t.me(ctx)
	}
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(renderCloudResult(payload))
}

// renderCloudResult prefers the human _summary line, falling back to a JSON
// snippet.
func renderCloudResult(payload map[string]interface{}) string {
	if summary, ok := payload["_summary"].(string); ok && summary != "" {
		return summary
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return truncateStr(string(data), 3000)
}

func (t *CursorCloudTool) launch(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	repository, _ := args["repository"].(string)
	prURL, _ := args["pr_url"].(string)
	if repository == "" && prURL == "" {
		return nil, fmt.Errorf("Either repository or pr_url is required")
	}

	body := map[string]interface{}{
		"prompt": map[string]interface{}{"text": prompt},
	}
	source := map[string]interface{}{}
	if prURL != "" {
		source["prUrl"] = prURL
	} else {
		source["repository"] = repository
		if ref, _ := args["ref"].(string); ref != "" {
			source["ref"] = ref
		}
	}
	body["source"] = source

	body["model"] = t.effectiveModel(args)

	target := map[string]interface{}{}
	if b, _ := args["auto_create_pr"].(bool); b {
		target["autoCreatePr"] = true
	}
	if branch, _ := args["branch_name"].(string); branch != "" {
		target["branchName"] = branch
	}
	if b, _ := args["open_as_cursor_app"].(bool); b {
		target["openAsCursorGithubApp"] = true
	}
	if b, _ := args["skip_reviewer_request"].(bool); b {
		target["skipReviewerRequest"] = true
	}
	if len(target) > 0 {
		body["target"] = target
	}

	payload, err := t.request(ctx, "POST", "/agents", body)
	if err != nil {
		return nil, err
	}
	payload["_summary"] = fmt.Sprintf("Agent '%s' launched (id=%v). Status: %v. URL: %v",
		str(payload["name"], "unnamed"), payload["id"], payload["status"], nested(payload, "target", "url"))
	return payload, nil
}

// effectiveModel enforces the model policy: a non-default model is honored
// only when the user explicitly confirmed it. Unconfirmed requests fall back
// to "default" so the tool never silently picks an expensive model.
func (t *CursorCloudTool) effectiveModel(args map[string]interface{}) string {
	model, _ := args["model"].(string)
	confirmed, _ := args["user_confirmed_model"].(bool)

	if model != "" && model != cursorDefaultModel && !confirmed {
		slog.Warn("non-default cloud agent model requested without confirmation, forcing default", "model", model)
		return cursorDefaultModel
	}
	if model == "" {
		model = t.defaultModel
		if model != cursorDefaultModel && !confirmed {
			slog.Warn("configured default_model used without confirmation, forcing default", "model", model)
			return cursorDefaultModel
		}
	}
	return model
}

func (t *CursorCloudTool) status(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	id, err := agentID(args)
	if err != nil {
		return nil, err
	}
	payload, err := t.request(ctx, "GET", "/agents/"+id, nil)
	if err != nil {
		return nil, err
	}
	payload["_summary"] = fmt.Sprintf("Agent '%s': %v. Summary: %s",
		str(payload["name"], "?"), payload["status"], str(payload["summary"], "N/A"))
	return payload, nil
}

func (t *CursorCloudTool) listAgents(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	limit := 20
	if l, ok := args["limit"].(float64); ok && int(l) > 0 {
		limit = int(l)
	}
	if limit > 100 {
		limit = 100
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if cursor, _ := args["cursor"].(string); cursor != "" {
		q.Set("cursor", cursor)
	}
	if prURL, _ := args["pr_url"].(string); prURL != "" {
		q.Set("prUrl", prURL)
	}

	payload, err := t.request(ctx, "GET", "/agents?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	agents, _ := payload["agents"].([]interface{})
	if len(agents) == 0 {
		payload["_summary"] = "No agents found."
		return payload, nil
	}
	var lines []string
	for _, a := range agents {
		m, _ := a.(map[string]interface{})
		lines = append(lines, fmt.Sprintf("  %s | %-10s | %s",
			str(m["id"], "?"), str(m["status"], "?"), str(m["name"], "unnamed")))
	}
	payload["_summary"] = fmt.Sprintf("%d agent(s):\n%s", len(agents), strings.Join(lines, "\n"))
	return payload, nil
}

func (t *CursorCloudTool) conversation(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	id, err := agentID(args)
	if err != nil {
		return nil, err
	}
	payload, err := t.request(ctx, "GET", "/agents/"+id+"/conversation", nil)
	if err != nil {
		return nil, err
	}
	messages, _ := payload["messages"].([]interface{})
	var lines []string
	for _, msg := range messages {
		m, _ := msg.(map[string]interface{})
		role := strings.TrimSuffix(str(m["type"], "unknown"), "_message")
		lines = append(lines, fmt.Sprintf("  [%s] %s", role, truncateStr(str(m["text"], ""), 200)))
	}
	payload["_summary"] = fmt.Sprintf("%d message(s):\n%s", len(messages), strings.Join(lines, "\n"))
	return payload, nil
}

func (t *CursorCloudTool) followup(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	id, err := agentID(args)
	if err != nil {
		return nil, err
	}
	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	body := map[string]interface{}{"prompt": map[string]interface{}{"text": prompt}}
	payload, err := t.request(ctx, "POST", "/agents/"+id+"/followup", body)
	if err != nil {
		return nil, err
	}
	payload["_summary"] = fmt.Sprintf("Follow-up sent to agent %s.", id)
	return payload, nil
}

func (t *CursorCloudTool) stop(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	id, err := agentID(args)
	if err != nil {
		return nil, err
	}
	payload, err := t.request(ctx, "POST", "/agents/"+id+"/stop", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	payload["_summary"] = fmt.Sprintf("Agent %s stopped.", id)
	return payload, nil
}

func (t *CursorCloudTool) deleteAgent(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	id, err := agentID(args)
	if err != nil {
		return nil, err
	}
	payload, err := t.request(ctx, "DELETE", "/agents/"+id, nil)
	if err != nil {
		return nil, err
	}
	payload["_summary"] = fmt.Sprintf("Agent %s deleted.", id)
	return payload, nil
}

func (t *CursorCloudTool) listModels(ctx context.Context) (map[string]interface{}, error) {
	payload, err := t.request(ctx, "GET", "/models", nil)
	if err != nil {
		return nil, err
	}
	models, _ := payload["models"].([]interface{})
	if len(models) == 0 {
		payload["_summary"] = "No models returned."
		return payload, nil
	}
	var names []string
	for _, m := range models {
		names = append(names, fmt.Sprintf("%v", m))
	}
	payload["_summary"] = "Available models: " + strings.Join(names, ", ")
	return payload, nil
}

func (t *CursorCloudTool) listRepos(ctx context.Context) (map[string]interface{}, error) {
	payload, err := t.request(ctx, "GET", "/repositories", nil)
	if err != nil {
		return nil, err
	}
	repos, _ := payload["repositories"].([]interface{})
	if len(repos) == 0 {
		payload["_summary"] = "No repositories found."
		return payload, nil
	}
	var lines []string
	for i, r := range repos {
		if i >= 20 {
			break
		}
		m, _ := r.(map[string]interface{})
		lines = append(lines, fmt.Sprintf("  %s/%s", str(m["owner"], "?"), str(m["name"], "?")))
	}
	payload["_summary"] = fmt.Sprintf("%d repo(s):\n%s", len(repos), strings.Join(lines, "\n"))
	return payload, nil
}

func (t *CursorCloudTool) me(ctx context.Context) (map[string]interface{}, error) {
	payload, err := t.request(ctx, "GET", "/me", nil)
	if err != nil {
		return nil, err
	}
	payload["_summary"] = fmt.Sprintf("Key: %s, Email: %s, Created: %s",
		str(payload["apiKeyName"], "?"), str(payload["userEmail"], "?"), str(payload["createdAt"], "?"))
	return payload, nil
}

func (t *CursorCloudTool) request(ctx context.Context, method, path string, body map[string]interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(t.apiKey, "")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncateStr(string(data), 500))
	}

	payload := map[string]interface{}{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
	}
	return payload, nil
}

func agentID(args map[string]interface{}) (string, error) {
	id, _ := args["agent_id"].(string)
	if id == "" {
		return "", fmt.Errorf("agent_id is required")
	}
	return id, nil
}

func str(v interface{}, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func nested(payload map[string]interface{}, keys ...string) interface{} {
	var cur interface{} = payload
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return "N/A"
		}
		cur, ok = m[k]
		if !ok {
			return "N/A"
		}
	}
	return cur
}
