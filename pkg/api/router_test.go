package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, maxRows int) *httptest.Server {
	t.Helper()
	nop := zerolog.Nop()
	srv := httptest.NewServer(NewRouter(Options{Logger: &nop, MaxRows: maxRows, RateLimit: -1, DownloadRateLimit: -1}))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func postConfig(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url+"/generate_data", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode
}

func TestPing(t *testing.T) {
	srv := newTestServer(t, 0)
	var body map[string]string
	if code := getJSON(t, srv.URL+"/ping", &body); code != http.StatusOK || body["message"] != "pong" {
		t.Errorf("GET /ping = %d %v", code, body)
	}
}

func TestStrategies(t *testing.T) {
	srv := newTestServer(t, 0)

	var names struct{ Strategies []string }
	if code := getJSON(t, srv.URL+"/get_all_strategies", &names); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(names.Strategies) == 0 || names.Strategies[0] != "SERIES_STRATEGY" {
		t.Errorf("strategies = %v", names.Strategies)
	}

	var schemas struct {
		Strategies []struct {
			Name   string
			Fields []struct{ Name, Type string }
		}
	}
	if code := getJSON(t, srv.URL+"/get_strategy_schemas", &schemas); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(schemas.Strategies) != len(names.Strategies) {
		t.Errorf("schemas = %d, names = %d", len(schemas.Strategies), len(names.Strategies))
	}
	if schemas.Strategies[0].Name != "SERIES_STRATEGY" || len(schemas.Strategies[0].Fields) == 0 {
		t.Errorf("first schema = %+v", schemas.Strategies[0])
	}
}

func TestGenerate(t *testing.T) {
	srv := newTestServer(t, 0)

	body := `{
  "num_of_rows": 5,
  "column_name": ["id", "status"],
  "configs": [
    {"names": ["id"], "strategy": {"name": "SERIES_STRATEGY", "params": {"start": 1, "step": 1}}},
    {"names": ["status"], "strategy": {"name": "DISTRIBUTED_CHOICE_STRATEGY", "params": {"choices": {"A": 50, "B": 50}}}}
  ]
}`
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	if code := postConfig(t, srv.URL, body, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Data) != 5 {
		t.Fatalf("rows = %d", len(resp.Data))
	}

	counts := map[any]int{}
	for i, rec := range resp.Data {
		if rec["id"] != float64(i+1) {
			t.Errorf("row %d id = %v", i, rec["id"])
		}
		counts[rec["status"]]++
	}
	if counts["A"] != 3 || counts["B"] != 2 {
		t.Errorf("status counts = %v, want A:3 B:2", counts)
	}
}

func TestGenerate_Errors(t *testing.T) {
	srv := newTestServer(t, 100)

	tests := []struct {
		name     string
		body     string
		status   int
		errName  string
		contains string
	}{
		{"malformed", `{"num_of_rows": `, 400, "ConfigurationError", "failed to parse config"},
		{"unknown strategy", `{"num_of_rows": 2, "configs": [{"names": ["a"], "strategy": {"name": "NOPE"}}]}`, 400, "ConfigurationError", "unknown strategy"},
		{"too many rows", `{"num_of_rows": 101, "configs": [{"names": ["a"], "strategy": {"name": "SERIES_STRATEGY"}}]}`, 400, "ConfigurationError", "exceeds the limit"},
		{"validation", `{"num_of_rows": 2, "configs": [{"names": ["a"], "strategy": {"name": "DISTRIBUTED_CHOICE_STRATEGY"}}]}`, 400, "ValidationError", "choices"},
		{"dependency", `{"num_of_rows": 2, "configs": [{"names": ["a"], "strategy": {"name": "SERIES_STRATEGY"}, "mask": "b > 1"}]}`, 400, "DependencyError", "b"},
		{"mask", `{"num_of_rows": 2, "configs": [{"names": ["a"], "strategy": {"name": "SERIES_STRATEGY"}, "mask": "a >"}]}`, 400, "MaskEvaluationError", ""},
		{"unsatisfiable unique", `{"num_of_rows": 5, "configs": [{"names": ["a"], "strategy": {"name": "RANDOM_NUMBER_RANGE_STRATEGY", "params": {"start": 1, "end": 2, "precision": 0}, "unique": true}}]}`, 500, "GenerationError", "unique"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			code := postConfig(t, srv.URL, tt.body, &resp)
			if code != tt.status {
				t.Errorf("status = %d, want %d (%+v)", code, tt.status, resp)
			}
			if resp.ErrorName != tt.errName {
				t.Errorf("error_name = %s, want %s", resp.ErrorName, tt.errName)
			}
			if !strings.Contains(resp.Message, tt.contains) {
				t.Errorf("message = %q, want containing %q", resp.Message, tt.contains)
			}
		})
	}
}

func TestGenerate_ValidationFields(t *testing.T) {
	srv := newTestServer(t, 0)
	body := `{"num_of_rows": 2, "configs": [{"names": ["a"], "strategy": {"name": "RANDOM_NUMBER_RANGE_STRATEGY", "params": {"precision": "x", "distribution": "zipf"}}}]}`

	var resp errorResponse
	if code := postConfig(t, srv.URL, body, &resp); code != http.StatusBadRequest {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Fields) != 2 {
		t.Errorf("fields = %+v, want both offending fields", resp.Fields)
	}
	if resp.Step == nil || *resp.Step != 0 || resp.Column != "a" {
		t.Errorf("step/column = %v %q", resp.Step, resp.Column)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, 0)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics = %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	nop := zerolog.Nop()
	srv := httptest.NewServer(NewRouter(Options{Logger: &nop, RateLimit: 2}))
	t.Cleanup(srv.Close)

	body := `{"num_of_rows": 1, "configs": [{"names": ["a"], "strategy": {"name": "SERIES_STRATEGY"}}]}`
	for i := 0; i < 2; i++ {
		var resp map[string]any
		if code := postConfig(t, srv.URL, body, &resp); code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, code)
		}
	}

	var resp errorResponse
	if code := postConfig(t, srv.URL, body, &resp); code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", code)
	}
	if resp.ErrorName != "RateLimitExceeded" || !strings.Contains(resp.Message, "2 per minute") {
		t.Errorf("response = %+v", resp)
	}

	// остальные маршруты не ограничены
	var pong map[string]string
	if code := getJSON(t, srv.URL+"/ping", &pong); code != http.StatusOK {
		t.Errorf("GET /ping = %d", code)
	}
}

func postDownload(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url+"/generate_and_download", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	files := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name] = string(content)
	}
	return files
}

func TestDownload(t *testing.T) {
	srv := newTestServer(t, 0)
	body := `{
  "metadata": {"name": "demo users"},
  "num_of_rows": 3,
  "configs": [{"names": ["id"], "strategy": {"name": "SERIES_STRATEGY", "params": {"start": 1, "step": 1}}}],
  "file_writer": [
    {"type": "CSV_WRITER", "params": {"output_path": "out/users.csv"}},
    {"type": "JSONL_WRITER", "params": {"output_path": "../../etc/users.jsonl"}}
  ]
}`
	resp, data := postDownload(t, srv.URL, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %s", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "demo_users_data.zip") {
		t.Errorf("Content-Disposition = %s", cd)
	}

	files := readArchive(t, data)
	if len(files) != 2 {
		t.Fatalf("archive files = %v", files)
	}
	if !strings.HasPrefix(files["users.csv"], "id\n1\n2\n3") {
		t.Errorf("users.csv = %q", files["users.csv"])
	}
	if lines := strings.Split(strings.TrimSpace(files["users.jsonl"]), "\n"); len(lines) != 3 {
		t.Errorf("users.jsonl has %d lines", len(lines))
	}
}

func TestDownload_DefaultCSV(t *testing.T) {
	srv := newTestServer(t, 0)
	body := `{"num_of_rows": 2, "configs": [{"names": ["a"], "strategy": {"name": "SERIES_STRATEGY"}}]}`

	resp, data := postDownload(t, srv.URL, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "generated_data_data.zip") {
		t.Errorf("Content-Disposition = %s", cd)
	}
	files := readArchive(t, data)
	if _, ok := files["generated_data.csv"]; !ok || len(files) != 1 {
		t.Errorf("archive files = %v", files)
	}
}

func TestDownload_Errors(t *testing.T) {
	srv := newTestServer(t, 10)

	tests := []struct {
		name     string
		body     string
		errName  string
		contains string
	}{
		{"database writer", `{"num_of_rows": 2, "configs": [{"names": ["a"], "strategy": {"name": "SERIES_STRATEGY"}}], "file_writer": [{"type": "SQLITE_WRITER", "params": {"path": "x.db"}}]}`, "ConfigurationError", "does not produce a file"},
		{"too many rows", `{"num_of_rows": 11, "configs": [{"names": ["a"], "strategy": {"name": "SERIES_STRATEGY"}}]}`, "ConfigurationError", "exceeds the limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := postDownload(t, srv.URL, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", resp.StatusCode, data)
			}
			var er errorResponse
			if err := json.Unmarshal(data, &er); err != nil {
				t.Fatal(err)
			}
			if er.ErrorName != tt.errName || !strings.Contains(er.Message, tt.contains) {
				t.Errorf("response = %+v", er)
			}
		})
	}
}

func TestDownload_RateLimited(t *testing.T) {
	nop := zerolog.Nop()
	srv := httptest.NewServer(NewRouter(Options{Logger: &nop, RateLimit: -1, DownloadRateLimit: 1}))
	t.Cleanup(srv.Close)

	body := `{"num_of_rows": 1, "configs": [{"names": ["a"], "strategy": {"name": "SERIES_STRATEGY"}}]}`
	if resp, data := postDownload(t, srv.URL, body); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if resp, _ := postDownload(t, srv.URL, body); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second download status = %d, want 429", resp.StatusCode)
	}
}
