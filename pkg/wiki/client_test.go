package wiki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

func sampleResult() *warehouse.QueryResult {
	return &warehouse.QueryResult{
		Columns: []warehouse.ColumnInfo{
			{Name: "dw_country_code", Type: "TEXT"},
			{Name: "n", Type: "INT8"},
		},
		Rows: []map[string]any{
			{"dw_country_code": "FR", "n": int64(50)},
			{"dw_country_code": "DE", "n": int64(30)},
		},
		RowCount: 2,
	}
}

func TestPublishResult(t *testing.T) {
	var captured createPageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/content" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-123" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"12345","title":"Churn september","_links":{"base":"https://wiki.example.com","webui":"/pages/12345"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, SpaceKey: "DATA", APIToken: "tok-123"}, zap.NewNop())

	page, err := c.PublishResult(context.Background(), "Churn september", "Per-country churn", sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.ID != "12345" {
		t.Errorf("unexpected page id: %s", page.ID)
	}
	if page.URL != "https://wiki.example.com/pages/12345" {
		t.Errorf("unexpected page url: %s", page.URL)
	}
	if captured.Space.Key != "DATA" {
		t.Errorf("unexpected space key: %s", captured.Space.Key)
	}
	if captured.Body.Storage.Representation != "storage" {
		t.Errorf("unexpected representation: %s", captured.Body.Storage.Representation)
	}
	if !strings.Contains(captured.Body.Storage.Value, "<th>dw_country_code</th>") {
		t.Errorf("table header missing:\n%s", captured.Body.Storage.Value)
	}
	if !strings.Contains(captured.Body.Storage.Value, "<td>FR</td>") {
		t.Errorf("row cell missing:\n%s", captured.Body.Storage.Value)
	}
}

func TestPublishResult_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"no permission"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, SpaceKey: "DATA", APIToken: "tok"}, zap.NewNop())

	_, err := c.PublishResult(context.Background(), "t", "", sampleResult())
	if err == nil {
		t.Fatal("expected error on 403")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("status code should be in the error: %v", err)
	}
}

func TestPublishResult_EmptyInputs(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://wiki.local", SpaceKey: "DATA"}, zap.NewNop())

	if _, err := c.PublishResult(context.Background(), "", "", sampleResult()); err == nil {
		t.Error("expected error for missing title")
	}
	if _, err := c.PublishResult(context.Background(), "t", "", &warehouse.QueryResult{}); err == nil {
		t.Error("expected error for empty result")
	}
}

func TestRenderStorageBody_EscapesHTML(t *testing.T) {
	result := &warehouse.QueryResult{
		Columns:  []warehouse.ColumnInfo{{Name: "note", Type: "TEXT"}},
		Rows:     []map[string]any{{"note": "<script>alert(1)</script>"}},
		RowCount: 1,
	}

	body := RenderStorageBody("a & b", result)
	if strings.Contains(body, "<script>") {
		t.Errorf("cell content must be escaped:\n%s", body)
	}
	if !strings.Contains(body, "a &amp; b") {
		t.Errorf("summary must be escaped:\n%s", body)
	}
}
