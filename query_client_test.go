package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExecuteStringResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %s, want /query", r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["query"] != "how are markets doing" {
			t.Errorf("query = %q", req["query"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"qr": "### Month to Date\nFund Name: Global Equity - Market Index ID: 42 - MTD Performance: 1.00%",
		})
	}))
	defer server.Close()

	client := NewQueryClient(server.URL, nil)
	result, err := client.Execute(context.Background(), "how are markets doing")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Text, "Global Equity") {
		t.Errorf("result text = %q", result.Text)
	}
	if result.Object != nil {
		t.Errorf("string result should not populate Object")
	}
}

func TestExecuteObjectResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"qr": map[string]interface{}{
				"Month to Date (MTD)":   "...",
				"Quarter to Date (QTD)": "...",
				"Year to Date (YTD)":    "...",
			},
		})
	}))
	defer server.Close()

	client := NewQueryClient(server.URL, nil)
	result, err := client.Execute(context.Background(), "summary please")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Object == nil {
		t.Fatalf("object result not decoded")
	}
	if _, ok := result.Object["Month to Date (MTD)"]; !ok {
		t.Errorf("object missing MTD key: %v", result.Object)
	}
}

func TestExecuteEngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "engine on fire"})
	}))
	defer server.Close()

	client := NewQueryClient(server.URL, nil)
	if _, err := client.Execute(context.Background(), "anything"); err == nil {
		t.Fatal("expected error from engine error response")
	}
}

func TestExecuteHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewQueryClient(server.URL, nil)
	_, err := client.Execute(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry status code: %v", err)
	}
}

func TestExecuteCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query-non-performing" {
			t.Errorf("path = %s, want /query-non-performing", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"non_performing": "Bond Index: -1.50%",
		})
	}))
	defer server.Close()

	client := NewQueryClient(server.URL, nil)
	text, err := client.ExecuteCategory(context.Background(), CategoryNonPerforming, "canned")
	if err != nil {
		t.Fatalf("ExecuteCategory: %v", err)
	}
	if text != "Bond Index: -1.50%" {
		t.Errorf("text = %q", text)
	}
}

func TestExecuteCategoryNonStringPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ytd": map[string]string{"note": "structured"},
		})
	}))
	defer server.Close()

	client := NewQueryClient(server.URL, nil)
	text, err := client.ExecuteCategory(context.Background(), CategoryYTD, "canned")
	if err != nil {
		t.Fatalf("ExecuteCategory: %v", err)
	}
	if !strings.Contains(text, "structured") {
		t.Errorf("non-string payload should surface as JSON text, got %q", text)
	}
}

func TestExecuteCategoryMissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"unrelated": "x"})
	}))
	defer server.Close()

	client := NewQueryClient(server.URL, nil)
	if _, err := client.ExecuteCategory(context.Background(), CategoryMTD, "canned"); err == nil {
		t.Fatal("expected error for missing category field")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"0123456789abc", 10, "0123456789..."},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
