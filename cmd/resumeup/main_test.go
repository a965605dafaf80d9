package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"resumeup/internal/testsupport"
)

func TestProcessCommandEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload-resume" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
            "file_id":"srv-1",
            "original_text":"before",
            "improved_data":"after",
            "download_url":"/download/srv-1"
        }`))
	}))
	defer server.Close()

	env := setupCLITestEnv(t, server.URL)
	resumePath := filepath.Join(env.baseDir, "resume.pdf")
	testsupport.WriteFile(t, resumePath, 256)

	out, err := runCLI(t, env, "process", resumePath)
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	requireContains(t, out, "Resume improved: resume.pdf")
	requireContains(t, out, "ID: srv-1")
	requireContains(t, out, "Credits remaining: 0")

	// History carries the committed entity.
	out, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	requireContains(t, out, "srv-1")
	requireContains(t, out, "Completed")

	// The single starting credit is spent.
	out, err = runCLI(t, env, "process", resumePath)
	if err == nil {
		t.Fatalf("second process succeeded without credits:\n%s", out)
	}
	if !strings.Contains(err.Error(), "no credits remaining") {
		t.Fatalf("second process error = %v", err)
	}
}

func TestProcessFailureRecordedAndFree(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"unsupported file type"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	env := setupCLITestEnv(t, server.URL)
	resumePath := filepath.Join(env.baseDir, "resume.pdf")
	testsupport.WriteFile(t, resumePath, 256)

	if out, err := runCLI(t, env, "process", resumePath); err == nil {
		t.Fatalf("process succeeded against failing backend:\n%s", out)
	}

	out, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Error")

	// The failure did not consume the credit.
	out, err = runCLI(t, env, "credits")
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	requireContains(t, out, "Credits: 1")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t, "http://127.0.0.1:0")
	out, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No resumes processed yet.")
}

func TestCreditsAdd(t *testing.T) {
	env := setupCLITestEnv(t, "http://127.0.0.1:0")

	out, err := runCLI(t, env, "credits")
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	requireContains(t, out, "Credits: 1")

	out, err = runCLI(t, env, "credits", "add", "3")
	if err != nil {
		t.Fatalf("credits add: %v", err)
	}
	requireContains(t, out, "Credits: 4")

	if _, err := runCLI(t, env, "credits", "add", "-2"); err == nil {
		t.Fatal("credits add accepted a negative amount")
	}
}

func TestTemplatesCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/templates" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"templates":[{"id":"modern_pro","name":"","description":"Clean layout"}]}`))
	}))
	defer server.Close()

	env := setupCLITestEnv(t, server.URL)
	out, err := runCLI(t, env, "templates")
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	requireContains(t, out, "modern_pro")
	// Missing display names are derived from the identifier.
	requireContains(t, out, "Modern Pro")
}
