package bintray

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestVersionCreateSubmitsAttributes(t *testing.T) {
	var payload map[string]interface{}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/packages/alice/repo/myapp/versions" {
			t.Errorf("Path = %q, want /packages/alice/repo/myapp/versions", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"name": "1.0", "created": "2018-03-06T12:00:00Z"}`))
	}))

	version := client.Subject("alice").Repository("repo").Package("myapp").Version("1.0")
	version.Desc = "First release"
	version.VCSTag = "v1.0"
	version.Released = time.Date(2018, time.March, 6, 0, 0, 0, 0, time.UTC)

	if err := version.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if payload["name"] != "1.0" {
		t.Errorf("payload name = %v, want 1.0", payload["name"])
	}
	if payload["vcs_tag"] != "v1.0" {
		t.Errorf("payload vcs_tag = %v, want v1.0", payload["vcs_tag"])
	}
	if payload["released"] != "2018-03-06T00:00:00Z" {
		t.Errorf("payload released = %v, want 2018-03-06T00:00:00Z", payload["released"])
	}
	if version.Created.IsZero() {
		t.Error("Created is zero after Create")
	}
}

func TestVersionGetFillsAttributes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/alice/repo/myapp/versions/1.0" {
			t.Errorf("Path = %q, want /packages/alice/repo/myapp/versions/1.0", r.URL.Path)
		}
		w.Write([]byte(`{
			"name": "1.0",
			"desc": "First release",
			"published": true,
			"released": "2018-03-06T00:00:00Z"
		}`))
	}))

	version := client.Subject("alice").Repository("repo").Package("myapp").Version("1.0")
	if err := version.Get(context.Background()); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !version.Published {
		t.Error("Published = false, want true")
	}
	if version.Desc != "First release" {
		t.Errorf("Desc = %q, want %q", version.Desc, "First release")
	}
	if version.Released.IsZero() {
		t.Error("Released is zero after Get")
	}
}

func TestVersionExistsTreatsUnauthorizedAsAbsent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	version := client.Subject("alice").Repository("repo").Package("myapp").Version("1.0")
	exists, err := version.Exists(context.Background())
	if err != nil || exists {
		t.Errorf("Exists = %t, %v, want false, nil", exists, err)
	}
}

func TestVersionPublishReportsFileCount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/content/alice/repo/myapp/1.0/publish" {
			t.Errorf("Path = %q, want /content/alice/repo/myapp/1.0/publish", r.URL.Path)
		}
		w.Write([]byte(`{"files": 3}`))
	}))

	version := client.Subject("alice").Repository("repo").Package("myapp").Version("1.0")
	published, err := version.Publish(context.Background())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if published != 3 {
		t.Errorf("Publish = %d, want 3", published)
	}
	if !version.Published {
		t.Error("Published flag not set after Publish")
	}
}
