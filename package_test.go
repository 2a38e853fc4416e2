package bintray

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPackageCreateSubmitsAttributes(t *testing.T) {
	var payload map[string]interface{}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/packages/alice/repo" {
			t.Errorf("Path = %q, want /packages/alice/repo", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"name": "myapp", "created": "2018-03-06T12:00:00Z"}`))
	}))

	pkg := client.Subject("alice").Repository("repo").Package("myapp")
	pkg.Desc = "My application"
	pkg.Licenses = []string{"MIT", "BSD"}

	if err := pkg.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if payload["name"] != "myapp" {
		t.Errorf("payload name = %v, want myapp", payload["name"])
	}
	if payload["desc"] != "My application" {
		t.Errorf("payload desc = %v, want My application", payload["desc"])
	}
	// Licenses are sorted before submission.
	licenses, _ := payload["licenses"].([]interface{})
	if len(licenses) != 2 || licenses[0] != "BSD" || licenses[1] != "MIT" {
		t.Errorf("payload licenses = %v, want [BSD MIT]", licenses)
	}
}

func TestPackageExists(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Method = %q, want HEAD", r.Method)
		}
		switch r.URL.Path {
		case "/packages/alice/repo/present":
			w.WriteHeader(http.StatusOK)
		case "/packages/alice/repo/hidden":
			// Bintray answers 401 for packages of private repositories
			// queried without credentials, treat it as absence.
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	repo := client.Subject("alice").Repository("repo")

	exists, err := repo.Package("present").Exists(context.Background())
	if err != nil || !exists {
		t.Errorf("Exists(present) = %t, %v, want true, nil", exists, err)
	}

	exists, err = repo.Package("absent").Exists(context.Background())
	if err != nil || exists {
		t.Errorf("Exists(absent) = %t, %v, want false, nil", exists, err)
	}

	exists, err = repo.Package("hidden").Exists(context.Background())
	if err != nil || exists {
		t.Errorf("Exists(hidden) = %t, %v, want false, nil", exists, err)
	}
}

func TestPackageGetSortsVersionsInRPMOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"name": "myapp",
			"labels": ["lts", "cli"],
			"licenses": ["MIT", "BSD"],
			"versions": ["1.10.0", "1.2.0", "1.9.1"]
		}`))
	}))

	pkg := client.Subject("alice").Repository("repo").Package("myapp")
	if err := pkg.Get(context.Background()); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	versions, err := pkg.Versions()
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}

	// "1.10.0" sorts after "1.9.1" in RPM version order, although it
	// would not lexically.
	want := []string{"1.2.0", "1.9.1", "1.10.0"}
	if diff := cmp.Diff(want, versions); diff != "" {
		t.Errorf("Versions mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"cli", "lts"}, pkg.Labels); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"BSD", "MIT"}, pkg.Licenses); diff != "" {
		t.Errorf("Licenses mismatch (-want +got):\n%s", diff)
	}
}

func TestPackageVersionsRequiresGet(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	pkg := client.Subject("alice").Repository("repo").Package("myapp")
	if _, err := pkg.Versions(); !errors.Is(err, ErrCallGetFirst) {
		t.Errorf("Versions before Get returned %v, want ErrCallGetFirst", err)
	}
}

func TestPackageGetWithoutVersions(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "myapp"}`))
	}))

	pkg := client.Subject("alice").Repository("repo").Package("myapp")
	if err := pkg.Get(context.Background()); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	versions, err := pkg.Versions()
	if err != nil {
		t.Fatalf("Versions after Get failed: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("Versions = %v, want none", versions)
	}
}

func TestPackageDelete(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Method = %q, want DELETE", r.Method)
		}
		if r.URL.Path != "/packages/alice/repo/myapp" {
			t.Errorf("Path = %q, want /packages/alice/repo/myapp", r.URL.Path)
		}
		w.Write([]byte(`{"message": "success"}`))
	}))

	pkg := client.Subject("alice").Repository("repo").Package("myapp")
	if err := pkg.Delete(context.Background()); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
}
