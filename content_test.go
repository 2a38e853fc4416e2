package bintray

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func TestCleanRemotePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pool/main/myapp.deb", "pool/main/myapp.deb"},
		{"/pool/main/myapp.deb", "pool/main/myapp.deb"},
		{"./pool/./myapp.deb", "pool/myapp.deb"},
		{"../../etc/passwd", "etc/passwd"},
		{"pool//myapp.deb", "pool/myapp.deb"},
	}

	for _, test := range tests {
		if got := cleanRemotePath(test.in); got != test.want {
			t.Errorf("cleanRemotePath(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestContentUploadHeaders(t *testing.T) {
	data := []byte("rpm payload")
	sum := sha256.Sum256(data)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("Method = %q, want PUT", r.Method)
		}
		if r.URL.Path != "/content/alice/repo/myapp/1.0/myapp-1.0-1.noarch.rpm" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Bintray-Publish"); got != "1" {
			t.Errorf("X-Bintray-Publish = %q, want 1", got)
		}
		if got := r.Header.Get("X-Bintray-Override"); got != "0" {
			t.Errorf("X-Bintray-Override = %q, want 0", got)
		}
		if got := r.Header.Get("X-Checksum-Sha2"); got != hex.EncodeToString(sum[:]) {
			t.Errorf("X-Checksum-Sha2 = %q, want %q", got, hex.EncodeToString(sum[:]))
		}
		body, _ := io.ReadAll(r.Body)
		if !bytes.Equal(body, data) {
			t.Errorf("Body = %q, want %q", body, data)
		}
		w.Write([]byte(`{"message": "success"}`))
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("myapp-1.0-1.noarch.rpm").
		SetRepositoryType(TypeRpm).
		PublishFlag(true).
		OverrideFlag(false).
		ChecksumSHA256(sum[:])

	if err := content.Upload(context.Background(), bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
}

func TestContentUploadDebianHeaders(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Bintray-Debian-Distribution"); got != "stretch" {
			t.Errorf("X-Bintray-Debian-Distribution = %q, want stretch", got)
		}
		if got := r.Header.Get("X-Bintray-Debian-Component"); got != "main" {
			t.Errorf("X-Bintray-Debian-Component = %q, want main", got)
		}
		if got := r.Header.Get("X-Bintray-Debian-Architecture"); got != "amd64,i386" {
			t.Errorf("X-Bintray-Debian-Architecture = %q, want amd64,i386", got)
		}
		w.Write([]byte(`{"message": "success"}`))
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("pool/myapp_1.0-1_all.deb").
		SetRepositoryType(TypeDebian).
		DebianDistributions("stretch").
		DebianComponents("main").
		DebianArchitectures("i386", "amd64")

	if err := content.Upload(context.Background(), strings.NewReader("deb"), 3); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
}

func TestContentUploadMavenEndpoint(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Maven uploads have no version element in the path and only
		// honor the publish flag.
		if r.URL.Path != "/maven/alice/repo/myapp/com/example/myapp/1.0/myapp-1.0.jar" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Bintray-Publish"); got != "1" {
			t.Errorf("X-Bintray-Publish = %q, want 1", got)
		}
		if r.Header.Get("X-Bintray-Override") != "" {
			t.Error("X-Bintray-Override sent on a Maven upload")
		}
		w.Write([]byte(`{"message": "success"}`))
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("com/example/myapp/1.0/myapp-1.0.jar").
		SetRepositoryType(TypeMaven).
		PublishFlag(true).
		OverrideFlag(true)

	if err := content.Upload(context.Background(), strings.NewReader("jar"), 3); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
}

func TestContentUploadResolvesRepositoryType(t *testing.T) {
	var gotRepoLookup bool

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/alice/repo":
			gotRepoLookup = true
			w.Write([]byte(`{"name": "repo", "type": "generic"}`))
		case "/content/alice/repo/myapp/1.0/myapp-1.0.tar.gz":
			w.Write([]byte(`{"message": "success"}`))
		default:
			t.Errorf("Unexpected request to %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("myapp-1.0.tar.gz")

	if err := content.Upload(context.Background(), strings.NewReader("tar"), 3); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !gotRepoLookup {
		t.Error("Upload did not resolve the repository type first")
	}
}

func TestContentDownloadTo(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alice/repo/pool/myapp_1.0-1_all.deb" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		w.Write([]byte("deb content"))
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("pool/myapp_1.0-1_all.deb")

	var buf bytes.Buffer
	n, err := content.DownloadTo(context.Background(), &buf)
	if err != nil {
		t.Fatalf("DownloadTo failed: %v", err)
	}
	if n != int64(len("deb content")) || buf.String() != "deb content" {
		t.Errorf("DownloadTo wrote %d bytes %q", n, buf.String())
	}
}

func TestContentExistsComparesChecksum(t *testing.T) {
	remote := sha256.Sum256([]byte("remote content"))

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Method = %q, want HEAD", r.Method)
		}
		w.Header().Set("X-Checksum-Sha2", hex.EncodeToString(remote[:]))
	}))

	version := client.Subject("alice").Repository("repo").Package("myapp").Version("1.0")

	matching := version.File("a.bin").ChecksumSHA256(remote[:])
	exists, err := matching.Exists(context.Background())
	if err != nil || !exists {
		t.Errorf("Exists with matching checksum = %t, %v, want true, nil", exists, err)
	}

	local := sha256.Sum256([]byte("local content"))
	mismatched := version.File("a.bin").ChecksumSHA256(local[:])
	exists, err = mismatched.Exists(context.Background())
	if err != nil || exists {
		t.Errorf("Exists with mismatched checksum = %t, %v, want false, nil", exists, err)
	}

	// Without a local checksum the remote one is recorded.
	fresh := version.File("a.bin")
	if _, err := fresh.Exists(context.Background()); err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if hex.EncodeToString(fresh.SHA256()) != hex.EncodeToString(remote[:]) {
		t.Error("Exists did not record the remote checksum")
	}
}

func TestContentDeletePathExcludesPackageAndVersion(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Method = %q, want DELETE", r.Method)
		}
		if r.URL.Path != "/content/alice/repo/pool/myapp_1.0-1_all.deb" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"message": "success"}`))
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("pool/myapp_1.0-1_all.deb")

	if err := content.Delete(context.Background()); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
}

func TestContentWaitForAvailability(t *testing.T) {
	sum := sha256.Sum256([]byte("payload"))

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Checksum-Sha2", hex.EncodeToString(sum[:]))
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("a.bin").
		ChecksumSHA256(sum[:])

	if err := content.WaitForAvailability(context.Background(), 5*time.Second); err != nil {
		t.Errorf("WaitForAvailability failed: %v", err)
	}
}

func TestContentWaitForAvailabilityTimesOut(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("a.bin")

	err := content.WaitForAvailability(context.Background(), 50*time.Millisecond)

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != ErrTimeout {
		t.Errorf("WaitForAvailability returned %v, want a timeout error", err)
	}
}

func TestContentWaitForAvailabilityRequiresRemoteChecksum(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 without a checksum header.
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("a.bin")

	err := content.WaitForAvailability(context.Background(), time.Second)
	if !errors.Is(err, ErrChecksumNotReturned) {
		t.Errorf("WaitForAvailability returned %v, want ErrChecksumNotReturned", err)
	}
}

func TestContentWaitForIndexationRejectsUnindexedRepos(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("a.bin").
		SetRepositoryType(TypeGeneric)

	err := content.WaitForIndexation(context.Background(), time.Second)
	if !errors.Is(err, ErrOnlyIndexedRepos) {
		t.Errorf("WaitForIndexation returned %v, want ErrOnlyIndexedRepos", err)
	}
}

func TestContentWaitForIndexationRequiresChecksum(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	version := client.Subject("alice").Repository("repo").Package("myapp").Version("1.0")

	debian := version.File("pool/a.deb").SetRepositoryType(TypeDebian)
	if err := debian.WaitForIndexation(context.Background(), time.Second); !errors.Is(err, ErrChecksumRequired) {
		t.Errorf("Debian WaitForIndexation returned %v, want ErrChecksumRequired", err)
	}

	rpm := version.File("a.rpm").SetRepositoryType(TypeRpm)
	if err := rpm.WaitForIndexation(context.Background(), time.Second); !errors.Is(err, ErrChecksumRequired) {
		t.Errorf("RPM WaitForIndexation returned %v, want ErrChecksumRequired", err)
	}
}

func TestContentWaitForDebianIndexation(t *testing.T) {
	sum := sha256.Sum256([]byte("deb content"))

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alice/repo/dists/stretch/main/binary-amd64/Packages" {
			t.Errorf("Path = %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "Package: myapp\nSHA256: %s\n\n", hex.EncodeToString(sum[:]))
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("pool/myapp_1.0-1_all.deb").
		SetRepositoryType(TypeDebian).
		ChecksumSHA256(sum[:]).
		DebianDistributions("stretch").
		DebianComponents("main").
		DebianArchitectures("amd64")

	if err := content.WaitForIndexation(context.Background(), 5*time.Second); err != nil {
		t.Errorf("WaitForIndexation failed: %v", err)
	}
}

func primaryXML(checksumType, checksum string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns="http://linux.duke.edu/metadata/common" packages="1">
  <package type="rpm">
    <name>myapp</name>
    <arch>noarch</arch>
    <version epoch="0" ver="1.0" rel="1"/>
    <checksum type=%q pkgid="YES">%s</checksum>
  </package>
</metadata>`, checksumType, checksum))
}

const repomdXML = `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <data type="primary">
    <location href="repodata/primary.xml.gz"/>
  </data>
</repomd>`

func TestContentWaitForRpmIndexation(t *testing.T) {
	sum := sha1.Sum([]byte("rpm content"))

	var primary bytes.Buffer
	gz := gzip.NewWriter(&primary)
	gz.Write(primaryXML("sha", hex.EncodeToString(sum[:])))
	gz.Close()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/alice/repo":
			// yum_metadata_depth places the metadata below the first
			// path element of the uploaded file.
			w.Write([]byte(`{"name": "repo", "type": "rpm", "yum_metadata_depth": 1}`))
		case "/alice/repo/7/repodata/repomd.xml":
			w.Write([]byte(repomdXML))
		case "/alice/repo/7/repodata/primary.xml.gz":
			w.Write(primary.Bytes())
		default:
			t.Errorf("Unexpected request to %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("7/myapp-1.0-1.noarch.rpm").
		SetRepositoryType(TypeRpm).
		ChecksumSHA1(sum[:])

	if err := content.WaitForIndexation(context.Background(), 5*time.Second); err != nil {
		t.Errorf("WaitForIndexation failed: %v", err)
	}
}

func TestContentWaitForRpmIndexationRejectsChecksumType(t *testing.T) {
	sum := sha1.Sum([]byte("rpm content"))

	var primary bytes.Buffer
	gz := gzip.NewWriter(&primary)
	gz.Write(primaryXML("sha256", hex.EncodeToString(sum[:])))
	gz.Close()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/alice/repo":
			w.Write([]byte(`{"name": "repo", "type": "rpm"}`))
		case "/alice/repo/repodata/repomd.xml":
			w.Write([]byte(repomdXML))
		case "/alice/repo/repodata/primary.xml.gz":
			w.Write(primary.Bytes())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	content := client.Subject("alice").
		Repository("repo").
		Package("myapp").
		Version("1.0").
		File("myapp-1.0-1.noarch.rpm").
		SetRepositoryType(TypeRpm).
		ChecksumSHA1(sum[:])

	err := content.WaitForIndexation(context.Background(), 5*time.Second)
	if !errors.Is(err, ErrUnsupportedChecksum) {
		t.Errorf("WaitForIndexation returned %v, want ErrUnsupportedChecksum", err)
	}
}

func TestRpmFilenameWithEpoch(t *testing.T) {
	pkg := primaryPackage{Name: "myapp", Arch: "noarch"}
	pkg.Version.Ver = "1.0"
	pkg.Version.Rel = "1"

	if got := rpmFilename(pkg); got != "myapp-1.0-1.noarch.rpm" {
		t.Errorf("rpmFilename = %q, want myapp-1.0-1.noarch.rpm", got)
	}

	pkg.Version.Epoch = "2"
	if got := rpmFilename(pkg); got != "2:myapp-1.0-1.noarch.rpm" {
		t.Errorf("rpmFilename = %q, want 2:myapp-1.0-1.noarch.rpm", got)
	}
}
