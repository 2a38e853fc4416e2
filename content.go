package bintray

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

// Headers recognized by the content upload endpoint.
const (
	headerPublish  = "X-Bintray-Publish"
	headerOverride = "X-Bintray-Override"
	headerExplode  = "X-Bintray-Explode"
	headerChecksum = "X-Checksum-Sha2"

	headerDebianDistribution = "X-Bintray-Debian-Distribution"
	headerDebianComponent    = "X-Bintray-Debian-Component"
	headerDebianArchitecture = "X-Bintray-Debian-Architecture"
)

const (
	availabilityInterval = 1 * time.Second
	indexationInterval   = 30 * time.Second
)

// Content is a handle on a file stored within a package version.
//
// Setters return the handle so calls can be chained before Upload:
//
//	err := version.File("pool/myapp_1.0-1_all.deb").
//		PublishFlag(true).
//		DebianDistributions("stretch").
//		DebianComponents("main").
//		DebianArchitectures("amd64").
//		UploadFile(ctx, localPath)
type Content struct {
	client     *Client
	subject    string
	repository string
	pkg        string
	version    string
	path       string

	repoType RepositoryType

	publish  *bool
	override *bool
	explode  *bool

	sha1sum   []byte
	sha256sum []byte

	debianDistributions []string
	debianComponents    []string
	debianArchitectures []string
}

func newContent(client *Client, subject, repository, pkg, version, p string) *Content {
	return &Content{
		client:     client,
		subject:    subject,
		repository: repository,
		pkg:        pkg,
		version:    version,
		path:       cleanRemotePath(p),
	}
}

// cleanRemotePath strips root, current and parent components from the
// front of a remote path so it is always relative to the repository
// root.
func cleanRemotePath(p string) string {
	var kept []string
	for _, comp := range strings.Split(path.Clean("/"+p), "/") {
		if comp == "" || comp == "." || comp == ".." {
			continue
		}
		kept = append(kept, comp)
	}
	return strings.Join(kept, "/")
}

// Path returns the cleaned remote path of the content.
func (c *Content) Path() string { return c.path }

// SetRepositoryType sets the repository type, avoiding the extra
// repository lookup Upload and WaitForIndexation perform otherwise.
func (c *Content) SetRepositoryType(t RepositoryType) *Content {
	c.repoType = normalizeRepositoryType(t)
	return c
}

// PublishFlag requests immediate publication of the uploaded file.
func (c *Content) PublishFlag(publish bool) *Content {
	c.publish = &publish
	return c
}

// OverrideFlag allows the upload to replace an existing file.
func (c *Content) OverrideFlag(override bool) *Content {
	c.override = &override
	return c
}

// ExplodeFlag requests the uploaded archive to be exploded remotely.
func (c *Content) ExplodeFlag(explode bool) *Content {
	c.explode = &explode
	return c
}

// ChecksumSHA1 sets the known SHA-1 checksum of the content.
func (c *Content) ChecksumSHA1(sum []byte) *Content {
	c.sha1sum = append([]byte(nil), sum...)
	return c
}

// ChecksumSHA256 sets the known SHA-256 checksum of the content.
func (c *Content) ChecksumSHA256(sum []byte) *Content {
	c.sha256sum = append([]byte(nil), sum...)
	return c
}

// SHA256 returns the known SHA-256 checksum, if any.
func (c *Content) SHA256() []byte {
	return append([]byte(nil), c.sha256sum...)
}

// ChecksumFromFile computes the SHA-1 and SHA-256 checksums of a local
// file in a single pass and records them on the handle.
func (c *Content) ChecksumFromFile(filename string) (*Content, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sha1Hash := sha1.New()
	sha256Hash := sha256.New()

	if _, err := io.Copy(io.MultiWriter(sha1Hash, sha256Hash), f); err != nil {
		return nil, err
	}

	c.sha1sum = sha1Hash.Sum(nil)
	c.sha256sum = sha256Hash.Sum(nil)

	return c, nil
}

// DebianDistributions sets the distributions Bintray should index the
// file under. Only meaningful for Debian repositories.
func (c *Content) DebianDistributions(distributions ...string) *Content {
	c.debianDistributions = sortedCopy(distributions)
	return c
}

// DebianComponents sets the components Bintray should index the file
// under. Only meaningful for Debian repositories.
func (c *Content) DebianComponents(components ...string) *Content {
	c.debianComponents = sortedCopy(components)
	return c
}

// DebianArchitectures sets the architectures Bintray should index the
// file under. Only meaningful for Debian repositories.
func (c *Content) DebianArchitectures(architectures ...string) *Content {
	c.debianArchitectures = sortedCopy(architectures)
	return c
}

func (c *Content) String() string {
	return fmt.Sprintf("%s/%s/%s@%s:%s", c.subject, c.repository, c.pkg, c.version, c.path)
}

func (c *Content) resource() string {
	return c.subject + "/" + c.repository + "/" + c.path
}

// resolveRepositoryType fetches the repository type when the caller
// did not provide one through SetRepositoryType.
func (c *Content) resolveRepositoryType(ctx context.Context) error {
	if c.repoType != "" {
		return nil
	}

	repo := c.client.Subject(c.subject).Repository(c.repository)
	if err := repo.Get(ctx); err != nil {
		return err
	}
	c.repoType = repo.Type

	return nil
}

// UploadFile uploads a local file to the remote path of the handle.
func (c *Content) UploadFile(ctx context.Context, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	return c.Upload(ctx, f, info.Size())
}

// Upload uploads the content read from r. Pass a negative size when it
// is unknown; the request is then sent with chunked encoding.
func (c *Content) Upload(ctx context.Context, r io.Reader, size int64) error {
	const op = "UploadContent"

	if err := c.resolveRepositoryType(ctx); err != nil {
		return err
	}

	// Maven repositories use a dedicated endpoint without the version
	// in the path, and only honor the publish flag.
	var u = c.client.apiURL("maven", c.subject, c.repository, c.pkg)
	if c.repoType != TypeMaven {
		u = c.client.apiURL("content", c.subject, c.repository, c.pkg, c.version)
	}
	u = u.JoinPath(strings.Split(c.path, "/")...)

	req, err := c.client.newRequest(ctx, http.MethodPut, u, r)
	if err != nil {
		return &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
	}
	if size >= 0 {
		req.ContentLength = size
	}

	if c.publish != nil {
		req.Header.Set(headerPublish, boolHeader(*c.publish))
	}

	if c.repoType != TypeMaven {
		if c.override != nil {
			req.Header.Set(headerOverride, boolHeader(*c.override))
		}
		if c.explode != nil {
			req.Header.Set(headerExplode, boolHeader(*c.explode))
		}
	}

	if len(c.sha256sum) > 0 {
		req.Header.Set(headerChecksum, hex.EncodeToString(c.sha256sum))
	}

	// Debian attributes let Bintray index the file without guessing
	// from the filename.
	if c.repoType == TypeDebian {
		req.Header.Set(headerDebianDistribution, strings.Join(c.debianDistributions, ","))
		req.Header.Set(headerDebianComponent, strings.Join(c.debianComponents, ","))
		req.Header.Set(headerDebianArchitecture, strings.Join(c.debianArchitectures, ","))
	}

	resp, err := c.client.send(op, c.resource(), req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(op, c.resource(), resp)
	}

	logrus.Infof("%s(%s): uploaded", op, c)
	return nil
}

// Download requests the content and returns its body. The caller must
// close the returned reader.
func (c *Content) Download(ctx context.Context) (io.ReadCloser, error) {
	const op = "DownloadContent"

	u := c.client.dlURL(c.subject, c.repository).JoinPath(strings.Split(c.path, "/")...)

	req, err := c.client.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
	}

	resp, err := c.client.send(op, c.resource(), req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer drain(resp)
		return nil, apiError(op, c.resource(), resp)
	}

	return resp.Body, nil
}

// DownloadTo downloads the content into w and returns the number of
// bytes written.
func (c *Content) DownloadTo(ctx context.Context, w io.Writer) (int64, error) {
	body, err := c.Download(ctx)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	return io.Copy(w, body)
}

// DownloadFile downloads the content into a local file and returns the
// number of bytes written.
func (c *Content) DownloadFile(ctx context.Context, filename string) (int64, error) {
	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := c.DownloadTo(ctx, f)
	if err != nil {
		return n, err
	}

	return n, f.Sync()
}

// Exists reports whether the content exists on the download endpoint.
// When a SHA-256 checksum is set on the handle, it must also match the
// remote checksum. When no checksum is set, the remote one is recorded
// on the handle.
func (c *Content) Exists(ctx context.Context) (bool, error) {
	const op = "CheckContent"

	u := c.client.dlURL(c.subject, c.repository).JoinPath(strings.Split(c.path, "/")...)

	req, err := c.client.newRequest(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
	}

	resp, err := c.client.send(op, c.resource(), req)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		remote := checksumFromResponse(resp)
		if len(c.sha256sum) > 0 {
			return hex.EncodeToString(remote) == hex.EncodeToString(c.sha256sum), nil
		}
		c.sha256sum = remote
		return true, nil
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusUnauthorized:
		return false, nil
	default:
		return false, apiError(op, c.resource(), resp)
	}
}

// Delete deletes the content. The package and version of the handle
// are not part of the deletion path, only the file path is.
func (c *Content) Delete(ctx context.Context) error {
	const op = "DeleteContent"

	u := c.client.apiURL("content", c.subject, c.repository).JoinPath(strings.Split(c.path, "/")...)

	req, err := c.client.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
	}

	resp, err := c.client.send(op, c.resource(), req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return apiError(op, c.resource(), resp)
	}

	return nil
}

// WaitForAvailability polls the download endpoint until the content is
// served, or the timeout expires. When a SHA-256 checksum is set on
// the handle, the remote checksum must match before the wait ends;
// otherwise the remote checksum is recorded on the handle.
func (c *Content) WaitForAvailability(ctx context.Context, timeout time.Duration) error {
	const op = "WaitContentAvailability"

	u := c.client.dlURL(c.subject, c.repository).JoinPath(strings.Split(c.path, "/")...)

	check := func(ctx context.Context) (bool, error) {
		req, err := c.client.newRequest(ctx, http.MethodHead, u, nil)
		if err != nil {
			return false, &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
		}

		resp, err := c.client.send(op, c.resource(), req)
		if err != nil {
			return false, err
		}
		defer drain(resp)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			remote := checksumFromResponse(resp)
			if len(c.sha256sum) > 0 {
				if hex.EncodeToString(remote) != hex.EncodeToString(c.sha256sum) {
					// Served content is stale, keep waiting.
					return false, nil
				}
				return true, nil
			}
			if len(remote) == 0 {
				return false, ErrChecksumNotReturned
			}
			c.sha256sum = remote
			return true, nil
		case resp.StatusCode == http.StatusNotFound,
			resp.StatusCode == http.StatusUnauthorized:
			return false, nil
		default:
			return false, apiError(op, c.resource(), resp)
		}
	}

	return c.waitFor(ctx, op, timeout, availabilityInterval, check)
}

// WaitForIndexation polls the repository metadata until the content is
// referenced by it, or the timeout expires. Only Debian and RPM
// repositories are indexed by Bintray.
func (c *Content) WaitForIndexation(ctx context.Context, timeout time.Duration) error {
	if err := c.resolveRepositoryType(ctx); err != nil {
		return err
	}

	switch c.repoType {
	case TypeDebian:
		return c.waitForDebianIndexation(ctx, timeout)
	case TypeRpm:
		return c.waitForRpmIndexation(ctx, timeout)
	default:
		return ErrOnlyIndexedRepos
	}
}

// waitForDebianIndexation checks that the Packages index of every
// distribution/component/architecture combination lists the SHA-256
// checksum of the content.
func (c *Content) waitForDebianIndexation(ctx context.Context, timeout time.Duration) error {
	const op = "WaitDebianIndexation"

	if len(c.sha256sum) == 0 {
		return ErrChecksumRequired
	}
	checksumLine := "SHA256: " + hex.EncodeToString(c.sha256sum)

	deadline := time.Now().Add(timeout)

	for _, distribution := range c.debianDistributions {
		for _, component := range c.debianComponents {
			for _, architecture := range c.debianArchitectures {
				u := c.client.dlURL(
					c.subject, c.repository,
					"dists", distribution, component,
					"binary-"+architecture, "Packages")

				check := func(ctx context.Context) (bool, error) {
					return c.scanPackagesIndex(ctx, op, u, checksumLine)
				}

				remaining := time.Until(deadline)
				if err := c.waitFor(ctx, op, remaining, indexationInterval, check); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (c *Content) scanPackagesIndex(ctx context.Context, op string, u *url.URL, checksumLine string) (bool, error) {
	req, err := c.client.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
	}

	resp, err := c.client.send(op, c.resource(), req)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
		}
		for _, line := range strings.Split(string(body), "\n") {
			if line == checksumLine {
				return true, nil
			}
		}
		return false, nil
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusUnauthorized:
		return false, nil
	default:
		return false, apiError(op, c.resource(), resp)
	}
}

// repomd.xml structure, the index of the YUM metadata files.
type repomd struct {
	Data []struct {
		Type     string `xml:"type,attr"`
		Location struct {
			Href string `xml:"href,attr"`
		} `xml:"location"`
	} `xml:"data"`
}

// primary.xml structure, the main YUM package index.
type primaryMetadata struct {
	Packages []primaryPackage `xml:"package"`
}

type primaryPackage struct {
	Name    string `xml:"name"`
	Arch    string `xml:"arch"`
	Version struct {
		Epoch string `xml:"epoch,attr"`
		Ver   string `xml:"ver,attr"`
		Rel   string `xml:"rel,attr"`
	} `xml:"version"`
	Checksum struct {
		Type  string `xml:"type,attr"`
		Value string `xml:",chardata"`
	} `xml:"checksum"`
}

// rpmFilename rebuilds the filename of an indexed package from its
// name/epoch/version/release/architecture fields.
func rpmFilename(p primaryPackage) string {
	if p.Version.Epoch == "" || p.Version.Epoch == "0" {
		return fmt.Sprintf("%s-%s-%s.%s.rpm", p.Name, p.Version.Ver, p.Version.Rel, p.Arch)
	}
	return fmt.Sprintf("%s:%s-%s-%s.%s.rpm", p.Version.Epoch, p.Name, p.Version.Ver, p.Version.Rel, p.Arch)
}

// waitForRpmIndexation checks that the primary YUM index lists the
// content with a matching SHA-1 checksum. The location of the metadata
// depends on the yum_metadata_depth attribute of the repository.
func (c *Content) waitForRpmIndexation(ctx context.Context, timeout time.Duration) error {
	const op = "WaitRpmIndexation"

	if len(c.sha1sum) == 0 {
		return ErrChecksumRequired
	}
	checksum := hex.EncodeToString(c.sha1sum)

	repo := c.client.Subject(c.subject).Repository(c.repository)
	if err := repo.Get(ctx); err != nil {
		return err
	}

	depth := 0
	if repo.YumMetadataDepth != nil {
		depth = *repo.YumMetadataDepth
	}

	base := c.client.dlURL(c.subject, c.repository)
	comps := strings.Split(c.path, "/")
	if depth > 0 && depth < len(comps) {
		base = base.JoinPath(comps[:depth]...)
	}

	filename := path.Base(c.path)

	check := func(ctx context.Context) (bool, error) {
		return c.scanPrimaryIndex(ctx, op, base, filename, checksum)
	}

	return c.waitFor(ctx, op, timeout, indexationInterval, check)
}

func (c *Content) scanPrimaryIndex(ctx context.Context, op string, base *url.URL, filename, checksum string) (bool, error) {
	repomdURL := base.JoinPath("repodata", "repomd.xml")

	req, err := c.client.newRequest(ctx, http.MethodGet, repomdURL, nil)
	if err != nil {
		return false, &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
	}

	resp, err := c.client.send(op, c.resource(), req)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusUnauthorized:
		return false, nil
	default:
		return false, apiError(op, c.resource(), resp)
	}

	var index repomd
	if err := xml.NewDecoder(resp.Body).Decode(&index); err != nil {
		return false, &Error{Type: ErrAPI, Op: op, Resource: c.resource(), Err: err}
	}

	href := ""
	for _, data := range index.Data {
		if data.Type == "primary" {
			href = data.Location.Href
			break
		}
	}
	if href == "" {
		// repomd.xml exists but is not complete yet.
		return false, nil
	}

	primaryURL := base.JoinPath(strings.Split(href, "/")...)

	req, err = c.client.newRequest(ctx, http.MethodGet, primaryURL, nil)
	if err != nil {
		return false, &Error{Type: ErrTransport, Op: op, Resource: c.resource(), Err: err}
	}

	primaryResp, err := c.client.send(op, c.resource(), req)
	if err != nil {
		// The primary file may be mid-replacement, try again.
		return false, nil
	}
	defer drain(primaryResp)

	if primaryResp.StatusCode != http.StatusOK {
		return false, nil
	}

	reader, err := decompressByName(href, primaryResp.Body)
	if err != nil {
		return false, &Error{Type: ErrAPI, Op: op, Resource: c.resource(), Err: err}
	}

	var metadata primaryMetadata
	if err := xml.NewDecoder(reader).Decode(&metadata); err != nil {
		return false, &Error{Type: ErrAPI, Op: op, Resource: c.resource(), Err: err}
	}

	for _, pkg := range metadata.Packages {
		if rpmFilename(pkg) != filename {
			continue
		}
		if pkg.Checksum.Type != "sha" && pkg.Checksum.Type != "sha1" {
			return false, ErrUnsupportedChecksum
		}
		if pkg.Checksum.Value == checksum {
			return true, nil
		}
		// Listed with a stale checksum, keep waiting.
		return false, nil
	}

	return false, nil
}

// decompressByName wraps r with the decompressor matching the file
// name suffix. YUM metadata is usually gzipped, createrepo_c may also
// emit xz.
func decompressByName(name string, r io.Reader) (io.Reader, error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return gzip.NewReader(r)
	case strings.HasSuffix(name, ".xz"):
		return xz.NewReader(r)
	default:
		return r, nil
	}
}

// waitFor runs check immediately and then on every tick, until it
// reports done, fails, or the timeout expires.
func (c *Content) waitFor(ctx context.Context, op string, timeout, interval time.Duration, check func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return &Error{Type: ErrTimeout, Op: op, Resource: c.resource(), Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// checksumFromResponse decodes the X-Checksum-Sha2 header.
func checksumFromResponse(resp *http.Response) []byte {
	value := resp.Header.Get(headerChecksum)
	if value == "" {
		return nil
	}
	sum, err := hex.DecodeString(value)
	if err != nil {
		return nil
	}
	return sum
}

func boolHeader(flag bool) string {
	if flag {
		return "1"
	}
	return "0"
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

