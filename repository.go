package bintray

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// RepositoryType represents the repository kinds supported by Bintray.
type RepositoryType string

const (
	TypeGeneric RepositoryType = "generic"
	TypeDebian  RepositoryType = "debian"
	TypeDocker  RepositoryType = "docker"
	TypeMaven   RepositoryType = "maven"
	TypeNpm     RepositoryType = "npm"
	TypeNuget   RepositoryType = "nuget"
	TypeOpkg    RepositoryType = "opkg"
	TypeRpm     RepositoryType = "rpm"
	TypeVagrant RepositoryType = "vagrant"
)

// normalizeRepositoryType maps the inconsistent "deb" value the API
// sometimes reports back to "debian".
func normalizeRepositoryType(t RepositoryType) RepositoryType {
	if t == "deb" {
		return TypeDebian
	}
	return t
}

// Indexed reports whether Bintray builds package indexes for this
// repository type.
func (t RepositoryType) Indexed() bool {
	return t == TypeDebian || t == TypeRpm
}

// Repository is a handle on a Bintray repository. Exported fields can
// be filled before Create or Update, and are refreshed by Get.
type Repository struct {
	client  *Client
	subject string
	name    string

	Type         RepositoryType
	Private      bool
	Premium      bool
	Desc         string
	Labels       []string
	BusinessUnit string

	GPGSignMetadata bool
	GPGSignFiles    bool
	GPGUseOwnerKey  bool

	DefaultDebianArchitecture string
	DefaultDebianDistribution string
	DefaultDebianComponent    string

	// YumMetadataDepth is the depth, relative to the repository root,
	// at which YUM metadata is created. nil leaves the remote default.
	YumMetadataDepth *int
	YumGroupsFile    string

	PackageCount int
	Created      time.Time
}

// Subject returns the owner of the repository.
func (r *Repository) Subject() string { return r.subject }

// Name returns the repository name.
func (r *Repository) Name() string { return r.name }

// SetYumMetadataDepth sets the YUM metadata depth submitted on Create.
func (r *Repository) SetYumMetadataDepth(depth int) *Repository {
	r.YumMetadataDepth = &depth
	return r
}

// Package returns a handle on a package of this repository.
func (r *Repository) Package(name string) *Package {
	return &Package{
		client:     r.client,
		subject:    r.subject,
		repository: r.name,
		name:       name,
	}
}

func (r *Repository) String() string {
	return fmt.Sprintf("%s/%s<%s>", r.subject, r.name, r.Type)
}

// repositoryResp mirrors the attribute object returned by the API for
// a repository.
type repositoryResp struct {
	Owner        string         `json:"owner"`
	Name         string         `json:"name"`
	Type         RepositoryType `json:"type"`
	Private      bool           `json:"private"`
	Premium      bool           `json:"premium"`
	Desc         string         `json:"desc"`
	Labels       []string       `json:"labels"`
	BusinessUnit string         `json:"business_unit"`
	Created      string         `json:"created"`
	PackageCount int            `json:"package_count"`

	GPGSignMetadata bool `json:"gpg_sign_metadata"`
	GPGSignFiles    bool `json:"gpg_sign_files"`
	GPGUseOwnerKey  bool `json:"gpg_use_owner_key"`

	DefaultDebianArchitecture string `json:"default_debian_architecture"`
	DefaultDebianDistribution string `json:"default_debian_distribution"`
	DefaultDebianComponent    string `json:"default_debian_component"`

	YumMetadataDepth *int   `json:"yum_metadata_depth"`
	YumGroupsFile    string `json:"yum_groups_file"`
}

func (r *Repository) fill(resp *repositoryResp) {
	r.Type = normalizeRepositoryType(resp.Type)
	r.Private = resp.Private
	r.Premium = resp.Premium
	r.Desc = resp.Desc
	r.Labels = append([]string(nil), resp.Labels...)
	sort.Strings(r.Labels)
	r.BusinessUnit = resp.BusinessUnit
	r.PackageCount = resp.PackageCount
	r.Created = parseTime(resp.Created)

	r.GPGSignMetadata = resp.GPGSignMetadata
	r.GPGSignFiles = resp.GPGSignFiles
	r.GPGUseOwnerKey = resp.GPGUseOwnerKey

	r.DefaultDebianArchitecture = resp.DefaultDebianArchitecture
	r.DefaultDebianDistribution = resp.DefaultDebianDistribution
	r.DefaultDebianComponent = resp.DefaultDebianComponent

	r.YumMetadataDepth = resp.YumMetadataDepth
	r.YumGroupsFile = resp.YumGroupsFile
}

// Get queries the API and refreshes the handle with the returned
// repository attributes.
func (r *Repository) Get(ctx context.Context) error {
	const op = "GetRepository"
	resource := r.subject + "/" + r.name

	u := r.client.apiURL("repos", r.subject, r.name)

	req, err := r.client.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Type: ErrTransport, Op: op, Resource: resource, Err: err}
	}

	resp, err := r.client.send(op, resource, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(op, resource, resp)
	}

	var attrs repositoryResp
	if err := decodeJSON(op, resource, resp, &attrs); err != nil {
		return err
	}
	r.fill(&attrs)

	return nil
}

// Exists is like Get but returns false instead of an error when the
// repository does not exist.
func (r *Repository) Exists(ctx context.Context) (bool, error) {
	err := r.Get(ctx)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Create creates the repository with the attributes currently set on
// the handle. Empty string fields are not submitted, so the remote
// defaults apply.
func (r *Repository) Create(ctx context.Context) error {
	const op = "CreateRepository"
	resource := r.subject + "/" + r.name

	type createReq struct {
		Name         string         `json:"name"`
		Type         RepositoryType `json:"type"`
		Private      bool           `json:"private"`
		BusinessUnit string         `json:"business_unit,omitempty"`
		Desc         string         `json:"desc,omitempty"`
		Labels       []string       `json:"labels,omitempty"`

		GPGSignMetadata bool `json:"gpg_sign_metadata"`
		GPGSignFiles    bool `json:"gpg_sign_files"`
		GPGUseOwnerKey  bool `json:"gpg_use_owner_key"`

		DefaultDebianArchitecture string `json:"default_debian_architecture,omitempty"`
		DefaultDebianDistribution string `json:"default_debian_distribution,omitempty"`
		DefaultDebianComponent    string `json:"default_debian_component,omitempty"`

		YumMetadataDepth *int   `json:"yum_metadata_depth,omitempty"`
		YumGroupsFile    string `json:"yum_groups_file,omitempty"`
	}

	payload := createReq{
		Name:         r.name,
		Type:         normalizeRepositoryType(r.Type),
		Private:      r.Private,
		BusinessUnit: r.BusinessUnit,
		Desc:         r.Desc,
		Labels:       r.Labels,

		GPGSignMetadata: r.GPGSignMetadata,
		GPGSignFiles:    r.GPGSignFiles,
		GPGUseOwnerKey:  r.GPGUseOwnerKey,

		DefaultDebianArchitecture: r.DefaultDebianArchitecture,
		DefaultDebianDistribution: r.DefaultDebianDistribution,
		DefaultDebianComponent:    r.DefaultDebianComponent,

		YumMetadataDepth: r.YumMetadataDepth,
		YumGroupsFile:    r.YumGroupsFile,
	}

	u := r.client.apiURL("repos", r.subject, r.name)

	resp, err := r.client.sendJSON(ctx, op, resource, http.MethodPost, u, &payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return apiError(op, resource, resp)
	}

	var attrs repositoryResp
	if err := decodeJSON(op, resource, resp, &attrs); err != nil {
		return err
	}
	r.Created = parseTime(attrs.Created)

	logrus.Infof("%s(%s): repository created", op, resource)
	return nil
}

// Update submits the updatable attributes of the handle. Fields left
// at their zero value keep the remote value for string attributes.
func (r *Repository) Update(ctx context.Context) error {
	const op = "UpdateRepository"
	resource := r.subject + "/" + r.name

	type updateReq struct {
		BusinessUnit string   `json:"business_unit,omitempty"`
		Desc         string   `json:"desc,omitempty"`
		Labels       []string `json:"labels,omitempty"`

		GPGSignMetadata bool `json:"gpg_sign_metadata"`
		GPGSignFiles    bool `json:"gpg_sign_files"`
		GPGUseOwnerKey  bool `json:"gpg_use_owner_key"`
	}

	payload := updateReq{
		BusinessUnit: r.BusinessUnit,
		Desc:         r.Desc,
		Labels:       r.Labels,

		GPGSignMetadata: r.GPGSignMetadata,
		GPGSignFiles:    r.GPGSignFiles,
		GPGUseOwnerKey:  r.GPGUseOwnerKey,
	}

	u := r.client.apiURL("repos", r.subject, r.name)

	resp, err := r.client.sendJSON(ctx, op, resource, http.MethodPatch, u, &payload)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return apiError(op, resource, resp)
	}

	return nil
}

// Delete deletes the repository. A missing repository is not an error,
// so Delete can be used to ensure a repository is gone.
func (r *Repository) Delete(ctx context.Context) error {
	const op = "DeleteRepository"
	resource := r.subject + "/" + r.name

	u := r.client.apiURL("repos", r.subject, r.name)

	req, err := r.client.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &Error{Type: ErrTransport, Op: op, Resource: resource, Err: err}
	}

	resp, err := r.client.send(op, resource, req)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		r.Created = time.Time{}
		return nil
	default:
		return apiError(op, resource, resp)
	}
}

// PackageNames lists the names of the packages provided by this
// repository, sorted alphabetically.
func (r *Repository) PackageNames(ctx context.Context) ([]string, error) {
	const op = "ListPackages"
	resource := r.subject + "/" + r.name

	u := r.client.apiURL("repos", r.subject, r.name, "packages")

	req, err := r.client.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Type: ErrTransport, Op: op, Resource: resource, Err: err}
	}

	resp, err := r.client.send(op, resource, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(op, resource, resp)
	}

	var entries []struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(op, resource, resp, &entries); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	sort.Strings(names)

	return names, nil
}

// parseTime parses the ISO 8601 timestamps the API returns. Unparsable
// values yield the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
