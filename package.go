package bintray

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sassoftware/go-rpmutils"
)

// PackageMaturity describes the maturity level of a package.
type PackageMaturity string

const (
	MaturityUnset        PackageMaturity = ""
	MaturityOfficial     PackageMaturity = "Official"
	MaturityStable       PackageMaturity = "Stable"
	MaturityDevelopment  PackageMaturity = "Development"
	MaturityExperimental PackageMaturity = "Experimental"
)

// Package is a handle on a Bintray package. Exported fields can be
// filled before Create or Update, and are refreshed by Get.
type Package struct {
	client     *Client
	subject    string
	repository string
	name       string

	Desc                   string
	Labels                 []string
	Licenses               []string
	WebsiteURL             string
	VCSURL                 string
	IssueTrackerURL        string
	GithubRepo             string
	GithubReleaseNotesFile string
	Maturity               PackageMaturity
	Created                time.Time
	Updated                time.Time

	versions []string
}

// Subject returns the owner of the package.
func (p *Package) Subject() string { return p.subject }

// Repository returns the repository the package belongs to.
func (p *Package) Repository() string { return p.repository }

// Name returns the package name.
func (p *Package) Name() string { return p.name }

// Version returns a handle on a version of this package.
func (p *Package) Version(version string) *Version {
	return &Version{
		client:     p.client,
		subject:    p.subject,
		repository: p.repository,
		pkg:        p.name,
		name:       version,
	}
}

// Versions returns the version strings reported by the last Get,
// sorted in RPM version order, oldest first.
func (p *Package) Versions() ([]string, error) {
	if p.versions == nil {
		return nil, ErrCallGetFirst
	}
	return append([]string(nil), p.versions...), nil
}

func (p *Package) String() string {
	return fmt.Sprintf("%s/%s/%s", p.subject, p.repository, p.name)
}

func (p *Package) resource() string {
	return p.subject + "/" + p.repository + "/" + p.name
}

type packageAttrsReq struct {
	Desc                   string          `json:"desc"`
	Labels                 []string        `json:"labels"`
	Licenses               []string        `json:"licenses"`
	WebsiteURL             string          `json:"website_url"`
	VCSURL                 string          `json:"vcs_url"`
	IssueTrackerURL        string          `json:"issue_tracker_url"`
	GithubRepo             string          `json:"github_repo"`
	GithubReleaseNotesFile string          `json:"github_release_notes_file"`
	Maturity               PackageMaturity `json:"maturity"`
}

type packageResp struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Name  string `json:"name"`

	Desc                   string          `json:"desc"`
	Labels                 []string        `json:"labels"`
	Licenses               []string        `json:"licenses"`
	WebsiteURL             string          `json:"website_url"`
	VCSURL                 string          `json:"vcs_url"`
	IssueTrackerURL        string          `json:"issue_tracker_url"`
	GithubRepo             string          `json:"github_repo"`
	GithubReleaseNotesFile string          `json:"github_release_notes_file"`
	Maturity               PackageMaturity `json:"maturity"`
	Created                string          `json:"created"`
	Updated                string          `json:"updated"`
	Versions               []string        `json:"versions"`
}

func (p *Package) attrs() packageAttrsReq {
	labels := append([]string(nil), p.Labels...)
	sort.Strings(labels)
	licenses := append([]string(nil), p.Licenses...)
	sort.Strings(licenses)

	return packageAttrsReq{
		Desc:                   p.Desc,
		Labels:                 labels,
		Licenses:               licenses,
		WebsiteURL:             p.WebsiteURL,
		VCSURL:                 p.VCSURL,
		IssueTrackerURL:        p.IssueTrackerURL,
		GithubRepo:             p.GithubRepo,
		GithubReleaseNotesFile: p.GithubReleaseNotesFile,
		Maturity:               p.Maturity,
	}
}

func (p *Package) fill(resp *packageResp) {
	p.Desc = resp.Desc
	p.Labels = append([]string(nil), resp.Labels...)
	sort.Strings(p.Labels)
	p.Licenses = append([]string(nil), resp.Licenses...)
	sort.Strings(p.Licenses)
	p.WebsiteURL = resp.WebsiteURL
	p.VCSURL = resp.VCSURL
	p.IssueTrackerURL = resp.IssueTrackerURL
	p.GithubRepo = resp.GithubRepo
	p.GithubReleaseNotesFile = resp.GithubReleaseNotesFile
	p.Maturity = resp.Maturity
	p.Created = parseTime(resp.Created)
	p.Updated = parseTime(resp.Updated)

	versions := make([]string, 0, len(resp.Versions))
	versions = append(versions, resp.Versions...)
	sort.Slice(versions, func(i, j int) bool {
		return rpmutils.Vercmp(versions[i], versions[j]) < 0
	})
	p.versions = versions
}

// Create creates the package with the attributes currently set on the
// handle.
func (p *Package) Create(ctx context.Context) error {
	const op = "CreatePackage"

	type createReq struct {
		Name string `json:"name"`
		packageAttrsReq
	}

	payload := createReq{Name: p.name, packageAttrsReq: p.attrs()}

	u := p.client.apiURL("packages", p.subject, p.repository)

	resp, err := p.client.sendJSON(ctx, op, p.resource(), http.MethodPost, u, &payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return apiError(op, p.resource(), resp)
	}

	var attrs packageResp
	if err := decodeJSON(op, p.resource(), resp, &attrs); err != nil {
		return err
	}
	p.Created = parseTime(attrs.Created)
	p.Updated = parseTime(attrs.Updated)

	return nil
}

// Exists reports whether the package exists. Unauthorized responses
// are treated as "does not exist" because Bintray hides private
// resources from anonymous clients.
func (p *Package) Exists(ctx context.Context) (bool, error) {
	const op = "CheckPackage"

	u := p.client.apiURL("packages", p.subject, p.repository, p.name)

	req, err := p.client.newRequest(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, &Error{Type: ErrTransport, Op: op, Resource: p.resource(), Err: err}
	}

	resp, err := p.client.send(op, p.resource(), req)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusUnauthorized:
		return false, nil
	default:
		return false, apiError(op, p.resource(), resp)
	}
}

// Get queries the API and refreshes the handle with the returned
// package attributes, including the list of versions.
func (p *Package) Get(ctx context.Context) error {
	const op = "GetPackage"

	u := p.client.apiURL("packages", p.subject, p.repository, p.name)

	req, err := p.client.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Type: ErrTransport, Op: op, Resource: p.resource(), Err: err}
	}

	resp, err := p.client.send(op, p.resource(), req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(op, p.resource(), resp)
	}

	var attrs packageResp
	if err := decodeJSON(op, p.resource(), resp, &attrs); err != nil {
		return err
	}
	p.fill(&attrs)

	return nil
}

// Update submits the updatable attributes of the handle.
func (p *Package) Update(ctx context.Context) error {
	const op = "UpdatePackage"

	payload := p.attrs()

	u := p.client.apiURL("packages", p.subject, p.repository, p.name)

	resp, err := p.client.sendJSON(ctx, op, p.resource(), http.MethodPatch, u, &payload)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return apiError(op, p.resource(), resp)
	}

	// The API does not return the new "updated" value, clear it so the
	// caller does not assume it is current.
	p.Updated = time.Time{}

	return nil
}

// Delete deletes the package and all its versions.
func (p *Package) Delete(ctx context.Context) error {
	const op = "DeletePackage"

	u := p.client.apiURL("packages", p.subject, p.repository, p.name)

	req, err := p.client.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &Error{Type: ErrTransport, Op: op, Resource: p.resource(), Err: err}
	}

	resp, err := p.client.send(op, p.resource(), req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return apiError(op, p.resource(), resp)
	}

	return nil
}
