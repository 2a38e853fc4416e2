package bintray

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Version is a handle on a version of a Bintray package. Exported
// fields can be filled before Create or Update, and are refreshed by
// Get.
type Version struct {
	client     *Client
	subject    string
	repository string
	pkg        string
	name       string

	Desc                     string
	Labels                   []string
	Released                 time.Time
	VCSTag                   string
	GithubUseTagReleaseNotes bool
	GithubReleaseNotesFile   string
	Published                bool
	Created                  time.Time
	Updated                  time.Time
}

// Subject returns the owner of the version.
func (v *Version) Subject() string { return v.subject }

// Repository returns the repository the version belongs to.
func (v *Version) Repository() string { return v.repository }

// Package returns the package the version belongs to.
func (v *Version) Package() string { return v.pkg }

// Name returns the version string.
func (v *Version) Name() string { return v.name }

// File returns a handle on a file stored under this version. The
// path is relative to the repository root.
func (v *Version) File(path string) *Content {
	return newContent(v.client, v.subject, v.repository, v.pkg, v.name, path)
}

func (v *Version) String() string {
	return fmt.Sprintf("%s/%s/%s@%s", v.subject, v.repository, v.pkg, v.name)
}

func (v *Version) resource() string {
	return v.subject + "/" + v.repository + "/" + v.pkg + "/" + v.name
}

type versionAttrsReq struct {
	Desc                     string   `json:"desc"`
	Labels                   []string `json:"labels"`
	Released                 string   `json:"released,omitempty"`
	VCSTag                   string   `json:"vcs_tag,omitempty"`
	GithubUseTagReleaseNotes bool     `json:"github_use_tag_release_notes"`
	GithubReleaseNotesFile   string   `json:"github_release_notes_file,omitempty"`
}

type versionResp struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Package string `json:"package"`
	Name    string `json:"name"`

	Desc                     string   `json:"desc"`
	Labels                   []string `json:"labels"`
	Released                 string   `json:"released"`
	VCSTag                   string   `json:"vcs_tag"`
	GithubUseTagReleaseNotes bool     `json:"github_use_tag_release_notes"`
	GithubReleaseNotesFile   string   `json:"github_release_notes_file"`
	Published                bool     `json:"published"`
	Created                  string   `json:"created"`
	Updated                  string   `json:"updated"`
}

func (v *Version) attrs() versionAttrsReq {
	labels := append([]string(nil), v.Labels...)
	sort.Strings(labels)

	released := ""
	if !v.Released.IsZero() {
		released = v.Released.Format(time.RFC3339)
	}

	return versionAttrsReq{
		Desc:                     v.Desc,
		Labels:                   labels,
		Released:                 released,
		VCSTag:                   v.VCSTag,
		GithubUseTagReleaseNotes: v.GithubUseTagReleaseNotes,
		GithubReleaseNotesFile:   v.GithubReleaseNotesFile,
	}
}

func (v *Version) fill(resp *versionResp) {
	v.Desc = resp.Desc
	v.Labels = append([]string(nil), resp.Labels...)
	sort.Strings(v.Labels)
	v.Released = parseTime(resp.Released)
	v.VCSTag = resp.VCSTag
	v.GithubUseTagReleaseNotes = resp.GithubUseTagReleaseNotes
	v.GithubReleaseNotesFile = resp.GithubReleaseNotesFile
	v.Published = resp.Published
	v.Created = parseTime(resp.Created)
	v.Updated = parseTime(resp.Updated)
}

// Create creates the version with the attributes currently set on the
// handle.
func (v *Version) Create(ctx context.Context) error {
	const op = "CreateVersion"

	type createReq struct {
		Name string `json:"name"`
		versionAttrsReq
	}

	payload := createReq{Name: v.name, versionAttrsReq: v.attrs()}

	u := v.client.apiURL("packages", v.subject, v.repository, v.pkg, "versions")

	resp, err := v.client.sendJSON(ctx, op, v.resource(), http.MethodPost, u, &payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return apiError(op, v.resource(), resp)
	}

	var attrs versionResp
	if err := decodeJSON(op, v.resource(), resp, &attrs); err != nil {
		return err
	}
	if v.Released.IsZero() {
		v.Released = parseTime(attrs.Released)
	}
	v.Published = attrs.Published
	v.Created = parseTime(attrs.Created)
	v.Updated = parseTime(attrs.Updated)

	return nil
}

// Exists reports whether the version exists. Unauthorized responses
// are treated as "does not exist" because Bintray hides private
// resources from anonymous clients.
func (v *Version) Exists(ctx context.Context) (bool, error) {
	const op = "CheckVersion"

	u := v.client.apiURL("packages", v.subject, v.repository, v.pkg, "versions", v.name)

	req, err := v.client.newRequest(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, &Error{Type: ErrTransport, Op: op, Resource: v.resource(), Err: err}
	}

	resp, err := v.client.send(op, v.resource(), req)
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
		return false, apiError(op, v.resource(), resp)
	}
}

// Get queries the API and refreshes the handle with the returned
// version attributes.
func (v *Version) Get(ctx context.Context) error {
	const op = "GetVersion"

	u := v.client.apiURL("packages", v.subject, v.repository, v.pkg, "versions", v.name)

	req, err := v.client.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Type: ErrTransport, Op: op, Resource: v.resource(), Err: err}
	}

	resp, err := v.client.send(op, v.resource(), req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(op, v.resource(), resp)
	}

	var attrs versionResp
	if err := decodeJSON(op, v.resource(), resp, &attrs); err != nil {
		return err
	}
	v.fill(&attrs)

	return nil
}

// Update submits the updatable attributes of the handle.
func (v *Version) Update(ctx context.Context) error {
	const op = "UpdateVersion"

	payload := v.attrs()

	u := v.client.apiURL("packages", v.subject, v.repository, v.pkg, "versions", v.name)

	resp, err := v.client.sendJSON(ctx, op, v.resource(), http.MethodPatch, u, &payload)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return apiError(op, v.resource(), resp)
	}

	return nil
}

// Delete deletes the version and the files attached to it.
func (v *Version) Delete(ctx context.Context) error {
	const op = "DeleteVersion"

	u := v.client.apiURL("packages", v.subject, v.repository, v.pkg, "versions", v.name)

	req, err := v.client.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &Error{Type: ErrTransport, Op: op, Resource: v.resource(), Err: err}
	}

	resp, err := v.client.send(op, v.resource(), req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return apiError(op, v.resource(), resp)
	}

	return nil
}

// Publish publishes all unpublished files attached to the version and
// returns the number of files published.
func (v *Version) Publish(ctx context.Context) (int, error) {
	const op = "PublishVersion"

	u := v.client.apiURL("content", v.subject, v.repository, v.pkg, v.name, "publish")

	resp, err := v.client.sendJSON(ctx, op, v.resource(), http.MethodPost, u, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apiError(op, v.resource(), resp)
	}

	var result struct {
		Files int `json:"files"`
	}
	if err := decodeJSON(op, v.resource(), resp, &result); err != nil {
		return 0, err
	}

	v.Published = true
	return result.Files, nil
}
