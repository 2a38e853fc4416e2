package bintray

import (
	"context"
	"net/http"
	"sort"
)

// Subject is a handle on a Bintray user or organization.
type Subject struct {
	client *Client
	name   string
}

// Name returns the subject name.
func (s *Subject) Name() string { return s.name }

// Repository returns a handle on a repository owned by this subject.
// No request is performed; call Get on the returned handle to query it.
func (s *Subject) Repository(name string) *Repository {
	return &Repository{
		client:  s.client,
		subject: s.name,
		name:    name,
		Type:    TypeGeneric,
	}
}

// RepositoryNames lists the names of the repositories owned by this
// subject, sorted alphabetically.
func (s *Subject) RepositoryNames(ctx context.Context) ([]string, error) {
	const op = "ListRepositories"

	u := s.client.apiURL("repos", s.name)

	req, err := s.client.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Type: ErrTransport, Op: op, Resource: s.name, Err: err}
	}

	resp, err := s.client.send(op, s.name, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(op, s.name, resp)
	}

	var entries []struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(op, s.name, resp, &entries); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	sort.Strings(names)

	return names, nil
}
