package cli

import (
	"fmt"
	"strings"
)

// resourceRef is a parsed "subject/repository/package@version"
// command line argument. Trailing elements may be omitted when a
// command only needs the leading ones.
type resourceRef struct {
	Subject    string
	Repository string
	Package    string
	Version    string
}

// parseResource splits a resource argument. depth is the number of
// path elements the command requires: 2 for subject/repository, 3 to
// also require a package, 4 to require "@version" as well.
func parseResource(arg string, depth int) (resourceRef, error) {
	ref := resourceRef{}

	path := arg
	if at := strings.LastIndex(arg, "@"); at >= 0 {
		path = arg[:at]
		ref.Version = arg[at+1:]
	}

	parts := strings.Split(path, "/")
	if len(parts) > 3 {
		return resourceRef{}, fmt.Errorf("malformed resource %q", arg)
	}
	for _, part := range parts {
		if part == "" {
			return resourceRef{}, fmt.Errorf("malformed resource %q", arg)
		}
	}

	ref.Subject = parts[0]
	if len(parts) >= 2 {
		ref.Repository = parts[1]
	}
	if len(parts) >= 3 {
		ref.Package = parts[2]
	}

	if len(parts) < min(depth, 3) {
		return resourceRef{}, fmt.Errorf(
			"resource %q is missing elements, expected %s", arg, resourceForm(depth))
	}
	if depth >= 4 && ref.Version == "" {
		return resourceRef{}, fmt.Errorf(
			"resource %q is missing a version, expected %s", arg, resourceForm(depth))
	}

	return ref, nil
}

func resourceForm(depth int) string {
	switch depth {
	case 2:
		return "subject/repository"
	case 3:
		return "subject/repository/package"
	default:
		return "subject/repository/package@version"
	}
}
