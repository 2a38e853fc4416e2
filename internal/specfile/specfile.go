// Package specfile reads RPM spec files well enough to derive the
// registry metadata of the package they describe. It is not a full
// rpmbuild preprocessor: only the preamble tags, the common body
// sections and the %{name}/%{version}/%{release} macros are handled.
package specfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// changelogDateLayout is the date format rpmbuild expects in
// %changelog headers.
const changelogDateLayout = "Mon Jan 02 2006"

// Spec holds the parsed content of an RPM spec file.
type Spec struct {
	Name      string
	Version   string
	Release   string
	Summary   string
	License   string
	URL       string
	BuildArch string
	Sources   []string

	Description string
	Prep        string
	Build       string
	Install     string
	Files       []string
	Changelog   []ChangelogEntry
}

// ChangelogEntry is one "* <date> <author> <email> - <version>" block
// of the %changelog section.
type ChangelogEntry struct {
	Date    time.Time
	Author  string
	Email   string
	Version string
	Notes   []string
}

// FullVersion returns the version-release pair, the form used in RPM
// filenames.
func (s *Spec) FullVersion() string {
	if s.Release == "" {
		return s.Version
	}
	return s.Version + "-" + s.Release
}

// ParseFile parses the spec file at the given path.
func ParseFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse parses a spec file read from r.
func Parse(r io.Reader) (*Spec, error) {
	spec := &Spec{}

	var section string
	var body []string

	flush := func() {
		text := strings.TrimRight(strings.Join(body, "\n"), "\n")
		switch section {
		case "description":
			spec.Description = text
		case "prep":
			spec.Prep = text
		case "build":
			spec.Build = text
		case "install":
			spec.Install = text
		case "files":
			for _, line := range body {
				if line = strings.TrimSpace(line); line != "" {
					spec.Files = append(spec.Files, line)
				}
			}
		case "changelog":
			spec.Changelog = parseChangelog(body)
		}
		body = body[:0]
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "%") {
			word := strings.Fields(line)[0]
			switch word {
			case "%description", "%prep", "%build", "%install", "%files", "%changelog":
				flush()
				section = strings.TrimPrefix(word, "%")
				continue
			}
		}

		if section == "" {
			if err := spec.parseTag(line); err != nil {
				return nil, err
			}
			continue
		}

		body = append(body, spec.expand(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	if spec.Name == "" {
		return nil, fmt.Errorf("spec file has no Name tag")
	}
	if spec.Version == "" {
		return nil, fmt.Errorf("spec file has no Version tag")
	}

	return spec, nil
}

// parseTag handles one "Tag: value" preamble line. Unknown tags and
// blank lines are skipped, rpmbuild knows many more tags than the
// registry needs.
func (s *Spec) parseTag(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	tag, value, found := strings.Cut(line, ":")
	if !found {
		return fmt.Errorf("malformed preamble line %q", line)
	}
	value = s.expand(strings.TrimSpace(value))

	switch key := strings.ToLower(strings.TrimSpace(tag)); {
	case key == "name":
		s.Name = value
	case key == "version":
		s.Version = value
	case key == "release":
		s.Release = value
	case key == "summary":
		s.Summary = value
	case key == "license":
		s.License = value
	case key == "url":
		s.URL = value
	case key == "buildarch":
		s.BuildArch = value
	case strings.HasPrefix(key, "source"):
		s.Sources = append(s.Sources, value)
	}

	return nil
}

// expand substitutes the macros the preamble tags define. Conditional
// macros such as %{?dist} expand to nothing when undefined, which is
// their rpmbuild behavior outside a build root.
func (s *Spec) expand(text string) string {
	replacer := strings.NewReplacer(
		"%{name}", s.Name,
		"%{version}", s.Version,
		"%{release}", s.Release,
	)
	text = replacer.Replace(text)

	for {
		start := strings.Index(text, "%{?")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], "}")
		if end < 0 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}

	return text
}

func parseChangelog(lines []string) []ChangelogEntry {
	var entries []ChangelogEntry

	for _, line := range lines {
		if strings.HasPrefix(line, "* ") {
			entries = append(entries, parseChangelogHeader(strings.TrimPrefix(line, "* ")))
			continue
		}
		if len(entries) == 0 {
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			last := &entries[len(entries)-1]
			last.Notes = append(last.Notes, strings.TrimPrefix(line, "- "))
		}
	}

	return entries
}

// parseChangelogHeader splits "<date> <author> <email> - <version>".
// Fields that cannot be recognized are left empty rather than failing
// the whole parse, changelogs are free-form in practice.
func parseChangelogHeader(header string) ChangelogEntry {
	entry := ChangelogEntry{}

	fields := strings.Fields(header)
	if len(fields) >= 4 {
		if date, err := time.Parse(changelogDateLayout, strings.Join(fields[:4], " ")); err == nil {
			entry.Date = date
			fields = fields[4:]
		}
	}

	var author []string
	for i, field := range fields {
		switch {
		case strings.HasPrefix(field, "<") && strings.HasSuffix(field, ">"):
			entry.Email = strings.Trim(field, "<>")
		case field == "-":
			if i+1 < len(fields) {
				entry.Version = fields[i+1]
			}
			entry.Author = strings.Join(author, " ")
			return entry
		default:
			author = append(author, field)
		}
	}
	entry.Author = strings.Join(author, " ")

	return entry
}
