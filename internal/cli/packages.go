package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rabbitmq/bintray-go/internal/specfile"
)

// NewPackageCmd creates the package management command
func NewPackageCmd() *cobra.Command {
	packageCmd := &cobra.Command{
		Use:   "package",
		Short: "Manage packages",
	}

	packageCmd.AddCommand(newPackageListCmd())
	packageCmd.AddCommand(newPackageGetCmd())
	packageCmd.AddCommand(newPackageCreateCmd())
	packageCmd.AddCommand(newPackageUpdateCmd())
	packageCmd.AddCommand(newPackageDeleteCmd())

	return packageCmd
}

func newPackageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <subject>/<repository>",
		Short: "List the packages of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 2)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			repo := client.Subject(ref.Subject).Repository(ref.Repository)
			names, err := repo.PackageNames(cmd.Context())
			if err != nil {
				return err
			}

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newPackageGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <subject>/<repository>/<package>",
		Short: "Show the attributes of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 3)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			pkg := client.Subject(ref.Subject).Repository(ref.Repository).Package(ref.Package)
			if err := pkg.Get(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:     %s\n", pkg)
			if pkg.Desc != "" {
				fmt.Fprintf(out, "Desc:     %s\n", pkg.Desc)
			}
			if len(pkg.Licenses) > 0 {
				fmt.Fprintf(out, "Licenses: %s\n", strings.Join(pkg.Licenses, ", "))
			}
			if len(pkg.Labels) > 0 {
				fmt.Fprintf(out, "Labels:   %s\n", strings.Join(pkg.Labels, ", "))
			}
			if pkg.WebsiteURL != "" {
				fmt.Fprintf(out, "Website:  %s\n", pkg.WebsiteURL)
			}
			if pkg.Maturity != "" {
				fmt.Fprintf(out, "Maturity: %s\n", pkg.Maturity)
			}

			versions, err := pkg.Versions()
			if err != nil {
				return err
			}
			if len(versions) > 0 {
				fmt.Fprintf(out, "Versions: %s\n", strings.Join(versions, ", "))
			}
			return nil
		},
	}
}

func newPackageCreateCmd() *cobra.Command {
	var (
		desc     string
		licenses []string
		labels   []string
		website  string
		vcs      string
		specPath string
	)

	cmd := &cobra.Command{
		Use:   "create <subject>/<repository>/<package>",
		Short: "Create a package",
		Long: `Create a package in a repository.

With --spec, the package name, description, license and website are
derived from an RPM spec file instead of being passed explicitly; the
package element of the resource argument may then be omitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth := 3
			if specPath != "" {
				depth = 2
			}
			ref, err := parseResource(args[0], depth)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			name := ref.Package
			if specPath != "" {
				spec, err := specfile.ParseFile(specPath)
				if err != nil {
					return err
				}
				if name == "" {
					name = spec.Name
				}
				if desc == "" {
					desc = spec.Summary
				}
				if len(licenses) == 0 && spec.License != "" {
					licenses = []string{spec.License}
				}
				if website == "" {
					website = spec.URL
				}
			}

			pkg := client.Subject(ref.Subject).Repository(ref.Repository).Package(name)
			pkg.Desc = desc
			pkg.Licenses = licenses
			pkg.Labels = labels
			pkg.WebsiteURL = website
			pkg.VCSURL = vcs

			return pkg.Create(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&desc, "desc", "", "Package description")
	cmd.Flags().StringSliceVar(&licenses, "license", nil, "Package license (repeatable)")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "Package label (repeatable)")
	cmd.Flags().StringVar(&website, "website", "", "Package website URL")
	cmd.Flags().StringVar(&vcs, "vcs", "", "Package VCS URL")
	cmd.Flags().StringVar(&specPath, "spec", "", "Derive package metadata from an RPM spec file")

	return cmd
}

func newPackageUpdateCmd() *cobra.Command {
	var (
		desc     string
		licenses []string
		labels   []string
		website  string
		vcsURL   string
	)

	cmd := &cobra.Command{
		Use:   "update <subject>/<repository>/<package>",
		Short: "Update the attributes of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 3)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			pkg := client.Subject(ref.Subject).Repository(ref.Repository).Package(ref.Package)
			if err := pkg.Get(cmd.Context()); err != nil {
				return err
			}

			if cmd.Flags().Changed("desc") {
				pkg.Desc = desc
			}
			if cmd.Flags().Changed("license") {
				pkg.Licenses = licenses
			}
			if cmd.Flags().Changed("label") {
				pkg.Labels = labels
			}
			if cmd.Flags().Changed("website") {
				pkg.WebsiteURL = website
			}
			if cmd.Flags().Changed("vcs") {
				pkg.VCSURL = vcsURL
			}

			return pkg.Update(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&desc, "desc", "", "Package description")
	cmd.Flags().StringSliceVar(&licenses, "license", nil, "Package license (repeatable)")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "Package label (repeatable)")
	cmd.Flags().StringVar(&website, "website", "", "Project website URL")
	cmd.Flags().StringVar(&vcsURL, "vcs", "", "Version control URL")

	return cmd
}

func newPackageDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <subject>/<repository>/<package>",
		Short: "Delete a package and all its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 3)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			pkg := client.Subject(ref.Subject).Repository(ref.Repository).Package(ref.Package)
			return pkg.Delete(cmd.Context())
		},
	}
}
