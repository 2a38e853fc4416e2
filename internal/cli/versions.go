package cli

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version management command
func NewVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Manage package versions",
	}

	versionCmd.AddCommand(newVersionGetCmd())
	versionCmd.AddCommand(newVersionCreateCmd())
	versionCmd.AddCommand(newVersionUpdateCmd())
	versionCmd.AddCommand(newVersionDeleteCmd())
	versionCmd.AddCommand(newVersionPublishCmd())

	return versionCmd
}

func newVersionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <subject>/<repository>/<package>@<version>",
		Short: "Show the attributes of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 4)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			version := client.Subject(ref.Subject).
				Repository(ref.Repository).
				Package(ref.Package).
				Version(ref.Version)
			if err := version.Get(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:   %s\n", version)
			fmt.Fprintf(out, "Published: %t\n", version.Published)
			if version.Desc != "" {
				fmt.Fprintf(out, "Desc:      %s\n", version.Desc)
			}
			if len(version.Labels) > 0 {
				fmt.Fprintf(out, "Labels:    %s\n", strings.Join(version.Labels, ", "))
			}
			if version.VCSTag != "" {
				fmt.Fprintf(out, "VCS tag:   %s\n", version.VCSTag)
			}
			if !version.Released.IsZero() {
				fmt.Fprintf(out, "Released:  %s\n", version.Released.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newVersionCreateCmd() *cobra.Command {
	var (
		desc   string
		vcsTag string
	)

	cmd := &cobra.Command{
		Use:   "create <subject>/<repository>/<package>@<version>",
		Short: "Create a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 4)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			version := client.Subject(ref.Subject).
				Repository(ref.Repository).
				Package(ref.Package).
				Version(ref.Version)
			version.Desc = desc
			version.VCSTag = vcsTag

			return version.Create(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&desc, "desc", "", "Version description")
	cmd.Flags().StringVar(&vcsTag, "vcs-tag", "", "VCS tag the version was built from")

	return cmd
}

func newVersionUpdateCmd() *cobra.Command {
	var (
		desc   string
		vcsTag string
	)

	cmd := &cobra.Command{
		Use:   "update <subject>/<repository>/<package>@<version>",
		Short: "Update the attributes of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 4)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			version := client.Subject(ref.Subject).Repository(ref.Repository).
				Package(ref.Package).Version(ref.Version)
			if err := version.Get(cmd.Context()); err != nil {
				return err
			}

			if cmd.Flags().Changed("desc") {
				version.Desc = desc
			}
			if cmd.Flags().Changed("vcs-tag") {
				version.VCSTag = vcsTag
			}

			return version.Update(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&desc, "desc", "", "Version description")
	cmd.Flags().StringVar(&vcsTag, "vcs-tag", "", "Version control tag")

	return cmd
}

func newVersionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <subject>/<repository>/<package>@<version>",
		Short: "Delete a version and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 4)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			version := client.Subject(ref.Subject).
				Repository(ref.Repository).
				Package(ref.Package).
				Version(ref.Version)
			return version.Delete(cmd.Context())
		},
	}
}

func newVersionPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <subject>/<repository>/<package>@<version>",
		Short: "Publish the files of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 4)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			version := client.Subject(ref.Subject).
				Repository(ref.Repository).
				Package(ref.Package).
				Version(ref.Version)
			published, err := version.Publish(cmd.Context())
			if err != nil {
				return err
			}

			logrus.Infof("Published %d file(s) of %s", published, version)
			return nil
		},
	}
}
