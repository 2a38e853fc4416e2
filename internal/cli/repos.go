package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rabbitmq/bintray-go"
)

// NewRepoCmd creates the repository management command
func NewRepoCmd() *cobra.Command {
	repoCmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories",
	}

	repoCmd.AddCommand(newRepoListCmd())
	repoCmd.AddCommand(newRepoGetCmd())
	repoCmd.AddCommand(newRepoCreateCmd())
	repoCmd.AddCommand(newRepoUpdateCmd())
	repoCmd.AddCommand(newRepoDeleteCmd())

	return repoCmd
}

func newRepoListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <subject>",
		Short: "List the repositories of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			names, err := client.Subject(args[0]).RepositoryNames(cmd.Context())
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

func newRepoGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <subject>/<repository>",
		Short: "Show the attributes of a repository",
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
			if err := repo.Get(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:     %s/%s\n", repo.Subject(), repo.Name())
			fmt.Fprintf(out, "Type:     %s\n", repo.Type)
			fmt.Fprintf(out, "Private:  %t\n", repo.Private)
			fmt.Fprintf(out, "Packages: %d\n", repo.PackageCount)
			if repo.Desc != "" {
				fmt.Fprintf(out, "Desc:     %s\n", repo.Desc)
			}
			if len(repo.Labels) > 0 {
				fmt.Fprintf(out, "Labels:   %s\n", strings.Join(repo.Labels, ", "))
			}
			if !repo.Created.IsZero() {
				fmt.Fprintf(out, "Created:  %s\n", repo.Created.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newRepoCreateCmd() *cobra.Command {
	var (
		repoType string
		desc     string
		labels   []string
		yumDepth int
	)

	cmd := &cobra.Command{
		Use:   "create <subject>/<repository>",
		Short: "Create a repository",
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
			repo.Type = bintray.RepositoryType(repoType)
			repo.Desc = desc
			repo.Labels = labels
			if cmd.Flags().Changed("yum-metadata-depth") {
				repo.SetYumMetadataDepth(yumDepth)
			}

			return repo.Create(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&repoType, "type", "generic", "Repository type (generic, debian, rpm, maven, ...)")
	cmd.Flags().StringVar(&desc, "desc", "", "Repository description")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "Repository label (repeatable)")
	cmd.Flags().IntVar(&yumDepth, "yum-metadata-depth", 0, "Directory depth of YUM metadata (rpm repositories)")

	return cmd
}

func newRepoUpdateCmd() *cobra.Command {
	var (
		desc         string
		labels       []string
		businessUnit string
	)

	cmd := &cobra.Command{
		Use:   "update <subject>/<repository>",
		Short: "Update the attributes of a repository",
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
			if err := repo.Get(cmd.Context()); err != nil {
				return err
			}

			if cmd.Flags().Changed("desc") {
				repo.Desc = desc
			}
			if cmd.Flags().Changed("label") {
				repo.Labels = labels
			}
			if cmd.Flags().Changed("business-unit") {
				repo.BusinessUnit = businessUnit
			}

			return repo.Update(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&desc, "desc", "", "Repository description")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "Repository label (repeatable)")
	cmd.Flags().StringVar(&businessUnit, "business-unit", "", "Business unit")

	return cmd
}

func newRepoDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <subject>/<repository>",
		Short: "Delete a repository",
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

			return client.Subject(ref.Subject).Repository(ref.Repository).Delete(cmd.Context())
		},
	}
}
