package cli

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rabbitmq/bintray-go"
	"github.com/rabbitmq/bintray-go/internal/pkgfile"
	"github.com/rabbitmq/bintray-go/internal/specfile"
	"github.com/rabbitmq/bintray-go/internal/verify"
)

// NewUploadCmd creates the file upload command
func NewUploadCmd() *cobra.Command {
	var (
		publish       bool
		override      bool
		explode       bool
		remoteDir     string
		specPath      string
		distributions []string
		components    []string
		architectures []string
		parallel      int
		waitFor       time.Duration
		waitIndexed   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload <subject>/<repository>/<package>@<version> <file>...",
		Short: "Upload files to a version",
		Long: `Upload one or more local files to a package version.

With --spec, the package and version elements of the resource argument
may be omitted: they are derived from the Name and Version tags of the
given RPM spec file.

Files are uploaded in parallel, with their SHA-256 checksum attached
so the registry can reject corrupted transfers.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth := 4
			if specPath != "" {
				depth = 2
			}
			ref, err := parseResource(args[0], depth)
			if err != nil {
				return err
			}

			if specPath != "" {
				spec, err := specfile.ParseFile(specPath)
				if err != nil {
					return err
				}
				if ref.Package == "" {
					ref.Package = spec.Name
				}
				if ref.Version == "" {
					ref.Version = spec.Version
				}
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			version := client.Subject(ref.Subject).
				Repository(ref.Repository).
				Package(ref.Package).
				Version(ref.Version)

			// Resolve the repository type once instead of once per
			// uploaded file.
			repo := client.Subject(ref.Subject).Repository(ref.Repository)
			if err := repo.Get(cmd.Context()); err != nil {
				return err
			}

			group, ctx := errgroup.WithContext(cmd.Context())
			group.SetLimit(parallel)

			for _, filename := range args[1:] {
				filename := filename
				group.Go(func() error {
					remotePath, err := remotePathFor(filename, remoteDir)
					if err != nil {
						return err
					}

					content := version.File(remotePath).
						SetRepositoryType(repo.Type).
						PublishFlag(publish).
						OverrideFlag(override)
					if explode {
						content.ExplodeFlag(true)
					}
					if repo.Type == bintray.TypeDebian {
						content.DebianDistributions(distributions...)
						content.DebianComponents(components...)
						content.DebianArchitectures(architectures...)
					}

					if _, err := content.ChecksumFromFile(filename); err != nil {
						return err
					}

					logrus.Infof("Uploading %s to %s", filename, content)
					if err := content.UploadFile(ctx, filename); err != nil {
						return err
					}

					if waitFor > 0 {
						if err := content.WaitForAvailability(ctx, waitFor); err != nil {
							return err
						}
					}
					if waitIndexed > 0 {
						if err := content.WaitForIndexation(ctx, waitIndexed); err != nil {
							return err
						}
					}
					return nil
				})
			}

			return group.Wait()
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "Publish the files immediately")
	cmd.Flags().BoolVar(&override, "override", false, "Replace already uploaded files")
	cmd.Flags().BoolVar(&explode, "explode", false, "Explode the uploaded archive remotely")
	cmd.Flags().StringVar(&remoteDir, "remote-dir", "", "Remote directory to upload into")
	cmd.Flags().StringVar(&specPath, "spec", "", "Derive package and version from an RPM spec file")
	cmd.Flags().StringSliceVar(&distributions, "distribution", nil, "Debian distribution to index under (repeatable)")
	cmd.Flags().StringSliceVar(&components, "component", nil, "Debian component to index under (repeatable)")
	cmd.Flags().StringSliceVar(&architectures, "architecture", nil, "Debian architecture to index under (repeatable)")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "Number of parallel uploads")
	cmd.Flags().DurationVar(&waitFor, "wait", 0, "Wait up to this long for the files to be downloadable")
	cmd.Flags().DurationVar(&waitIndexed, "wait-indexation", 0, "Wait up to this long for the files to be indexed")

	return cmd
}

// remotePathFor derives the remote path of an upload. RPM files keep
// their canonical filename so YUM indexation checks can match them.
func remotePathFor(filename, remoteDir string) (string, error) {
	name := filepath.Base(filename)

	typ, err := pkgfile.Detect(filename)
	if err != nil {
		return "", err
	}
	if typ == pkgfile.TypeRpm {
		if info, err := pkgfile.ReadRPM(filename); err == nil {
			name = info.Filename()
		}
	}

	return path.Join(remoteDir, name), nil
}

// NewDownloadCmd creates the file download command
func NewDownloadCmd() *cobra.Command {
	var (
		output  string
		keyPath string
	)

	cmd := &cobra.Command{
		Use:   "download <subject>/<repository> <path>",
		Short: "Download a file from a repository",
		Long: `Download a file from the download endpoint of a repository.

With --verify-key, the armored detached signature next to the file
(<path>.asc) is downloaded as well and checked against the given
public key before the command succeeds.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 2)
			if err != nil {
				return err
			}
			remotePath := args[1]

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			if output == "" {
				output = path.Base(remotePath)
			}

			content := client.Subject(ref.Subject).
				Repository(ref.Repository).
				Package("").
				Version("").
				File(remotePath)

			n, err := content.DownloadFile(cmd.Context(), output)
			if err != nil {
				return err
			}
			logrus.Infof("Downloaded %s (%d bytes)", output, n)

			if keyPath == "" {
				return nil
			}

			keyring, err := verify.KeyringFile(keyPath)
			if err != nil {
				return err
			}

			signaturePath := output + ".asc"
			signature := client.Subject(ref.Subject).
				Repository(ref.Repository).
				Package("").
				Version("").
				File(remotePath + ".asc")
			if _, err := signature.DownloadFile(cmd.Context(), signaturePath); err != nil {
				return err
			}

			if err := verify.DetachedFile(keyring, output, signaturePath); err != nil {
				// Do not leave an artifact around that failed
				// verification.
				os.Remove(output)
				os.Remove(signaturePath)
				return err
			}

			logrus.Infof("Verified signature of %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Local file to write to (defaults to the remote filename)")
	cmd.Flags().StringVar(&keyPath, "verify-key", "", "Public key to verify the detached signature with")

	return cmd
}

// NewDeleteFileCmd creates the file deletion command
func NewDeleteFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-file <subject>/<repository> <path>",
		Short: "Delete a published file from a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseResource(args[0], 2)
			if err != nil {
				return err
			}

			client, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}

			content := client.Subject(ref.Subject).
				Repository(ref.Repository).
				Package("").
				Version("").
				File(args[1])
			if err := content.Delete(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s/%s\n", ref.Subject, ref.Repository, args[1])
			return nil
		},
	}
}
