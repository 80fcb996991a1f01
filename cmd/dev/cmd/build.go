package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const (
	binary  = "dist/toolpanel"
	mainPkg = "./cmd/toolpanel"
)

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the toolpanel cli",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			goos, _ := flags.GetString("os")
			arch, _ := flags.GetString("arch")
			version, _ := flags.GetString("version")
			crossOs, _ := flags.GetString("cross-os")
			crossArch, _ := flags.GetString("cross-arch")

			if goos != runtime.GOOS || arch != runtime.GOARCH {
				noCache, err := flags.GetBool("no-cache")
				if err != nil {
					return fmt.Errorf("could not get no-cache flag: %w", err)
				}
				slog.Info("building in docker", "os", goos, "arch", arch)
				return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", goos, arch),
					[]string{"build", "--version", version, "--cross-os", goos, "--cross-arch", arch},
					build.DockerBuildOpts{NoCache: noCache, Image: "gophertribe/gobuild:1.25-bookworm"})
			}
			if crossOs != "" && crossArch != "" {
				goos, arch = crossOs, crossArch
			}
			slog.Info("building", "binary", binary, "os", goos, "arch", arch, "version", version)
			// hid and the periph host drivers need cgo
			return build.GoBuild(binary, mainPkg, build.GoBuildOpts{
				Version:       version,
				InjectVersion: true,
				ConfigPackage: "main",
				EnableCgo:     true,
				Arch:          arch,
				OS:            goos,
			})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use cache when building in docker")
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("os", runtime.GOOS, "os to build for")
	cmd.Flags().String("arch", runtime.GOARCH, "arch to build for")
	cmd.Flags().String("cross-os", "", "os to cross-compile for")
	cmd.Flags().String("cross-arch", "", "arch to cross-compile for")
	return cmd
}
