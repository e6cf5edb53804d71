package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corkine/cloud-native-tools/internal/config"
	"github.com/corkine/cloud-native-tools/internal/job"
	"github.com/corkine/cloud-native-tools/internal/logging"
	"github.com/corkine/cloud-native-tools/internal/progress"
	"github.com/corkine/cloud-native-tools/internal/xerr"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	ossConfig string
	file      string
	unzip     bool
	output    string
	cache     bool
	quiet     bool
	debug     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oss-res",
		Short: "Download a build artifact from object storage",
		Long: `oss-res downloads one object from an S3 compatible bucket. With --cache an
existing local copy whose MD5 matches the <file>.md5 object next to it is kept.
With --unzip the archive is extracted into the output directory.`,
		Version:      fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&ossConfig, "oss-config", "", "Storage config: base64 JSON, path to a JSON file, or JSON (env "+config.EnvOSSResConfig+")")
	flags.StringVarP(&file, "file", "f", "", "Object key to download")
	flags.BoolVarP(&unzip, "unzip", "u", false, "Extract the downloaded zip archive")
	flags.StringVarP(&output, "output", "o", ".", "Output directory")
	flags.BoolVar(&cache, "cache", false, "Skip the download when the local copy matches the .md5 sidecar")
	flags.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	flags.BoolVar(&debug, "debug", false, "Verbose logging")
	rootCmd.MarkFlagRequired("file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()

	live := !quiet && progress.IsTerminal()
	log := logging.New(logging.Options{Quiet: quiet, Debug: debug, ForceColors: live})
	pr := progress.New(log, live)
	pr.Start()
	defer pr.Stop()

	_, err := job.NewDownload(log, pr).Run(context.Background(), job.DownloadRequest{
		Config:    config.FromEnv(ossConfig, config.EnvOSSResConfig),
		Key:       file,
		OutputDir: output,
		Unzip:     unzip,
		Cache:     cache,
	})
	if xerr.Is(err, xerr.KindConfigFormat) {
		return fmt.Errorf("%w\nput base64 of JSON like\n%s\nor the path of a file holding it", err, config.ExampleOSSConfig)
	}
	return err
}
