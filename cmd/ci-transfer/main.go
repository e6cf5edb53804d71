package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/corkine/cloud-native-tools/internal/command"
	"github.com/corkine/cloud-native-tools/internal/config"
	"github.com/corkine/cloud-native-tools/internal/job"
	"github.com/corkine/cloud-native-tools/internal/logging"
	"github.com/corkine/cloud-native-tools/internal/progress"
	"github.com/corkine/cloud-native-tools/internal/sshtransport"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	sources        []string
	destination    string
	ossDestination string
	preCommands    []string
	commands       []string
	port           int
	excludes       []string
	limitRate      string
	knownHosts     string
	shell          string
	quiet          bool
	debug          bool
	dryRun         bool
	planJSONFile   string
	resultJSONFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ci-transfer",
		Short: "Upload build artifacts over SSH and/or to object storage",
		Long: `ci-transfer copies files and directories to a remote host over SSH, to an
S3 compatible bucket, or both, and runs commands on the remote host before
and after the transfer. Destinations, configs and commands may be base64
encoded.`,
		Version:      fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := rootCmd.Flags()
	flags.StringArrayVarP(&sources, "source", "s", nil, "Source file or directory (multiple allowed, may be empty for command-only runs)")
	flags.StringVarP(&destination, "destination", "d", "", "SSH destination user:pass@host[:port]:/path, or base64 of it (env "+config.EnvDestination+")")
	flags.StringVarP(&ossDestination, "oss-destination", "o", "", "Object storage destination as JSON, or base64 of it (env "+config.EnvOSSDestination+")")
	flags.StringArrayVar(&preCommands, "precommands", nil, "Remote commands to run before the transfer (multiple allowed, base64 accepted)")
	flags.StringArrayVarP(&commands, "commands", "c", nil, "Remote commands to run after the transfer (multiple allowed, base64 accepted)")
	flags.IntVar(&port, "port", sshtransport.DefaultPort, "SSH port, unless the destination names one")
	flags.StringArrayVar(&excludes, "exclude", nil, "Exclude pattern for directory sources (multiple allowed)")
	flags.StringVar(&limitRate, "limit-rate", "", "Upload bandwidth cap per second, e.g. 10MiB")
	flags.StringVar(&knownHosts, "known-hosts", "", "known_hosts file used to verify the SSH host key")
	flags.StringVar(&shell, "shell", command.DefaultShell, "Remote shell that interprets commands")
	flags.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	flags.BoolVar(&debug, "debug", false, "Verbose logging")
	flags.BoolVar(&dryRun, "dryrun", false, "Shows operations without executing")
	flags.StringVar(&planJSONFile, "plan-json-file", "", "Path to output plan as JSON file")
	flags.StringVar(&resultJSONFile, "result-json-file", "", "Path to output result as JSON file")

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

	rate, err := parseRate(limitRate)
	if err != nil {
		return err
	}

	req := job.TransferRequest{
		Sources:        sources,
		Excludes:       excludes,
		SSHDestination: config.FromEnv(destination, config.EnvDestination),
		OSSDestination: config.FromEnv(ossDestination, config.EnvOSSDestination),
		Port:           port,
		KnownHostsFile: knownHosts,
		PreCommands:    preCommands,
		Commands:       commands,
		Shell:          shell,
		RateLimit:      rate,
		DryRun:         dryRun,
	}

	report, err := job.NewTransfer(log, pr).Run(context.Background(), req)

	if planJSONFile != "" {
		if werr := job.WriteJSON(planJSONFile, report.PlanOutput()); werr != nil {
			return fmt.Errorf("failed to write plan JSON: %w", werr)
		}
	}
	if resultJSONFile != "" && !dryRun {
		if werr := job.WriteJSON(resultJSONFile, report); werr != nil {
			return fmt.Errorf("failed to write result JSON: %w", werr)
		}
	}

	if errors.Is(err, job.ErrNoDestination) {
		return fmt.Errorf("%w\nuse user:pass@host:/path for an SSH destination, JSON like\n%s\nfor object storage, or base64 of either", err, config.ExampleOSSConfig)
	}
	return err
}

func parseRate(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --limit-rate %q: %w", s, err)
	}
	return int64(n), nil
}
