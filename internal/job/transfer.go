package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/internal/command"
	"github.com/corkine/cloud-native-tools/internal/config"
	"github.com/corkine/cloud-native-tools/internal/logging"
	"github.com/corkine/cloud-native-tools/internal/progress"
	"github.com/corkine/cloud-native-tools/internal/sshtransport"
	"github.com/corkine/cloud-native-tools/internal/transfer"
	"github.com/corkine/cloud-native-tools/pkg/transport"
)

// ErrNoDestination is returned when there is neither a destination nor a
// command to run.
var ErrNoDestination = errors.New("destination cannot be empty unless precommands or commands are given")

// TransferRequest is one ci-transfer invocation. Destinations are raw
// specifiers and are parsed here so a bad one is reported alongside the
// outcome of the other.
type TransferRequest struct {
	Sources        []string
	Excludes       []string
	SSHDestination string
	OSSDestination string
	// Port is used when the SSH destination does not name one.
	Port           int
	KnownHostsFile string
	PreCommands    []string
	Commands       []string
	Shell          string
	RateLimit      int64
	DryRun         bool
}

// Transfer uploads to object storage and then over SSH.
type Transfer struct {
	log      *logrus.Entry
	progress *progress.Reporter
	dialSSH  SSHDialer
	openOSS  OSSOpener
}

// NewTransfer returns a job using the real transports. pr may be nil.
func NewTransfer(log *logrus.Entry, pr *progress.Reporter) *Transfer {
	return &Transfer{log: log, progress: pr, dialSSH: DialSSH, openOSS: OpenOSS}
}

// Run attempts every configured destination, object storage first. A
// failure at one destination does not prevent the attempt at the other; all
// failures are returned joined.
func (j *Transfer) Run(ctx context.Context, req TransferRequest) (*Report, error) {
	report := &Report{DryRun: req.DryRun}

	if req.OSSDestination == "" && req.SSHDestination == "" {
		if len(req.PreCommands) == 0 && len(req.Commands) == 0 {
			return report, ErrNoDestination
		}
		j.log.Warn("No destination given; commands need an SSH destination and will not run")
		return report, nil
	}

	var errs []error
	if req.OSSDestination != "" {
		target := &Target{Transport: "oss"}
		report.Targets = append(report.Targets, target)
		if err := j.runOSS(ctx, req, target); err != nil {
			target.Error = err.Error()
			errs = append(errs, fmt.Errorf("oss transfer failed: %w", err))
		}
	}
	if req.SSHDestination != "" {
		target := &Target{Transport: "ssh"}
		report.Targets = append(report.Targets, target)
		if err := j.runSSH(ctx, req, target); err != nil {
			target.Error = err.Error()
			errs = append(errs, fmt.Errorf("ssh transfer failed: %w", err))
		}
	}

	return report, errors.Join(errs...)
}

func (j *Transfer) runOSS(ctx context.Context, req TransferRequest, target *Target) error {
	cfg, err := config.ParseOSSDestination(req.OSSDestination)
	if err != nil {
		return fmt.Errorf("invalid oss destination: %w", err)
	}
	target.Destination = cfg.Bucket + ":" + cfg.Path
	log := j.log.WithField("bucket", cfg.Bucket)

	plan, err := buildPlan(req, cfg.Path)
	if err != nil {
		return err
	}
	target.Plan = plan
	if req.DryRun {
		logPlan(log, "oss", plan)
		return nil
	}

	t, err := j.openOSS(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer t.Close()

	stats, err := j.execute(ctx, t, log, req, plan, target)
	if err != nil {
		return err
	}
	logging.PrintSummary(log, logging.Summary{
		Target:   target.Destination,
		Files:    stats.Files,
		Bytes:    stats.Bytes,
		Duration: stats.Duration,
	})
	return nil
}

func (j *Transfer) runSSH(ctx context.Context, req TransferRequest, target *Target) error {
	dest, err := config.ParseSSHDestination(req.SSHDestination)
	if err != nil {
		return fmt.Errorf("invalid destination: %w", err)
	}
	if dest.Port == 0 {
		dest.Port = req.Port
	}
	target.Destination = dest.String()
	log := j.log.WithField("host", dest.Host)

	plan, err := buildPlan(req, dest.Path)
	if err != nil {
		return err
	}
	target.Plan = plan
	if req.DryRun {
		for _, c := range req.PreCommands {
			log.Infof("(dryrun) precommand: %s", c)
		}
		logPlan(log, "ssh", plan)
		for _, c := range req.Commands {
			log.Infof("(dryrun) command: %s", c)
		}
		return nil
	}

	password, err := config.ResolveSecret(dest.Password, dest.User)
	if err != nil {
		return err
	}
	t, err := j.dialSSH(ctx, sshtransport.Options{
		Host:           dest.Host,
		Port:           dest.Port,
		User:           dest.User,
		Password:       password,
		KnownHostsFile: req.KnownHostsFile,
	}, log)
	if err != nil {
		return err
	}
	defer t.Close()
	start := time.Now()

	runner := command.NewRunner(t, req.Shell, log)
	if len(req.PreCommands) > 0 {
		log.Info("Executing pre-transfer commands")
		results, err := runner.RunAll(ctx, req.PreCommands)
		target.addCommands("pre", results)
		if err != nil {
			return err
		}
	}

	if _, err := j.execute(ctx, t, log, req, plan, target); err != nil {
		return err
	}

	if len(req.Commands) > 0 {
		log.Info("Executing post-transfer commands")
		results, err := runner.RunAll(ctx, req.Commands)
		target.addCommands("post", results)
		if err != nil {
			return err
		}
	}

	logging.PrintSummary(log, logging.Summary{
		Target:   target.Destination,
		Files:    target.Files,
		Bytes:    target.Bytes,
		Commands: len(target.Commands),
		Failed:   target.failedCommands(),
		Duration: time.Since(start),
	})
	return nil
}

// execute runs plan through t and records the stats on target.
func (j *Transfer) execute(ctx context.Context, t transport.Transport, log *logrus.Entry, req TransferRequest, plan *transfer.Plan, target *Target) (transfer.Stats, error) {
	engine, err := transfer.NewEngine(t, log, transfer.Options{
		Excludes:  req.Excludes,
		RateLimit: req.RateLimit,
		Progress:  j.progress,
	})
	if err != nil {
		return transfer.Stats{}, err
	}

	var stats transfer.Stats
	if len(req.Sources) == 0 {
		stats, err = engine.Transfer(ctx, nil, plan.Destination)
	} else {
		stats, err = engine.Execute(ctx, plan)
	}
	target.Files, target.Dirs, target.Bytes = stats.Files, stats.Dirs, stats.Bytes
	return stats, err
}

// buildPlan validates every source before any connection is made.
func buildPlan(req TransferRequest, destination string) (*transfer.Plan, error) {
	if len(req.Sources) == 0 {
		return &transfer.Plan{Destination: destination}, nil
	}
	return transfer.BuildPlan(req.Sources, destination, req.Excludes)
}

func logPlan(log *logrus.Entry, name string, plan *transfer.Plan) {
	for _, item := range plan.Items {
		switch item.Action {
		case transfer.ActionMkdir:
			log.Infof("(dryrun) %s mkdir: %s", name, item.RemotePath)
		case transfer.ActionUpload:
			log.WithField("size", item.Size).Infof("(dryrun) %s upload: %s to %s", name, item.LocalPath, item.RemotePath)
		}
	}
}
