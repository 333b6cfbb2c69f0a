package processor

import (
	"context"
	"errors"

	"drivefetch/logging"
	"drivefetch/progress"

	"github.com/spf13/afero"
)

type driveClient interface {
	catalogClient
	streamClient
	Authenticate(ctx context.Context, folderID string) error
}

// Processor downloads a shared folder: authenticate, resolve, materialize
type Processor struct {
	driveClient driveClient
	resolver    *Resolver
	downloader  *Downloader
	log         *logging.Logger
}

// Dependencies configuration for creating a processor
type Dependencies struct {
	DriveClient driveClient
	Fs          afero.Fs
	Logger      *logging.Logger
	Progress    progress.Factory
}

// Config holds configuration for one download run
type Config struct {
	FolderID     string
	OutputFolder string
	Options
}

// NewProcessor creates a new instance of the download processor
func NewProcessor(d *Dependencies) *Processor {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	fs := d.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Processor{
		driveClient: d.DriveClient,
		resolver:    NewResolver(d.DriveClient, log),
		downloader:  NewDownloader(d.DriveClient, fs, log, d.Progress),
		log:         log,
	}
}

// Main resolves the shared folder and downloads it.
// Only resolution failures are returned; per-file failures end up in the summary.
func (p *Processor) Main(ctx context.Context, cfg Config) (*Summary, error) {
	if cfg.FolderID == "" {
		return nil, errors.New("no folder id specified")
	}
	if cfg.OutputFolder == "" {
		cfg.OutputFolder = cfg.FolderID
	}

	if err := p.driveClient.Authenticate(ctx, cfg.FolderID); err != nil {
		return nil, &ResolutionError{ID: cfg.FolderID, Err: err}
	}

	p.log.Debugf("GET: JSON for files and folders in the root directory.")
	tree, err := p.resolver.Resolve(ctx, cfg.FolderID, cfg.OutputFolder)
	if err != nil {
		return nil, err
	}

	summary := p.downloader.Materialize(ctx, tree, cfg.Options)

	if cfg.DryRun {
		report := CollectDryRun(summary.Outcomes)
		if !report.Empty() {
			p.log.Infof("Would've downloaded %d file(s):", report.Count())
			p.log.Infof("%s", report)
		} else {
			p.log.Infof("Nothing to download.")
		}
		return summary, nil
	}

	p.log.Infof("Download completed! %s", summary)
	for _, err := range summary.Failures() {
		p.log.Warn().Err(err).Str("folder", cfg.OutputFolder).Msg("File not downloaded")
	}
	return summary, nil
}
