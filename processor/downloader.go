package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"drivefetch/logging"
	"drivefetch/models"
	"drivefetch/progress"

	"github.com/spf13/afero"
)

// maxAttempts bounds transfers of one file: the first one plus a single retry on checksum mismatch
const maxAttempts = 2

type streamClient interface {
	OpenStream(ctx context.Context, fileID string) (io.ReadCloser, int64, error)
}

// Options controls how a resolved tree is materialized
type Options struct {
	Force          bool
	Recursive      bool
	VerifyChecksum bool
	Verbose        bool
	DryRun         bool
}

// Downloader writes the files of a resolved tree to a filesystem
type Downloader struct {
	streams     streamClient
	fs          afero.Fs
	log         *logging.Logger
	newProgress progress.Factory
}

// NewDownloader creates a downloader. A nil progress factory disables progress output.
func NewDownloader(streams streamClient, fs afero.Fs, log *logging.Logger, newProgress progress.Factory) *Downloader {
	if log == nil {
		log = logging.Nop()
	}
	if newProgress == nil {
		newProgress = func() progress.Reporter { return progress.NoOp{} }
	}
	return &Downloader{
		streams:     streams,
		fs:          fs,
		log:         log,
		newProgress: newProgress,
	}
}

// Materialize walks the tree depth-first and processes every reachable file.
// Per-file failures are recorded in the summary and never stop the walk.
func (d *Downloader) Materialize(ctx context.Context, tree *models.Tree, opts Options) *Summary {
	var outcomes []Outcome
	for _, entry := range tree.Collection() {
		outcomes = d.visit(ctx, tree, entry, opts, outcomes)
	}
	return NewSummary(outcomes)
}

func (d *Downloader) visit(ctx context.Context, tree *models.Tree, entry *models.Entry, opts Options, outcomes []Outcome) []Outcome {
	switch entry.Kind {
	case models.KindContainer:
		if !opts.Recursive {
			d.log.Debug().Str("folder", entry.Destination()).Msg("Skipping folder (non-recursive mode).")
			return outcomes
		}
		if !opts.DryRun {
			if err := d.ensureDir(entry.Destination(), opts.Verbose); err != nil {
				d.log.Errorf("Failed to create folder %q: %v", entry.Destination(), err)
			}
		}
		for _, child := range tree.ChildEntries(entry) {
			outcomes = d.visit(ctx, tree, child, opts, outcomes)
		}
	case models.KindLeaf:
		outcomes = append(outcomes, d.downloadOne(ctx, entry, opts))
	}
	return outcomes
}

// downloadOne transfers and verifies a single file
func (d *Downloader) downloadOne(ctx context.Context, entry *models.Entry, opts Options) Outcome {
	dest := entry.Destination()
	out := Outcome{Entry: entry, Path: dest}

	exists, err := afero.Exists(d.fs, dest)
	if err != nil {
		d.log.Warn().Err(err).Str("file", dest).Msg("Could not stat file")
	}

	if exists && !opts.Force {
		if opts.Verbose {
			d.log.Warnf("File %q already exists. No need to download it again.", dest)
		}
		out.State = StateSkipped
		if opts.VerifyChecksum {
			out.Check, out.Err = d.verify(entry, dest)
			d.reportCheck(out, opts, false)
		}
		return out
	}

	if opts.DryRun {
		out.State = StatePlanned
		return out
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out.Attempts = attempt + 1
		out.Check = CheckNone
		out.Err = nil

		written, err := d.transfer(ctx, entry, dest, opts.Verbose)
		out.Written = out.Written || written
		if err != nil {
			d.log.Error().Err(err).Str("file", dest).Int("attempt", out.Attempts).Msg("Download failed")
			out.State = StateTransferFailed
			out.Err = err
			return out
		}

		if !opts.VerifyChecksum {
			out.State = StateTransferred
			return out
		}

		out.Check, out.Err = d.verify(entry, dest)
		retry := out.Check == CheckMismatch && opts.Force && attempt+1 < maxAttempts
		d.reportCheck(out, opts, retry)

		switch out.Check {
		case CheckMatch:
			out.State = StateVerified
			return out
		case CheckUnknown:
			out.State = StateUnverifiable
			return out
		case CheckFailed:
			out.State = StateTransferFailed
			return out
		}

		if !retry {
			out.State = StateTerminalMismatch
			return out
		}
		if err := d.fs.Remove(dest); err != nil {
			d.log.Errorf("Failed to remove %q before retrying: %v", dest, err)
			out.State = StateTerminalMismatch
			return out
		}
	}

	out.State = StateTerminalMismatch
	return out
}

// transfer streams the remote content of entry into dest, replacing any existing file.
// A partially written file is left in place when the stream fails; written is
// true once dest has been created.
func (d *Downloader) transfer(ctx context.Context, entry *models.Entry, dest string, verbose bool) (written bool, err error) {
	if err := d.ensureDir(entry.LocalPath, verbose); err != nil {
		return false, &TransferError{Path: dest, Err: fmt.Errorf("create folder: %w", err)}
	}

	d.log.Infof("Started download for file: %q", dest)

	body, length, err := d.streams.OpenStream(ctx, entry.ID)
	if err != nil {
		return false, &TransferError{Path: dest, Err: err}
	}
	defer body.Close()

	if length < 0 && entry.SizeKnown {
		length = entry.Size
	}

	f, err := d.fs.Create(dest)
	if err != nil {
		return false, &TransferError{Path: dest, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &TransferError{Path: dest, Err: cerr}
		}
	}()

	bar := d.newProgress()
	bar.Start(length, entry.Title)
	if _, err := io.Copy(f, progress.NewReader(body, length, bar)); err != nil {
		bar.Abort()
		return true, &TransferError{Path: dest, Err: err}
	}
	bar.Finish()
	return true, nil
}

func (d *Downloader) ensureDir(path string, verbose bool) error {
	exists, err := afero.DirExists(d.fs, path)
	if err != nil {
		return err
	}
	if exists {
		if verbose {
			d.log.Infof("Folder %q already exists. No need to create it.", path)
		}
		return nil
	}
	if err := d.fs.MkdirAll(path, 0o755); err != nil {
		return err
	}
	d.log.Info().Str("folder", path).Msg("Created folder.")
	return nil
}

// verify compares the file on disk with the checksum the remote service declared
func (d *Downloader) verify(entry *models.Entry, path string) (Check, error) {
	if !entry.HasChecksum() {
		return CheckUnknown, ErrIntegrityUnknown
	}

	actual, err := md5File(d.fs, path)
	if err != nil {
		return CheckFailed, fmt.Errorf("hash %q: %w", path, err)
	}

	if !strings.EqualFold(actual, entry.Checksum) {
		return CheckMismatch, &IntegrityError{Path: path, Expected: entry.Checksum, Actual: actual}
	}
	return CheckMatch, nil
}

func (d *Downloader) reportCheck(out Outcome, opts Options, retrying bool) {
	switch out.Check {
	case CheckMatch:
		if opts.Verbose {
			d.log.Infof("The MD5 hash of %q matches the original.", out.Path)
		}
	case CheckUnknown:
		d.log.Warnf("Can't check file-integrity of %q. Google didn't provide an md5 hash.", out.Path)
	case CheckFailed:
		d.log.Errorf("Failed to check file-integrity: %v", out.Err)
	case CheckMismatch:
		var ie *IntegrityError
		if !errors.As(out.Err, &ie) {
			return
		}
		if retrying {
			d.log.Warnf("MD5 checksum for %q does NOT match. Downloading file again...", out.Path)
			return
		}
		d.log.Errorf("%v", ie)
	}
}
