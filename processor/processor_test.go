package processor

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"drivefetch/logging"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorMain_DownloadsIntoOutputFolder(t *testing.T) {
	drive := sampleDrive()
	fs := afero.NewMemMapFs()
	var logs bytes.Buffer
	p := NewProcessor(&Dependencies{DriveClient: drive, Fs: fs, Logger: logging.New(&logs, false)})

	summary, err := p.Main(context.Background(), Config{
		FolderID:     "root",
		OutputFolder: "backup",
		Options:      Options{Recursive: true, VerifyChecksum: true},
	})
	require.NoError(t, err)
	assert.True(t, summary.OK())
	assert.Equal(t, "raw", readFile(t, fs, "backup/Photos/Raw/b.raw"))
	assert.Contains(t, logs.String(), "Download completed!")
	assert.Contains(t, logs.String(), "Can't check file-integrity")
}

func TestProcessorMain_DefaultsOutputFolderToID(t *testing.T) {
	drive := sampleDrive()
	fs := afero.NewMemMapFs()
	p := NewProcessor(&Dependencies{DriveClient: drive, Fs: fs})

	_, err := p.Main(context.Background(), Config{FolderID: "root", Options: Options{Recursive: true}})
	require.NoError(t, err)
	assert.Equal(t, "hello", readFile(t, fs, "root/readme.txt"))
}

func TestProcessorMain_DryRunReport(t *testing.T) {
	drive := sampleDrive()
	fs := afero.NewMemMapFs()
	var logs bytes.Buffer
	p := NewProcessor(&Dependencies{DriveClient: drive, Fs: fs, Logger: logging.New(&logs, false)})

	summary, err := p.Main(context.Background(), Config{
		FolderID:     "root",
		OutputFolder: "out",
		Options:      Options{Recursive: false, DryRun: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, CollectDryRun(summary.Outcomes).Count())
	assert.Contains(t, logs.String(), "Would've downloaded 2 file(s):")
	assert.Contains(t, logs.String(), "[readme.txt, notes]")
	assert.Zero(t, drive.totalOpens())
}

func TestProcessorMain_EmptyDryRun(t *testing.T) {
	drive := newFakeDrive().folder("root")
	var logs bytes.Buffer
	p := NewProcessor(&Dependencies{DriveClient: drive, Fs: afero.NewMemMapFs(), Logger: logging.New(&logs, false)})

	summary, err := p.Main(context.Background(), Config{FolderID: "root", Options: Options{DryRun: true}})
	require.NoError(t, err)
	assert.Zero(t, summary.Total())
	assert.Contains(t, logs.String(), "Nothing to download.")
}

func TestProcessorMain_AuthenticationFailure(t *testing.T) {
	drive := sampleDrive()
	drive.authErr = errors.New("status 404")
	p := NewProcessor(&Dependencies{DriveClient: drive, Fs: afero.NewMemMapFs()})

	summary, err := p.Main(context.Background(), Config{FolderID: "root"})
	assert.Nil(t, summary)
	assert.True(t, IsResolutionError(err))
	assert.Empty(t, drive.listCalls)
}

func TestProcessorMain_ResolutionFailureWritesNothing(t *testing.T) {
	drive := sampleDrive()
	drive.listErr["raw"] = errRemote
	fs := afero.NewMemMapFs()
	p := NewProcessor(&Dependencies{DriveClient: drive, Fs: fs})

	_, err := p.Main(context.Background(), Config{FolderID: "root", Options: Options{Recursive: true}})
	assert.ErrorIs(t, err, errRemote)
	assert.Zero(t, drive.totalOpens())
	exists, _ := afero.Exists(fs, "root")
	assert.False(t, exists)
}

func TestProcessorMain_RequiresFolderID(t *testing.T) {
	p := NewProcessor(&Dependencies{DriveClient: newFakeDrive(), Fs: afero.NewMemMapFs()})
	_, err := p.Main(context.Background(), Config{})
	assert.Error(t, err)
}

func TestSummary_String(t *testing.T) {
	s := NewSummary([]Outcome{
		{State: StateVerified, Attempts: 1},
		{State: StateSkipped},
		{State: StateTransferFailed, Attempts: 1, Err: &TransferError{Path: "x", Err: errRemote}},
		{State: StateTerminalMismatch, Attempts: 2, Check: CheckMismatch, Err: &IntegrityError{Path: "y"}},
		{State: StateUnverifiable, Attempts: 1, Check: CheckUnknown, Err: ErrIntegrityUnknown},
	})

	assert.Equal(t, "Files processed: 5, downloaded: 2, verified: 1, unverifiable: 1, skipped: 1, checksum mismatches: 1, failed: 1", s.String())
	assert.Len(t, s.Failures(), 2)
	assert.False(t, s.OK())
	assert.Equal(t, "checksum mismatch", StateTerminalMismatch.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestSummary_FailuresIncludeFailedChecks(t *testing.T) {
	hashErr := errors.New("read failed")
	s := NewSummary([]Outcome{
		{State: StateSkipped, Check: CheckFailed, Err: hashErr},
		{State: StateSkipped, Check: CheckMismatch, Err: &IntegrityError{Path: "y"}},
		{State: StateSkipped, Check: CheckMatch},
		{State: StateSkipped, Check: CheckUnknown, Err: ErrIntegrityUnknown},
	})

	failures := s.Failures()
	require.Len(t, failures, 2)
	assert.Same(t, hashErr, failures[0])
}

func TestProcessorMain_LogsFailedFiles(t *testing.T) {
	drive := sampleDrive()
	drive.openErr["readme"] = errRemote
	var logs bytes.Buffer
	p := NewProcessor(&Dependencies{DriveClient: drive, Fs: afero.NewMemMapFs(), Logger: logging.New(&logs, false)})

	summary, err := p.Main(context.Background(), Config{FolderID: "root", OutputFolder: "out", Options: Options{Recursive: true}})
	require.NoError(t, err)
	assert.False(t, summary.OK())
	assert.Contains(t, logs.String(), "File not downloaded")
	assert.Contains(t, logs.String(), "out/readme.txt")
}

func TestCollectDryRun_KeepsOnlyPlanned(t *testing.T) {
	a, b := file("a", "a.txt", "", 1), file("b", "b.txt", "", 1)
	report := CollectDryRun([]Outcome{
		{Entry: &a, State: StatePlanned},
		{Entry: &b, State: StateSkipped},
	})
	assert.Equal(t, 1, report.Count())
	assert.False(t, report.Empty())
	assert.Equal(t, "[a.txt]", report.String())

	assert.True(t, CollectDryRun(nil).Empty())
	assert.Equal(t, "[]", CollectDryRun(nil).String())
}
