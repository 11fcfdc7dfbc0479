package batch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rsc-forge/internal/convert"
	"github.com/rsc-forge/internal/mock"
	"github.com/rsc-forge/internal/repository"
	"github.com/rsc-forge/internal/resource"
	"github.com/rsc-forge/internal/storage"
	"github.com/rsc-forge/internal/testutil"
	"github.com/rsc-forge/pkg/config"
	apperrors "github.com/rsc-forge/pkg/errors"
)

func testConfig() Config {
	return Config{
		InputPrefix:  "dumps/",
		OutputPrefix: "containers/",
		OutputSuffix: ".rsc",
		Workers:      2,
	}
}

// recordingLedger keeps saved records by input key.
type recordingLedger struct {
	mock.MockConversionRepository
	mu      sync.Mutex
	records map[string]*repository.ConversionRecord
}

func newRecordingLedger() *recordingLedger {
	l := &recordingLedger{records: map[string]*repository.ConversionRecord{}}
	l.ExpectAnySave(nil).Run(func(args tmock.Arguments) {
		rec := args.Get(1).(*repository.ConversionRecord)
		l.mu.Lock()
		l.records[rec.InputKey] = rec
		l.mu.Unlock()
	})
	return l
}

func TestConfig_OutputKey(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "containers/a.rsc", cfg.OutputKey("dumps/a.ydr"))
	assert.Equal(t, "containers/sub/b.rsc", cfg.OutputKey("dumps/sub/b.ydr"))
	assert.Equal(t, "containers/noext.rsc", cfg.OutputKey("dumps/noext"))
}

func TestConfigFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Conversion.Generation = "next"

	bc, err := ConfigFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "dumps/", bc.InputPrefix)
	assert.Equal(t, "containers/", bc.OutputPrefix)
	assert.Equal(t, ".rsc", bc.OutputSuffix)
	assert.Equal(t, 4, bc.Workers)
	assert.Equal(t, resource.GenerationNext, bc.Options.Generation)
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "dumps/linked.ydr", testutil.LinkedDump()))
	require.NoError(t, store.Put(ctx, "dumps/root.ydr", testutil.RootOnlyDump()))
	require.NoError(t, store.Put(ctx, "dumps/done.rsc", append([]byte("RSC7"), make([]byte, 60)...)))
	require.NoError(t, store.Put(ctx, "dumps/junk.bin", []byte("tiny")))

	ledger := newRecordingLedger()
	svc := New(convert.New(), store, testConfig(), WithLedger(ledger))

	summary, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Converted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Cancelled)
	assert.Len(t, summary.Files, 4)

	out, err := store.Get(ctx, "containers/linked.rsc")
	require.NoError(t, err)
	container, err := resource.DecodeContainer(out)
	require.NoError(t, err)
	assert.Len(t, container.System, 576)

	exists, err := store.Exists(ctx, "containers/done.rsc")
	require.NoError(t, err)
	assert.False(t, exists, "skipped inputs produce no output")

	require.Len(t, ledger.records, 4)
	linked := ledger.records["dumps/linked.ydr"]
	assert.Equal(t, repository.StatusConverted, linked.Status)
	assert.Equal(t, "heuristic", linked.Tier)
	assert.Equal(t, "containers/linked.rsc", linked.OutputKey)
	assert.Equal(t, "legacy", linked.Generation)
	assert.Equal(t, 1024, linked.InputSize)
	require.Len(t, linked.FailedTiers, 1)
	assert.Contains(t, linked.FailedTiers[0], "structural")

	assert.Equal(t, repository.StatusSkipped, ledger.records["dumps/done.rsc"].Status)

	junk := ledger.records["dumps/junk.bin"]
	assert.Equal(t, repository.StatusFailed, junk.Status)
	assert.Equal(t, apperrors.CodeInputTooSmall, junk.ErrorCode)
	assert.Empty(t, junk.OutputKey)
}

func TestService_RunWithoutLedger(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "dumps/root.ydr", testutil.RootOnlyDump()))

	summary, err := New(convert.New(), store, testConfig()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
}

func TestService_ListError(t *testing.T) {
	store := &mock.MockStorage{}
	store.ExpectList("dumps/", nil, errors.New("bucket gone"))

	summary, err := New(convert.New(), store, testConfig()).Run(context.Background())
	assert.Nil(t, summary)
	assert.Equal(t, apperrors.CodeStorageError, apperrors.GetErrorCode(err))
}

func TestService_GetAndPutErrors(t *testing.T) {
	store := &mock.MockStorage{}
	store.ExpectList("dumps/", []string{"dumps/a.ydr", "dumps/b.ydr"}, nil)
	store.ExpectGet("dumps/a.ydr", nil, apperrors.New(apperrors.CodeNotFound, "gone"))
	store.ExpectGet("dumps/b.ydr", testutil.RootOnlyDump(), nil)
	store.ExpectPut("containers/b.rsc", errors.New("disk full"))

	ledger := newRecordingLedger()
	summary, err := New(convert.New(), store, testConfig(), WithLedger(ledger)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)

	assert.Equal(t, apperrors.CodeNotFound, ledger.records["dumps/a.ydr"].ErrorCode)
	assert.Contains(t, ledger.records["dumps/b.ydr"].ErrorMessage, "disk full")
	store.AssertExpectations(t)
}

func TestService_LedgerErrorDoesNotFailFile(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "dumps/root.ydr", testutil.RootOnlyDump()))

	ledger := &mock.MockConversionRepository{}
	ledger.ExpectAnySave(apperrors.New(apperrors.CodeDatabaseError, "locked"))

	summary, err := New(convert.New(), store, testConfig(), WithLedger(ledger)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
	ledger.AssertNumberOfCalls(t, "SaveRecord", 1)
}

func TestService_Cancelled(t *testing.T) {
	store := &mock.MockStorage{}
	store.ExpectList("dumps/", []string{"dumps/a.ydr", "dumps/b.ydr", "dumps/c.ydr"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger := &mock.MockConversionRepository{}
	summary, err := New(convert.New(), store, testConfig(), WithLedger(ledger)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.Cancelled)
	assert.Empty(t, summary.Files)
	store.AssertNotCalled(t, "Get", tmock.Anything, tmock.Anything)
	ledger.AssertNotCalled(t, "SaveRecord", tmock.Anything, tmock.Anything)
}
