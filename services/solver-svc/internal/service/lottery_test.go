package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery/pkg/apperror"
	"lottery/pkg/audit"
	"lottery/pkg/cache"
	"lottery/pkg/domain"
	"lottery/pkg/logger"
	"lottery/pkg/metrics"
	"lottery/services/solver-svc/internal/algorithms"
	"lottery/services/solver-svc/internal/costmodel"
	"lottery/services/solver-svc/internal/loader"
	"lottery/services/solver-svc/internal/network"
	"lottery/services/solver-svc/internal/repository"
)

type fakeRuns struct {
	runs []*repository.Run
	err  error
}

func (f *fakeRuns) Create(_ context.Context, run *repository.Run) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRuns) GetByID(context.Context, string) (*repository.Run, error) {
	return nil, repository.ErrRunNotFound
}

func (f *fakeRuns) List(context.Context, *repository.ListOptions) ([]*repository.Run, int64, error) {
	return f.runs, int64(len(f.runs)), nil
}

func (f *fakeRuns) Statistics(context.Context) (*repository.RunStatistics, error) {
	return &repository.RunStatistics{TotalRuns: len(f.runs)}, nil
}

func (f *fakeRuns) Prune(context.Context, int) (int64, error) { return 0, nil }

type recordingAudit struct {
	entries []*audit.Entry
}

func (r *recordingAudit) Log(_ context.Context, e *audit.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingAudit) Query(context.Context, *audit.QueryFilter) ([]*audit.Entry, error) {
	return r.entries, nil
}

func (r *recordingAudit) Close() error { return nil }

func sampleInput() *loader.Input {
	return &loader.Input{
		Persons: []domain.Person{
			{ID: "1", Tier: domain.TierFemale, Choices: []string{"salsa"}},
			{ID: "2", Tier: domain.TierFemale, Choices: []string{"salsa", "tango"}},
			{ID: "3", Tier: domain.TierBoard, Choices: []string{"salsa"}},
			{ID: "4", NonParticipating: true, Choices: []string{domain.NonParticipatingName}},
		},
		Categories: []domain.Category{
			{Name: "salsa", MaxSize: 1},
			{Name: "tango", MaxSize: 1},
		},
		Seed: 99,
	}
}

func newTestService(t *testing.T, settings Settings, opts ...Option) (*LotteryService, *fakeRuns, *recordingAudit) {
	t.Helper()
	runs := &fakeRuns{}
	trail := &recordingAudit{}

	opts = append([]Option{
		WithRepository(runs),
		WithAudit(trail),
		WithMetrics(metrics.New("test", "solver")),
		WithLogger(logger.Discard()),
	}, opts...)

	return NewLotteryService(settings, opts...), runs, trail
}

func placementIDs(t *testing.T, a domain.Assignment, name string) []string {
	t.Helper()
	p, ok := a.Find(name)
	require.True(t, ok, "placement %s", name)
	ids := make([]string, 0, len(p.Persons))
	for _, person := range p.Persons {
		ids = append(ids, person.ID)
	}
	return ids
}

func TestLotteryService_Run(t *testing.T) {
	svc, runs, trail := newTestService(t, Settings{Policy: costmodel.DefaultPolicy(), Verify: true})

	out, err := svc.Run(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.NotEmpty(t, out.InputHash)
	assert.Equal(t, int64(99), out.Seed)
	assert.False(t, out.Cached)
	assert.Positive(t, out.Augmentations)
	assert.Positive(t, out.Nodes)

	assert.Equal(t, []string{"3"}, placementIDs(t, out.Assignment, "salsa"))
	assert.Equal(t, []string{"2"}, placementIDs(t, out.Assignment, "tango"))
	assert.Equal(t, []string{"4"}, placementIDs(t, out.Assignment, domain.NonParticipatingName))
	assert.Equal(t, []string{"1"}, placementIDs(t, out.Assignment, domain.WithdrawName))

	require.NotNil(t, out.Statistics)
	assert.Equal(t, 1, out.Statistics.Withdrawn)
	assert.Equal(t, 1, out.Statistics.NonParticipating)

	require.Len(t, runs.runs, 1)
	run := runs.runs[0]
	assert.Equal(t, out.RunID, run.ID)
	assert.Equal(t, repository.StatusSucceeded, run.Status)
	assert.Equal(t, 4, run.Persons)
	assert.Equal(t, 2, run.Placed)
	assert.Equal(t, 1, run.Withdrawn)

	require.Len(t, trail.entries, 1)
	entry := trail.entries[0]
	assert.Equal(t, audit.ActionSolve, entry.Action)
	assert.Equal(t, audit.OutcomeSuccess, entry.Outcome)
	assert.Equal(t, ServiceName, entry.Service)
	assert.Equal(t, "solve", entry.Command)
	assert.Equal(t, out.RunID, entry.RunID)
	assert.Equal(t, int64(99), entry.Seed)

	assert.Equal(t, 3, out.Population)
	assert.GreaterOrEqual(t, out.Horizon, out.Population)
	assert.Empty(t, out.Unplaced)
	assert.Equal(t, out.Horizon, entry.Metadata["horizon"])
	assert.NotContains(t, entry.Metadata, "unplaced")
}

func TestLotteryService_Run_UnenrollLimitReached(t *testing.T) {
	svc, _, trail := newTestService(t, Settings{Policy: costmodel.DefaultPolicy(), MaxUnenroll: 1})

	in := &loader.Input{
		Persons: []domain.Person{
			{ID: "1", Tier: domain.TierFemale, Choices: []string{"salsa"}},
			{ID: "2", Tier: domain.TierFemale, Choices: []string{"salsa"}},
			{ID: "3", Tier: domain.TierFemale, Choices: []string{"salsa"}},
		},
		Categories: []domain.Category{{Name: "salsa", MaxSize: 1}},
	}

	out, err := svc.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Len(t, placementIDs(t, out.Assignment, "salsa"), 1)
	assert.Len(t, placementIDs(t, out.Assignment, domain.WithdrawName), 1)
	require.Len(t, out.Unplaced, 1)

	require.Len(t, trail.entries, 1)
	assert.Equal(t, []string{out.Unplaced[0].ID}, trail.entries[0].Metadata["unplaced"])
}

func TestLotteryService_Run_Cached(t *testing.T) {
	mem := cache.NewMemoryCache(nil)
	defer mem.Close()
	ac := cache.NewAssignmentCache(mem, time.Hour)

	svc, runs, trail := newTestService(t, Settings{Policy: costmodel.DefaultPolicy()}, WithCache(ac))
	ctx := context.Background()

	first, err := svc.Run(ctx, sampleInput())
	require.NoError(t, err)
	second, err := svc.Run(ctx, sampleInput())
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.InputHash, second.InputHash)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Assignment, second.Assignment)
	assert.Equal(t, first.TotalCost, second.TotalCost)
	assert.Equal(t, first.Augmentations, second.Augmentations)

	require.Len(t, runs.runs, 2)
	assert.Equal(t, repository.StatusCached, runs.runs[1].Status)
	assert.Equal(t, audit.OutcomeCached, trail.entries[1].Outcome)
}

func TestLotteryService_Run_PolicyChangesHash(t *testing.T) {
	svc, _, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy()})

	p := costmodel.DefaultPolicy()
	p.SourceStep = 24
	other, _, _ := newTestService(t, Settings{Policy: p})

	capped, _, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy(), MaxUnenroll: 1})

	in := sampleInput()
	assert.NotEqual(t, svc.inputHash(in), other.inputHash(in))
	assert.NotEqual(t, svc.inputHash(in), capped.inputHash(in))
}

func TestLotteryService_Run_StaleCacheEntry(t *testing.T) {
	mem := cache.NewMemoryCache(nil)
	defer mem.Close()
	ac := cache.NewAssignmentCache(mem, time.Hour)
	ctx := context.Background()

	svc, _, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy()}, WithCache(ac))
	in := sampleInput()

	// запись под тем же ключом ссылается на участника, которого нет во входе
	stale := domain.Assignment{
		{Category: in.Categories[0], Persons: []domain.Person{{ID: "ghost"}}},
	}
	require.NoError(t, ac.Set(ctx, svc.inputHash(in), stale, 1, 1))

	out, err := svc.Run(ctx, in)
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, []string{"3"}, placementIDs(t, out.Assignment, "salsa"))
}

func TestLotteryService_Run_DecisionLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "decisions.txt")
	svc, _, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy(), DecisionLogPath: path})

	out, err := svc.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, path, out.DecisionLog)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestLotteryService_Run_Progress(t *testing.T) {
	var last algorithms.Progress
	calls := 0

	svc, _, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy()},
		WithProgress(func(p algorithms.Progress) {
			calls++
			last = p
		}))

	out, err := svc.Run(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Positive(t, calls)
	assert.Equal(t, int64(out.Augmentations), last.Done)
}

func TestLotteryService_Run_InvalidPolicy(t *testing.T) {
	p := costmodel.DefaultPolicy()
	p.Ratio = 1

	svc, runs, trail := newTestService(t, Settings{Policy: p})

	_, err := svc.Run(context.Background(), sampleInput())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidPolicy, apperror.Code(err))
	assert.Equal(t, apperror.ExitPolicy, apperror.ExitCode(err))

	require.Len(t, runs.runs, 1)
	assert.Equal(t, repository.StatusFailed, runs.runs[0].Status)
	assert.Equal(t, string(apperror.CodeInvalidPolicy), runs.runs[0].ErrorCode)

	require.Len(t, trail.entries, 1)
	assert.Equal(t, audit.OutcomeFailure, trail.entries[0].Outcome)
	assert.Equal(t, string(apperror.CodeInvalidPolicy), trail.entries[0].ErrorCode)
}

func TestLotteryService_Run_UnknownChoice(t *testing.T) {
	svc, _, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy()})

	in := sampleInput()
	in.Persons[0].Choices = []string{"bachata"}

	_, err := svc.Run(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, apperror.ExitInput, apperror.ExitCode(err))
}

func TestLotteryService_Run_NilInput(t *testing.T) {
	svc, runs, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy()})

	_, err := svc.Run(context.Background(), nil)
	assert.Equal(t, apperror.CodeNilInput, apperror.Code(err))
	assert.Empty(t, runs.runs)
}

func TestLotteryService_Run_RepositoryFailureIsNotFatal(t *testing.T) {
	svc, runs, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy()})
	runs.err = errors.New("connection refused")

	_, err := svc.Run(context.Background(), sampleInput())
	assert.NoError(t, err)
}

func TestLotteryService_Fail_WritesDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dump.bin")
	svc, runs, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy(), DumpPath: path})

	net, err := network.New(4)
	require.NoError(t, err)
	net.AddEdge(0, 1, 3, 1)

	fatal := network.NewFatal(apperror.CodeNegativeCycle, "negative cost cycle through node 1", net)
	out := &Outcome{RunID: "run-1", Seed: 1}

	err = svc.fail(context.Background(), sampleInput(), out, fatal, logger.Discard())
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, path, fatal.Err.Details["dump"])
	assert.Equal(t, apperror.ExitInternal, apperror.ExitCode(err))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	snap, err := network.ReadSnapshot(f)
	require.NoError(t, err)
	restored, err := network.FromSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, int64(3), restored.Cost(0, 1))

	require.Len(t, runs.runs, 1)
	assert.Equal(t, string(apperror.CodeNegativeCycle), runs.runs[0].ErrorCode)
}

func TestLotteryService_Fail_NoDumpPath(t *testing.T) {
	svc, _, _ := newTestService(t, Settings{Policy: costmodel.DefaultPolicy()})

	net, err := network.New(3)
	require.NoError(t, err)
	fatal := network.NewFatal(apperror.CodeConservationViolation, "flow lost at node 1", net)

	err = svc.fail(context.Background(), sampleInput(), &Outcome{RunID: "run-1"}, fatal, logger.Discard())
	require.Error(t, err)
	assert.NotContains(t, fatal.Err.Details, "dump")
}
