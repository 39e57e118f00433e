package batch_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"recproc/internal/batch"
	"recproc/internal/jobs"
	"recproc/internal/logging"
	"recproc/internal/scan"
	"recproc/internal/services"
)

func compressJobs(t *testing.T, names ...string) (string, []jobs.Job) {
	t.Helper()
	src := t.TempDir()
	target := t.TempDir()
	var list []jobs.CompressJob
	for _, name := range names {
		path := filepath.Join(src, name)
		if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
			t.Fatal(err)
		}
		list = append(list, jobs.CompressJob{
			Input:  scan.MediaFile{Path: path, Name: name},
			Output: filepath.Join(target, name),
		})
	}
	return target, jobs.CompressList(list)
}

type fakeTranscoder struct {
	mu    sync.Mutex
	calls []string
	run   func(ctx context.Context, job jobs.Job) batch.Result
}

func (f *fakeTranscoder) Run(ctx context.Context, job jobs.Job) batch.Result {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(job.OutputPath()))
	f.mu.Unlock()
	if f.run != nil {
		return f.run(ctx, job)
	}
	if err := os.WriteFile(job.OutputPath(), []byte("encoded"), 0o644); err != nil {
		return batch.Result{Err: err}
	}
	return batch.Result{Elapsed: time.Millisecond}
}

type memoryRecorder struct {
	outcomes []batch.Outcome
}

func (m *memoryRecorder) RecordOutcome(_ context.Context, o batch.Outcome) error {
	m.outcomes = append(m.outcomes, o)
	return nil
}

func TestRunProcessesAllJobsInOrder(t *testing.T) {
	target, list := compressJobs(t, "1_day1_a.mp4", "2_day1_b.mp4", "3_day1_c.mp4")
	tr := &fakeTranscoder{}
	rec := &memoryRecorder{}

	report, err := batch.Run(context.Background(), list, tr, batch.Options{Phase: "compress", Recorder: rec, Logger: logging.NewNop()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Attempted != 3 || report.Succeeded != 3 || report.Failed != 0 || report.Remaining != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	want := []string{"1_day1_a.mp4", "2_day1_b.mp4", "3_day1_c.mp4"}
	for i, name := range want {
		if tr.calls[i] != name {
			t.Fatalf("calls = %v, want %v", tr.calls, want)
		}
		if _, err := os.Stat(filepath.Join(target, name)); err != nil {
			t.Fatalf("expected output %s: %v", name, err)
		}
	}
	if len(rec.outcomes) != 3 || rec.outcomes[2].Position != 3 || rec.outcomes[0].Phase != "compress" {
		t.Fatalf("unexpected recorded outcomes: %+v", rec.outcomes)
	}
}

func TestRunHonoursMaxCount(t *testing.T) {
	target, list := compressJobs(t, "1_day1_a.mp4", "2_day1_b.mp4", "3_day1_c.mp4")
	tr := &fakeTranscoder{}

	report, err := batch.Run(context.Background(), list, tr, batch.Options{MaxCount: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tr.calls) != 1 || report.Attempted != 1 || report.Planned != 1 {
		t.Fatalf("expected exactly one attempt, calls=%v report=%+v", tr.calls, report)
	}
	if report.Remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d", report.Remaining)
	}
	for _, name := range []string{"2_day1_b.mp4", "3_day1_c.mp4"} {
		if _, err := os.Stat(filepath.Join(target, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s untouched, stat err=%v", name, err)
		}
	}
}

func TestRunFailuresCountTowardMaxCountAndContinue(t *testing.T) {
	target, list := compressJobs(t, "1_day1_a.mp4", "2_day1_b.mp4", "3_day1_c.mp4")
	tr := &fakeTranscoder{}
	tr.run = func(_ context.Context, job jobs.Job) batch.Result {
		if filepath.Base(job.OutputPath()) == "1_day1_a.mp4" {
			_ = os.WriteFile(job.OutputPath(), []byte("half"), 0o644)
			return batch.Result{Diagnostics: []string{"moov atom not found"}, Err: errors.New("exit status 1")}
		}
		_ = os.WriteFile(job.OutputPath(), []byte("ok"), 0o644)
		return batch.Result{}
	}

	report, err := batch.Run(context.Background(), list, tr, batch.Options{MaxCount: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 || report.Succeeded != 1 || report.Attempted != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, err := os.Stat(filepath.Join(target, "1_day1_a.mp4")); !os.IsNotExist(err) {
		t.Fatalf("failed output should be removed, stat err=%v", err)
	}
	failed := report.Outcomes[0]
	if failed.Status != batch.StatusFailed || !errors.Is(failed.Err, services.ErrTranscoderFailure) {
		t.Fatalf("unexpected failed outcome: %+v", failed)
	}
	if len(failed.Diagnostics) != 1 {
		t.Fatalf("expected diagnostics carried, got %v", failed.Diagnostics)
	}
}

func TestRunSkipsOutputsThatAppeared(t *testing.T) {
	target, list := compressJobs(t, "1_day1_a.mp4", "2_day1_b.mp4")
	if err := os.WriteFile(filepath.Join(target, "1_day1_a.mp4"), []byte("from another run"), 0o644); err != nil {
		t.Fatal(err)
	}
	tr := &fakeTranscoder{}

	report, err := batch.Run(context.Background(), list, tr, batch.Options{MaxCount: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Skipped != 1 || report.Attempted != 1 {
		t.Fatalf("skips must not count toward the cap: %+v", report)
	}
	if len(tr.calls) != 1 || tr.calls[0] != "2_day1_b.mp4" {
		t.Fatalf("unexpected calls %v", tr.calls)
	}
	got, _ := os.ReadFile(filepath.Join(target, "1_day1_a.mp4"))
	if string(got) != "from another run" {
		t.Fatalf("existing output modified: %q", got)
	}
}

func TestRunInterruptMidJobRemovesPartialOutput(t *testing.T) {
	target, list := compressJobs(t, "1_day1_a.mp4", "2_day1_b.mp4", "3_day1_c.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &fakeTranscoder{}
	tr.run = func(ctx context.Context, job jobs.Job) batch.Result {
		if filepath.Base(job.OutputPath()) != "2_day1_b.mp4" {
			_ = os.WriteFile(job.OutputPath(), []byte("ok"), 0o644)
			return batch.Result{}
		}
		_ = os.WriteFile(job.OutputPath(), []byte("partial"), 0o644)
		cancel()
		<-ctx.Done()
		return batch.Result{Err: ctx.Err()}
	}
	rec := &memoryRecorder{}

	report, err := batch.Run(ctx, list, tr, batch.Options{Recorder: rec})
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if !report.Interrupted || report.Remaining != 2 || report.Succeeded != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, err := os.Stat(filepath.Join(target, "2_day1_b.mp4")); !os.IsNotExist(err) {
		t.Fatalf("partial output should be removed, stat err=%v", err)
	}
	if got, _ := os.ReadFile(filepath.Join(target, "1_day1_a.mp4")); string(got) != "ok" {
		t.Fatalf("completed output must survive, got %q", got)
	}
	if len(tr.calls) != 2 {
		t.Fatalf("jobs after the interrupted one must not run: %v", tr.calls)
	}
	last := rec.outcomes[len(rec.outcomes)-1]
	if last.Status != batch.StatusInterrupted {
		t.Fatalf("expected interrupted outcome recorded, got %+v", last)
	}
}

// eventHook calls fn for every log record, standing in for a concurrent
// writer that acts at a given point of a job.
type eventHook struct {
	fn func(slog.Record)
}

func (h eventHook) Enabled(context.Context, slog.Level) bool { return true }

func (h eventHook) Handle(_ context.Context, r slog.Record) error {
	h.fn(r)
	return nil
}

func (h eventHook) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h eventHook) WithGroup(string) slog.Handler { return h }

func TestRunFailureKeepsOutputItDidNotCreate(t *testing.T) {
	target, list := compressJobs(t, "1_day1_a.mp4")
	output := filepath.Join(target, "1_day1_a.mp4")

	logger := slog.New(eventHook{fn: func(r slog.Record) {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == logging.FieldEventType && a.Value.String() == "job_started" {
				_ = os.WriteFile(output, []byte("another writer"), 0o644)
				return false
			}
			return true
		})
	}})
	tr := &fakeTranscoder{run: func(context.Context, jobs.Job) batch.Result {
		return batch.Result{Err: errors.New("output file already exists")}
	}}

	report, err := batch.Run(context.Background(), list, tr, batch.Options{Phase: "compress", Logger: logger})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 || report.Outcomes[0].Status != batch.StatusFailed {
		t.Fatalf("expected one failed job, got %+v", report)
	}
	if got, _ := os.ReadFile(output); string(got) != "another writer" {
		t.Fatalf("file written by someone else must survive, got %q", got)
	}
}

func TestRunCancelledBeforeStartRunsNothing(t *testing.T) {
	_, list := compressJobs(t, "1_day1_a.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := &fakeTranscoder{}

	report, err := batch.Run(ctx, list, tr, batch.Options{})
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if len(tr.calls) != 0 || report.Remaining != 1 {
		t.Fatalf("expected no calls, got %v report=%+v", tr.calls, report)
	}
}

func TestRunWatchdogCountsAsFailure(t *testing.T) {
	target, list := compressJobs(t, "1_day1_a.mp4", "2_day1_b.mp4")
	tr := &fakeTranscoder{}
	tr.run = func(ctx context.Context, job jobs.Job) batch.Result {
		if filepath.Base(job.OutputPath()) == "1_day1_a.mp4" {
			_ = os.WriteFile(job.OutputPath(), []byte("stuck"), 0o644)
			<-ctx.Done()
			return batch.Result{Err: ctx.Err()}
		}
		_ = os.WriteFile(job.OutputPath(), []byte("ok"), 0o644)
		return batch.Result{}
	}

	report, err := batch.Run(context.Background(), list, tr, batch.Options{JobTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("watchdog must not interrupt the batch: %v", err)
	}
	if report.Failed != 1 || report.Succeeded != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, err := os.Stat(filepath.Join(target, "1_day1_a.mp4")); !os.IsNotExist(err) {
		t.Fatalf("timed out output should be removed, stat err=%v", err)
	}
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(context.Context, jobs.Job) error {
	return errors.New("duration mismatch")
}

func TestRunVerifierMismatchKeepsOutput(t *testing.T) {
	target, list := compressJobs(t, "1_day1_a.mp4")
	report, err := batch.Run(context.Background(), list, &fakeTranscoder{}, batch.Options{Verifier: rejectingVerifier{}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Succeeded != 1 || report.Outcomes[0].VerifyErr == nil {
		t.Fatalf("expected success with verify error, got %+v", report)
	}
	if _, err := os.Stat(filepath.Join(target, "1_day1_a.mp4")); err != nil {
		t.Fatalf("output should be kept: %v", err)
	}
}

func TestRunRequiresTranscoder(t *testing.T) {
	if _, err := batch.Run(context.Background(), nil, nil, batch.Options{}); err == nil {
		t.Fatal("expected error without transcoder")
	}
}

func TestTranscoderFunc(t *testing.T) {
	called := false
	tr := batch.TranscoderFunc(func(context.Context, jobs.Job) batch.Result {
		called = true
		return batch.Result{}
	})
	tr.Run(context.Background(), jobs.CompressJob{})
	if !called {
		t.Fatal("expected function to be invoked")
	}
}
