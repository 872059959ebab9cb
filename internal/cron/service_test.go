package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/avermeer/teambase-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	denied   bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.denied {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(success, failure),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d/%d", success.runs, failure.runs)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	job := &testJob{name: "noop"}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(job),
		Lock:     &fakeLock{denied: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run while the lock is held elsewhere, ran %d", job.runs)
	}
}

func TestServiceRunCycleReleasesLock(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(&testJob{name: "noop"}),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if lock.acquired {
		t.Fatal("lock must be released after the cycle")
	}
}
