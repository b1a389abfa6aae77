package jobs

import "context"

// Job is a unit of background maintenance work.
type Job interface {
	// Name identifies the job in logs, metrics and manual runs.
	Name() string

	// Schedule is a cron expression; empty means the job only runs on demand.
	Schedule() string

	Execute(ctx context.Context) error
}

// FuncJob adapts a function to Job.
type FuncJob struct {
	name     string
	schedule string
	fn       func(ctx context.Context) error
}

func NewFuncJob(name, schedule string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{name: name, schedule: schedule, fn: fn}
}

func (j *FuncJob) Name() string                      { return j.name }
func (j *FuncJob) Schedule() string                  { return j.schedule }
func (j *FuncJob) Execute(ctx context.Context) error { return j.fn(ctx) }
