package cron

import "context"

// Job is one unit of scheduled maintenance work. The worker runs every
// registered job each cycle; jobs decide internally whether there is
// anything to do.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker cycle executes, in registration order.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from the given jobs, skipping nil entries.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends a job. Nil jobs are ignored.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
