// Package inmemory is a fake JobOperations for tests.
package inmemory

import (
	"context"
	"sync"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/jobops"
	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

type JobOps struct {
	mu        sync.Mutex
	tasks     map[models.JobId][]models.RunningTask
	jobExists map[models.JobId]bool
	taskErrs  map[models.JobId][]error // consumed in order, then falls back to tasks
	gates     map[models.JobId]chan struct{}
}

func New() *JobOps {
	return &JobOps{
		tasks:     make(map[models.JobId][]models.RunningTask),
		jobExists: make(map[models.JobId]bool),
		taskErrs:  make(map[models.JobId][]error),
		gates:     make(map[models.JobId]chan struct{}),
	}
}

// Block makes the next GetTasks call for jobId wait until the returned
// release function is called, simulating a slow in-flight collaborator
// call for tests exercising the Loop Driver's tick deadline.
func (j *JobOps) Block(jobId models.JobId) (release func()) {
	j.mu.Lock()
	gate := make(chan struct{})
	j.gates[jobId] = gate
	j.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// SetTasks configures jobId as existing with the given running tasks.
func (j *JobOps) SetTasks(jobId models.JobId, tasks []models.RunningTask) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tasks[jobId] = tasks
	j.jobExists[jobId] = true
}

// SetJobMissing configures jobId as not existing: GetTasks returns
// ErrJobNotFound and GetJob returns false.
func (j *JobOps) SetJobMissing(jobId models.JobId) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobExists[jobId] = false
	delete(j.tasks, jobId)
}

// QueueTransientError makes the next GetTasks call for jobId return err
// instead of the configured tasks, once.
func (j *JobOps) QueueTransientError(jobId models.JobId, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.taskErrs[jobId] = append(j.taskErrs[jobId], err)
}

func (j *JobOps) GetTasks(_ context.Context, jobId models.JobId) ([]models.RunningTask, error) {
	j.mu.Lock()
	gate := j.gates[jobId]
	j.mu.Unlock()
	if gate != nil {
		<-gate
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if errs := j.taskErrs[jobId]; len(errs) > 0 {
		err := errs[0]
		j.taskErrs[jobId] = errs[1:]
		return nil, err
	}
	if !j.jobExists[jobId] {
		return nil, jobops.ErrJobNotFound
	}
	return j.tasks[jobId], nil
}

func (j *JobOps) GetJob(_ context.Context, jobId models.JobId) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jobExists[jobId], nil
}

var _ jobops.JobOperations = (*JobOps)(nil)
