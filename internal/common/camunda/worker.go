// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"coachme-notifier/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler handles one activated job and is responsible for completing or
// failing it.
type JobHandler func(client worker.JobClient, job entities.Job)

type WorkerConfig struct {
	JobType       string
	MaxJobsActive int
	Timeout       time.Duration // job activation timeout
}

type Worker struct {
	worker  worker.JobWorker
	logger  logger.Logger
	jobType string
}

// NewWorker opens a job worker polling cfg.JobType.
func NewWorker(client zbc.Client, cfg WorkerConfig, handler JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"jobType": cfg.JobType})

	step := client.NewJobWorker().
		JobType(cfg.JobType).
		Handler(func(c worker.JobClient, job entities.Job) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("job handler panicked", map[string]interface{}{
						"jobKey": job.Key,
						"panic":  r,
					})
				}
			}()
			handler(c, job)
		}).
		MaxJobsActive(maxInt(cfg.MaxJobsActive, 1))
	if cfg.Timeout > 0 {
		step = step.Timeout(cfg.Timeout)
	}

	log.Info("worker started", nil)
	return &Worker{
		worker:  step.Open(),
		logger:  log,
		jobType: cfg.JobType,
	}
}

// Stop closes the job worker and waits for in-flight jobs to finish. The
// underlying client is left open.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
