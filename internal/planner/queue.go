package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// defaultSubmitPriority places unprioritized submissions in the normal
// rate tier.
const defaultSubmitPriority = 5

// submission is one queued plan request.
type submission struct {
	planID types.ID
	req    PlanRequest
}

var errServiceClosed = types.NewError(types.SERVICE_CLOSED, "planning service is closed")

// Submit enqueues a plan request for asynchronous creation and returns
// the id the plan will be created under. Submissions are rejected with
// QUEUE_FULL rather than blocking when the queue is at capacity, with
// VALIDATION_FAILED for rate-limited or duplicate requests, and with
// SERVICE_CLOSED after Close.
func (s *Service) Submit(req PlanRequest) (types.ID, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if s.isClosed() {
		return "", errServiceClosed
	}

	priority := req.Priority
	if priority <= 0 {
		priority = defaultSubmitPriority
	}
	if s.limiter != nil && !s.limiter.Allow(req.TenantID, priority) {
		return "", types.NewRetryableError(types.VALIDATION_FAILED,
			fmt.Sprintf("tenant %s is rate limited", req.TenantID))
	}
	if s.deduper != nil && s.deduper.Seen(submissionFingerprint(req)) {
		return "", types.NewError(types.VALIDATION_FAILED, "duplicate plan request suppressed")
	}

	planID := req.planID()
	select {
	case s.queue <- submission{planID: planID, req: req}:
		return planID, nil
	default:
		return "", types.NewRetryableError(types.QUEUE_FULL,
			fmt.Sprintf("submission queue is full (capacity %d)", cap(s.queue)))
	}
}

func (s *Service) startWorkers() {
	s.wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func(worker int) {
			defer s.wg.Done()
			for sub := range s.queue {
				if _, err := s.createPlan(context.Background(), sub.planID, sub.req); err != nil {
					s.logger.Error("queued plan creation failed",
						"worker", worker,
						"plan_id", sub.planID.String(),
						"error", err)
				}
			}
		}(i)
	}
}

// Close stops accepting submissions, drains the queue, and waits for
// the workers to finish. It is safe to call once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.queue)
	})
	s.wg.Wait()
}

func (s *Service) isClosed() bool {
	return s.closed.Load()
}

// Health is a point-in-time snapshot of the planning pipeline.
type Health struct {
	Status        string `json:"status"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Workers       int    `json:"workers"`
}

// Health reports the pipeline state. Status is "ok" while accepting
// submissions and "closed" after Close.
func (s *Service) Health() Health {
	status := "ok"
	if s.isClosed() {
		status = "closed"
	}
	return Health{
		Status:        status,
		QueueDepth:    len(s.queue),
		QueueCapacity: cap(s.queue),
		Workers:       s.workers,
	}
}

// submissionFingerprint canonicalizes the request fields that identify
// a duplicate: the same tenant asking for the same objective and plan
// type.
func submissionFingerprint(req PlanRequest) []byte {
	payload, _ := json.Marshal(map[string]string{
		"tenant_id": req.TenantID,
		"app_id":    req.AppID,
		"objective": req.Objective,
		"plan_type": req.PlanType,
	})
	return payload
}
