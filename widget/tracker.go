package widget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/fabriqs/paywidget/payment"
)

const DefaultTrackInterval = 5 * time.Second

// Tracker polls a payment intent until it reaches a terminal status.
type Tracker struct {
	provider payment.Provider
	interval time.Duration
	timeout  time.Duration
	log      logrus.FieldLogger
	onStatus func(intentID, status string)

	mu       sync.Mutex
	sched    *gocron.Scheduler
	intentID string
	status   string
}

func NewTracker(provider payment.Provider, interval time.Duration, log logrus.FieldLogger, onStatus func(intentID, status string)) *Tracker {
	if interval <= 0 {
		interval = DefaultTrackInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	// polls never overlap, so a poll may outlive a short interval
	timeout := interval
	if timeout < DefaultTrackInterval {
		timeout = DefaultTrackInterval
	}
	return &Tracker{
		provider: provider,
		interval: interval,
		timeout:  timeout,
		log:      log.WithField("component", "tracker"),
		onStatus: onStatus,
	}
}

// Track starts polling intentID, replacing any earlier tracking.
func (t *Tracker) Track(intentID string) error {
	if intentID == "" {
		return fmt.Errorf("tracker: empty intent id")
	}
	t.Stop()

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(t.interval).Do(t.poll, s, intentID); err != nil {
		return fmt.Errorf("tracker: schedule: %w", err)
	}

	t.mu.Lock()
	t.sched, t.intentID, t.status = s, intentID, ""
	t.mu.Unlock()

	s.StartAsync()
	t.log.WithField("intent", intentID).Info("tracking payment")
	return nil
}

func (t *Tracker) poll(s *gocron.Scheduler, intentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	resp, err := t.provider.GetIntent(ctx, intentID)
	if err != nil {
		t.log.WithError(err).WithField("intent", intentID).Warn("poll payment status")
		return
	}

	t.mu.Lock()
	if t.sched != s {
		t.mu.Unlock()
		return
	}
	changed := t.status != resp.Status
	t.status = resp.Status
	t.mu.Unlock()

	if changed && t.onStatus != nil {
		t.onStatus(intentID, resp.Status)
	}
	if payment.Terminal(resp.Status) {
		// a job cannot stop its own scheduler synchronously
		go t.stopScheduler(s)
	}
}

// Status returns the tracked intent and its last seen status.
func (t *Tracker) Status() (intentID, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.intentID, t.status
}

// Active reports whether polling is still running.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sched != nil
}

func (t *Tracker) Stop() {
	t.mu.Lock()
	s := t.sched
	t.mu.Unlock()
	if s != nil {
		t.stopScheduler(s)
	}
}

func (t *Tracker) stopScheduler(s *gocron.Scheduler) {
	t.mu.Lock()
	if t.sched == s {
		t.sched = nil
	}
	t.mu.Unlock()
	s.Stop()
}
