package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/payperplay/autoscaler/pkg/logger"
)

// Notifier batches scaling events for periodic delivery and sends
// error events immediately, bypassing the queue. All queue mutation
// and flush-deadline accounting happen under one mutex.
type Notifier struct {
	cfg    SMTPConfig
	mailer Mailer

	mu          sync.Mutex
	queue       []Event
	nextFlush   time.Time
	forceFlush  bool
}

// New constructs a Notifier. A disabled config still returns a usable
// value whose methods are no-ops, so callers never need to nil-check.
func New(cfg SMTPConfig, mailer Mailer) *Notifier {
	return &Notifier{
		cfg:       cfg,
		mailer:    mailer,
		nextFlush: timeNow().Add(cfg.BatchWindow()),
	}
}

// timeNow is indirected so tests can't be tripped up by real wall
// clock flakiness around a boundary.
var timeNow = time.Now

// Enqueue appends ev to the batch queue. When urgent is true, or the
// queue has reached the configured batch size, the next flush is
// armed to run immediately rather than wait for the window.
func (n *Notifier) Enqueue(ev Event, urgent bool) {
	if !n.cfg.Enabled {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	n.queue = append(n.queue, ev)
	if urgent || len(n.queue) >= n.cfg.MaxBatch() {
		n.forceFlush = true
	}
}

// SendErrorNow bypasses the queue entirely and attempts a best-effort
// synchronous send of a single error event to recipients.
func (n *Notifier) SendErrorNow(ev Event, recipients []string) {
	if !n.cfg.Enabled {
		return
	}
	recipients = resolveRecipients(n.cfg, recipients)
	if len(recipients) == 0 {
		return
	}

	subject := fmt.Sprintf("%s%s: %s", n.cfg.SubjectPrefix, ev.ServiceName, ev.Action)
	body := formatLine(ev)
	if err := n.mailer.Send(recipients, subject, body); err != nil {
		logger.Error("failed to send immediate error event", err, map[string]interface{}{
			"service": ev.ServiceName, "action": string(ev.Action),
		})
	}
}

// SendTestEmail delivers an ad hoc message immediately, bypassing the
// queue entirely, for the admin API's manual test-email endpoint.
func (n *Notifier) SendTestEmail(to []string, subject, body string) error {
	return n.mailer.Send(to, subject, body)
}

// FlushIfDue drains the queue and sends one message per
// recipient-bucket when force is true, when Enqueue has armed an
// immediate flush, when the window has elapsed, or when the batch size
// has been hit. An empty queue always just resets the deadline.
func (n *Notifier) FlushIfDue(force bool) {
	if !n.cfg.Enabled {
		return
	}

	n.mu.Lock()
	if len(n.queue) == 0 {
		n.nextFlush = timeNow().Add(n.cfg.BatchWindow())
		n.forceFlush = false
		n.mu.Unlock()
		return
	}

	due := force || n.forceFlush || !timeNow().Before(n.nextFlush) || len(n.queue) >= n.cfg.MaxBatch()
	if !due {
		n.mu.Unlock()
		return
	}

	batch := n.queue
	n.queue = nil
	n.forceFlush = false
	n.nextFlush = timeNow().Add(n.cfg.BatchWindow())
	n.mu.Unlock()

	n.deliverBatch(batch)
}

// RunFlushLoop calls FlushIfDue(false) every 2 seconds until stop is
// closed. It is meant to run in its own goroutine.
func (n *Notifier) RunFlushLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.FlushIfDue(false)
		}
	}
}

func (n *Notifier) deliverBatch(batch []Event) {
	buckets := map[string][]Event{}
	var order []string
	for _, ev := range batch {
		recipients := resolveRecipients(n.cfg, ev.Recipients)
		if len(recipients) == 0 {
			continue
		}
		key := strings.Join(sortedCopy(recipients), ",")
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], ev)
	}

	for _, key := range order {
		events := buckets[key]
		recipients := strings.Split(key, ",")
		var lines []string
		for _, ev := range events {
			lines = append(lines, formatLine(ev))
		}
		subject := fmt.Sprintf("%sscaling activity (%d events)", n.cfg.SubjectPrefix, len(events))
		body := strings.Join(lines, "\n")
		if err := n.mailer.Send(recipients, subject, body); err != nil {
			logger.Error("failed to deliver batched notification", err, map[string]interface{}{
				"recipients": recipients,
			})
		}
	}
}

func resolveRecipients(cfg SMTPConfig, recipients []string) []string {
	if len(recipients) > 0 {
		return recipients
	}
	return cfg.ToDefault
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func formatLine(ev Event) string {
	return fmt.Sprintf("%s | %s | %s (%s) %d -> %d | cpu=%.1f%% mem=%.1f%% | reason=%s",
		ev.TS.Format(time.RFC3339),
		ev.Action,
		ev.ServiceName,
		ev.ServiceID,
		ev.Old,
		ev.New,
		ev.CPUPercent,
		ev.MemPercent,
		ev.Reason,
	)
}
