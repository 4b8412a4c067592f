package notify

import (
	"strings"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

type fakeMailer struct {
	mu    sync.Mutex
	sends []sentMail
}

type sentMail struct {
	to      []string
	subject string
	body    string
}

func (f *fakeMailer) Send(to []string, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentMail{to: to, subject: subject, body: body})
	return nil
}

func testConfig() SMTPConfig {
	cfg := SMTPConfig{Enabled: true, From: "autoscaler@example.com", SubjectPrefix: "[autoscale] "}
	cfg.BatchWindowSeconds = 60
	cfg.MaxBatchEvents = 5
	return cfg
}

func TestFlushIfDue_EmptyQueueIsNoOp(t *testing.T) {
	mailer := &fakeMailer{}
	n := New(testConfig(), mailer)
	n.FlushIfDue(false)
	assert.Equal(t, len(mailer.sends), 0)
}

func TestFlushIfDue_ForceFlushesNonEmptyQueue(t *testing.T) {
	mailer := &fakeMailer{}
	n := New(testConfig(), mailer)
	n.Enqueue(Event{ServiceName: "api", ServiceID: "s1", Action: ActionScaleUp, Recipients: []string{"a@x.com"}}, false)

	n.FlushIfDue(false)
	assert.Equal(t, len(mailer.sends), 0, "window hasn't elapsed and batch isn't full")

	n.FlushIfDue(true)
	assert.Equal(t, len(mailer.sends), 1)
}

func TestFlushIfDue_MaxBatchTriggersFlush(t *testing.T) {
	mailer := &fakeMailer{}
	cfg := testConfig()
	cfg.MaxBatchEvents = 2
	n := New(cfg, mailer)

	n.Enqueue(Event{ServiceName: "api", ServiceID: "s1", Recipients: []string{"a@x.com"}}, false)
	n.Enqueue(Event{ServiceName: "api", ServiceID: "s1", Recipients: []string{"a@x.com"}}, false)

	n.FlushIfDue(false)
	assert.Equal(t, len(mailer.sends), 1)
}

func TestEnqueue_UrgentArmsImmediateFlush(t *testing.T) {
	mailer := &fakeMailer{}
	n := New(testConfig(), mailer)
	n.Enqueue(Event{ServiceName: "api", ServiceID: "s1", Recipients: []string{"a@x.com"}}, true)

	n.FlushIfDue(false)
	assert.Equal(t, len(mailer.sends), 1)
}

func TestDeliverBatch_GroupsByRecipientAndPreservesOrder(t *testing.T) {
	mailer := &fakeMailer{}
	n := New(testConfig(), mailer)

	n.Enqueue(Event{ServiceName: "api", ServiceID: "s1", Action: ActionScaleUp, Old: 2, New: 3, Recipients: []string{"b@x.com", "a@x.com"}}, false)
	n.Enqueue(Event{ServiceName: "web", ServiceID: "s2", Action: ActionScaleDown, Old: 4, New: 3, Recipients: []string{"c@x.com"}}, false)
	n.Enqueue(Event{ServiceName: "api", ServiceID: "s1", Action: ActionScaleUp, Old: 3, New: 4, Recipients: []string{"a@x.com", "b@x.com"}}, false)

	n.FlushIfDue(true)

	assert.Equal(t, len(mailer.sends), 2, "two distinct sorted-recipient buckets")

	var apiBucket sentMail
	for _, s := range mailer.sends {
		if len(s.to) == 2 {
			apiBucket = s
		}
	}
	assert.Assert(t, apiBucket.to[0] == "a@x.com" && apiBucket.to[1] == "b@x.com", "recipients sorted within a bucket")
	lines := strings.Split(apiBucket.body, "\n")
	assert.Equal(t, len(lines), 2)
	assert.Assert(t, strings.Contains(lines[0], "2 -> 3"), "enqueue order preserved: old=2 new=3 first")
	assert.Assert(t, strings.Contains(lines[1], "3 -> 4"), "enqueue order preserved: old=3 new=4 second")
}

func TestSendErrorNow_BypassesQueue(t *testing.T) {
	mailer := &fakeMailer{}
	n := New(testConfig(), mailer)
	n.Enqueue(Event{ServiceName: "api", ServiceID: "s1", Recipients: []string{"a@x.com"}}, false)

	n.SendErrorNow(Event{ServiceName: "api", ServiceID: "s1", Action: ActionReplicasBelowMin}, []string{"a@x.com"})

	assert.Equal(t, len(mailer.sends), 1, "immediate send happened")
	n.FlushIfDue(true)
	assert.Equal(t, len(mailer.sends), 2, "the batched event is still queued separately")
}

func TestFormatLine_IsStable(t *testing.T) {
	ev := Event{
		TS:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ServiceName: "api",
		ServiceID:  "s1",
		Action:     ActionScaleUp,
		Old:        2,
		New:        3,
		CPUPercent: 90.456,
		MemPercent: 12.3,
		Reason:     "cpu above max",
	}
	line := formatLine(ev)
	want := "2026-01-02T03:04:05Z | scale_up | api (s1) 2 -> 3 | cpu=90.5% mem=12.3% | reason=cpu above max"
	assert.Equal(t, line, want)
}
