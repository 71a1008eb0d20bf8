package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisdr/delta/pkg/contracts"
)

type recorder struct {
	mu         sync.Mutex
	validators []ValidatorNotice
	submitters []SubmitterNotice
	err        error
	delay      time.Duration
}

func (r *recorder) NotifyValidators(ctx context.Context, n ValidatorNotice) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators = append(r.validators, n)
	return r.err
}

func (r *recorder) NotifySubmitter(ctx context.Context, n SubmitterNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitters = append(r.submitters, n)
	return r.err
}

type failCounter struct {
	mu    sync.Mutex
	kinds []string
}

func (f *failCounter) NotificationFailed(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
}

func TestDispatcher_DeliversAndCloses(t *testing.T) {
	rec := &recorder{delay: 10 * time.Millisecond}
	d := NewDispatcher(rec)

	d.Validators(context.Background(), ValidatorNotice{EntityID: "e1", ValidatorIDs: []string{"v1"}})
	d.Submitter(context.Background(), SubmitterNotice{EntityID: "e1", SubmitterID: "u1"})

	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, rec.validators, 1)
	assert.Len(t, rec.submitters, 1)
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	var logs bytes.Buffer
	rec := &recorder{err: errors.New("smtp down")}
	fc := &failCounter{}
	d := NewDispatcher(rec,
		WithDispatchLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithFailureRecorder(fc),
	)

	d.Validators(context.Background(), ValidatorNotice{EntityID: "e1"})
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, []string{"validators"}, fc.kinds)
	assert.Contains(t, logs.String(), "notification failed")
	assert.Contains(t, logs.String(), "smtp down")
}

func TestDispatcher_SurvivesCancelledRequest(t *testing.T) {
	rec := &recorder{delay: 5 * time.Millisecond}
	d := NewDispatcher(rec)

	ctx, cancel := context.WithCancel(context.Background())
	d.Validators(ctx, ValidatorNotice{EntityID: "e1"})
	cancel()

	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, rec.validators, 1)
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)
	require.NoError(t, d.Close(context.Background()))

	d.Validators(context.Background(), ValidatorNotice{EntityID: "late"})
	assert.Empty(t, rec.validators)
}

func TestDispatcher_CloseHonoursDeadline(t *testing.T) {
	rec := &recorder{delay: 200 * time.Millisecond}
	d := NewDispatcher(rec)
	d.Validators(context.Background(), ValidatorNotice{EntityID: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_RateLimited(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, WithRate(1000, 1))
	for i := 0; i < 5; i++ {
		d.Submitter(context.Background(), SubmitterNotice{EntityID: "e", SubmitterID: "u"})
	}
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, rec.submitters, 5)
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("boom")}
	m := Multi{ok, bad}

	err := m.NotifySubmitter(context.Background(), SubmitterNotice{EntityID: "e"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, ok.submitters, 1)
	assert.Len(t, bad.submitters, 1)
}

func TestLogNotifier(t *testing.T) {
	var logs bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&logs, nil)))

	require.NoError(t, n.NotifyValidators(context.Background(), ValidatorNotice{
		EntityID: "e1", EntityType: contracts.EntityHazardousEvent, ValidatorIDs: []string{"v1", "v2"},
	}))
	assert.Contains(t, logs.String(), `"entity_id":"e1"`)
	assert.Contains(t, logs.String(), `"component":"notify"`)
}

func TestRenderValidator(t *testing.T) {
	msg, err := RenderValidator(ValidatorNotice{
		EntityID:     "e1",
		EntityType:   contracts.EntityDisasterRecord,
		ValidatorIDs: []string{"v1"},
		SubmitterID:  "u1",
		Context:      map[string]string{"region": "north", "country": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "validation-request", msg.Kind)
	assert.Equal(t, []string{"v1"}, msg.To)
	assert.Equal(t, "Validation requested: disaster record e1", msg.Subject)
	assert.Contains(t, msg.Body, "submitted for your validation by u1")
	assert.Less(t, bytes.Index([]byte(msg.Body), []byte("country")), bytes.Index([]byte(msg.Body), []byte("region")))
}

func TestRenderSubmitter(t *testing.T) {
	msg, err := RenderSubmitter(SubmitterNotice{
		EntityID:    "e1",
		EntityType:  contracts.EntityHazardousEvent,
		SubmitterID: "u1",
		NewStatus:   contracts.StatusNeedsRevision,
		Comment:     "  missing source  ",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, msg.To)
	assert.Equal(t, "Your hazardous event is needs revision", msg.Subject)
	assert.Contains(t, msg.Body, "Reviewer comment:\nmissing source\n")

	msg, err = RenderSubmitter(SubmitterNotice{EntityID: "e1", EntityType: contracts.EntityHazardousEvent, SubmitterID: "u1", NewStatus: contracts.StatusPublished})
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "Reviewer comment")
}

// fakeRedis implements the one Cmdable method the notifier uses.
type fakeRedis struct {
	redis.Cmdable
	key    string
	values []interface{}
	err    error
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	f.values = append(f.values, values...)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(int64(len(f.values)))
	}
	return cmd
}

func TestRedisNotifier_Enqueues(t *testing.T) {
	fr := &fakeRedis{}
	n := NewRedisNotifierWithClient(fr, "")

	require.NoError(t, n.NotifyValidators(context.Background(), ValidatorNotice{
		EntityID: "e1", EntityType: contracts.EntityHazardousEvent, ValidatorIDs: []string{"v1"},
	}))
	assert.Equal(t, DefaultQueue, fr.key)
	require.Len(t, fr.values, 1)

	var msg Message
	require.NoError(t, json.Unmarshal(fr.values[0].([]byte), &msg))
	assert.Equal(t, "validation-request", msg.Kind)
	assert.Equal(t, "e1", msg.EntityID)
}

func TestRedisNotifier_Errors(t *testing.T) {
	fr := &fakeRedis{err: errors.New("connection refused")}
	n := NewRedisNotifierWithClient(fr, "q")

	err := n.NotifySubmitter(context.Background(), SubmitterNotice{EntityID: "e1", SubmitterID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue notification on q")

	err = n.NotifySubmitter(context.Background(), SubmitterNotice{EntityID: "e1"})
	assert.ErrorContains(t, err, "no submitter recorded")
	assert.Len(t, fr.values, 1)
}
