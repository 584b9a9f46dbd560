package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/penguin-meds/internal/ledger"
	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/storage"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	bound      []string
	deliveries chan amqp091.Delivery
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp091.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(string, bool, bool, bool, bool, amqp091.Table) (amqp091.Queue, error) {
	return amqp091.Queue{Name: "amq.gen-test"}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp091.Table) error {
	f.bound = append(f.bound, exchange+":"+key+"->"+name)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp091.Table) (<-chan amqp091.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

var now = time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)

func TestFromChange(t *testing.T) {
	ts := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	e := model.Entry{ID: "x", Category: model.Nicotine, Kind: model.Gum, Amount: 4, Timestamp: ts}

	ev := FromChange(ledger.Change{Op: ledger.OpAdded, Category: model.Nicotine, Entry: e}, now)
	assert.Equal(t, "x", ev.EntryID)
	assert.Equal(t, "2026-02-27", ev.Day)
	assert.Equal(t, 4, ev.Delta)

	updated := e
	updated.Amount = 6
	ev = FromChange(ledger.Change{Op: ledger.OpUpdated, Category: model.Nicotine, Entry: updated, Previous: e}, now)
	assert.Equal(t, 2, ev.Delta)

	ev = FromChange(ledger.Change{Op: ledger.OpRemoved, Category: model.Nicotine, Previous: e}, now)
	assert.Equal(t, "x", ev.EntryID)
	assert.Equal(t, -4, ev.Delta)

	ev = FromChange(ledger.Change{Op: ledger.OpCleared, Category: model.Nicotine}, now)
	assert.Empty(t, ev.EntryID)
	assert.Nil(t, ev.Timestamp)
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pmeds/topic"}, ch.declared)

	ev := Event{Op: ledger.OpAdded, Category: model.Marijuana, EntryID: "abc", AmountMg: 10, At: now}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "pmeds", got.exchange)
	assert.Equal(t, "pmeds.entries.marijuana.added", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, got.msg.DeliveryMode)

	decoded, err := EventFromJSON(got.msg.Body)
	require.NoError(t, err)
	assert.Equal(t, "abc", decoded.EntryID)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestForwardIsBestEffort(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "meds", "home.log", nil)
	require.NoError(t, err)
	p.now = func() time.Time { return now }

	store := ledger.New(storage.NewMemoryBackend(), ledger.WithLocation(time.UTC))
	p.Forward(context.Background(), store)
	ctx := context.Background()

	e, err := store.Add(ctx, model.Nicotine, model.Pouch, 3, now)
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, model.Nicotine, e.ID))
	require.Len(t, ch.published, 2)
	assert.Equal(t, "home.log.nicotine.added", ch.published[0].key)
	assert.Equal(t, "home.log.nicotine.removed", ch.published[1].key)

	ch.publishErr = errors.New("connection reset")
	_, err = store.Add(ctx, model.Nicotine, model.Pouch, 3, now)
	assert.NoError(t, err, "a broker failure never fails the mutation")
}

func TestTail(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery, 3)}
	p, err := newPublisher(ch, "", "", nil)
	require.NoError(t, err)

	body, err := Event{Op: ledger.OpAdded, Category: model.Nicotine, EntryID: "a"}.ToJSON()
	require.NoError(t, err)
	ch.deliveries <- amqp091.Delivery{Body: []byte("{bad")}
	ch.deliveries <- amqp091.Delivery{Body: body}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []Event
	err = p.Tail(ctx, func(e Event) error {
		got = append(got, e)
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].EntryID)
	assert.Equal(t, []string{"pmeds:pmeds.entries.#->amq.gen-test"}, ch.bound)
}
