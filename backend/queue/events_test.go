package queue

import (
	"encoding/json"
	"testing"

	"github.com/pkale/streakly/backend/habits"
	"github.com/stretchr/testify/assert"
)

// fakeProducer records published bodies instead of talking to RabbitMQ.
type fakeProducer struct {
	published [][]byte
}

func (f *fakeProducer) Publish(body []byte) error {
	f.published = append(f.published, body)
	return nil
}

func TestPublishHabitEventRoundRobin(t *testing.T) {
	globalCount = 0

	p1 := &fakeProducer{}
	p2 := &fakeProducer{}
	q := &Queue{Producers: []Producer{p1, p2}}

	events := []*habits.Event{
		{ID: "1", Kind: habits.EventCompleted, HabitID: "h1", UserID: "u1"},
		{ID: "2", Kind: habits.EventCompleted, HabitID: "h2", UserID: "u1"},
		{ID: "3", Kind: habits.EventDeleted, HabitID: "h1", UserID: "u1"},
		{ID: "4", Kind: habits.EventCompleted, HabitID: "h3", UserID: "u2"},
	}

	for _, event := range events {
		assert.NoError(t, q.PublishHabitEvent(event))
	}

	// Four events over two producers must alternate evenly.
	assert.Len(t, p1.published, 2)
	assert.Len(t, p2.published, 2)

	var first habits.Event
	assert.NoError(t, json.Unmarshal(p1.published[0], &first))
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, habits.EventCompleted, first.Kind)

	var third habits.Event
	assert.NoError(t, json.Unmarshal(p1.published[1], &third))
	assert.Equal(t, "3", third.ID)
}

func TestPublishHabitEventNoProducers(t *testing.T) {
	q := &Queue{}

	err := q.PublishHabitEvent(&habits.Event{ID: "1", Kind: habits.EventCompleted})
	assert.Error(t, err)
}
