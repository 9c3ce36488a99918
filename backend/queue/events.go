package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/pkale/streakly/backend/habits"
	storage "github.com/pkale/streakly/backend/storage/cache"
	"github.com/streadway/amqp"
)

// globalCount drives the round robin assignment of producers to events.
var globalCount int

// EventProducerFactory creates new EventProducer instances.
type EventProducerFactory struct{}

// EventConsumerFactory creates new EventConsumer instances. The cache is
// shared with consumers for dedupe bookkeeping and statistics
// invalidation.
type EventConsumerFactory struct {
	Cache storage.CacheInterface
}

// EventProducer publishes habit events onto the AMQP queue.
type EventProducer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
}

// EventConsumer drains habit events from the AMQP queue and drops the
// affected user's cached statistics. Processed event ids are remembered
// in the cache so redelivered events are acked without a second
// invalidation.
type EventConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
	cache   storage.CacheInterface
}

// CreateProducer builds an EventProducer over the given connection,
// channel and queue.
func (f *EventProducerFactory) CreateProducer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Producer, error) {
	return &EventProducer{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

// CreateConsumer builds an EventConsumer over the given connection,
// channel and queue.
func (f *EventConsumerFactory) CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error) {
	return &EventConsumer{
		conn:    conn,
		channel: ch,
		queue:   queue,
		cache:   f.Cache,
	}, nil
}

// Publish sends a serialized habit event to the queue.
func (ep *EventProducer) Publish(body []byte) error {
	err := ep.channel.Publish(
		"",            // exchange
		ep.queue.Name, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// Consume sets up a consumer on the queue and launches a goroutine that
// handles each delivery: unmarshal, dedupe against the cache, then drop
// the owning user's cached statistics. Transient failures nack with
// requeue; malformed or already-processed events are acked away.
func (ec *EventConsumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := ec.channel.Consume(
		ec.queue.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case d, ok := <-msgs:

				if !ok {
					return
				}

				event := &habits.Event{}
				if err := json.Unmarshal(d.Body, event); err != nil {
					log.Printf("failed to unmarshal habit event: %v", err)
					d.Ack(false) // malformed payloads never become valid, drop them
					continue
				}

				var processed bool
				err := ec.cache.Get(ctx, "event_"+event.ID, &processed)
				if err != nil && err != storage.ErrCacheMiss {
					log.Printf("error checking cache: %v", err)
					d.Nack(false, true) // requeue the message in case of transient error.
					continue
				}

				if processed {
					d.Ack(false)
					continue
				}

				if err := ec.cache.Delete(ctx, habits.StatsCacheKey(event.UserID)); err != nil {
					log.Printf("failed to invalidate statistics for user %s: %v", event.UserID, err)
					d.Nack(false, true) // requeue the message in case of transient error.
					continue
				}

				d.Ack(false)
				if err := ec.cache.Set(ctx, "event_"+event.ID, true); err != nil {
					log.Printf("failed to set key in cache: %v", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return msgs, nil
}

// BuildEventQueue declares the habit event queue and attaches the given
// number of producers and consumers to it.
func BuildEventQueue(rabbitMQURL string, numProducers int, numConsumers int, eventCache storage.CacheInterface) *Queue {

	// Producer factories
	prodFactories := make([]ProducerFactory, numProducers)
	for i := 0; i < numProducers; i++ {
		prodFactories[i] = &EventProducerFactory{}
	}

	// Consumer factories
	consFactories := make([]ConsumerFactory, numConsumers)
	for i := 0; i < numConsumers; i++ {
		consFactories[i] = &EventConsumerFactory{Cache: eventCache}
	}

	queue := InitQueue(rabbitMQURL, "habitEvents", prodFactories, consFactories)
	return queue
}

// InitEventCache connects the cache used for event dedupe and cached
// statistics.
func InitEventCache(url string) storage.CacheInterface {
	c, err := storage.NewCache(url)
	if err != nil {
		log.Fatalf("Error connecting to cache: %v", err)
	}
	return c
}

// PublishHabitEvent serializes a habit event and publishes it through one
// of the queue's producers in round robin order. Implements
// habits.EventSink.
func (q *Queue) PublishHabitEvent(event *habits.Event) error {

	body, err := json.Marshal(event)
	if err != nil {
		return errors.New("failed to marshal habit event: " + err.Error())
	}

	producerCount := len(q.Producers)
	if producerCount == 0 {
		return errors.New("no producers available")
	}

	producer := q.Producers[globalCount%producerCount]
	globalCount++

	if err := producer.Publish(body); err != nil {
		return errors.New("failed to publish habit event: " + err.Error())
	}

	return nil
}
