package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// MessagesChannel carries every newly stored chat message.
const MessagesChannel = "chat:messages"

// MessageFeed fans stored messages out to every subscribed session over
// Redis pub/sub.
type MessageFeed struct {
	c *Client
}

func (c *Client) MessageFeed() *MessageFeed {
	return &MessageFeed{c: c}
}

func (f *MessageFeed) Publish(ctx context.Context, m models.Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return f.c.rdb.Publish(ctx, MessagesChannel, payload).Err()
}

// Subscribe returns once the subscription is confirmed by the server.
func (f *MessageFeed) Subscribe(ctx context.Context) (session.FeedSubscription, error) {
	ps := f.c.rdb.Subscribe(ctx, MessagesChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", MessagesChannel, err)
	}

	sub := &feedSubscription{
		ps:   ps,
		out:  make(chan models.Message, 64),
		done: make(chan struct{}),
		log:  f.c.log,
	}
	go sub.run()
	return sub, nil
}

type feedSubscription struct {
	ps   *redis.PubSub
	out  chan models.Message
	done chan struct{}
	once sync.Once
	log  *logrus.Entry
}

func (s *feedSubscription) run() {
	defer close(s.out)
	for raw := range s.ps.Channel() {
		var m models.Message
		if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
			s.log.WithError(err).Warn("dropping undecodable feed message")
			continue
		}
		select {
		case s.out <- m:
		case <-s.done:
			return
		}
	}
}

func (s *feedSubscription) Messages() <-chan models.Message {
	return s.out
}

func (s *feedSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
