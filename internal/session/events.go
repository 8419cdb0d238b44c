package session

import (
	"context"
	"fmt"

	"f2f-dating-app/internal/events"
	"f2f-dating-app/internal/models"
)

type EventView struct {
	models.Event
	Joined bool `json:"joined"`
}

type JoinResult struct {
	EventID       string `json:"event_id"`
	AlreadyMember bool   `json:"already_member"`
	// Pending means the outcome arrives later as SignalOpenSession or
	// SignalJoinFailed.
	Pending bool `json:"pending"`
}

func (c *Coordinator) Events(ctx context.Context) ([]EventView, error) {
	return exec(ctx, c, func() ([]EventView, error) {
		list := c.board.Events()
		out := make([]EventView, len(list))
		for i, e := range list {
			out[i] = EventView{Event: e, Joined: e.HasParticipant(c.viewerID)}
		}
		return out, nil
	})
}

// JoinEvent adds the viewer to an event. Members get the event chat opened
// at once. Otherwise the viewer is added locally and the participant list is
// written in the background; if that write fails the event list is re-read,
// and if the re-read fails too the local addition is undone.
func (c *Coordinator) JoinEvent(ctx context.Context, eventID string) (JoinResult, error) {
	return exec(ctx, c, func() (JoinResult, error) {
		plan, err := c.board.BeginJoin(eventID, c.viewerID)
		if err != nil {
			return JoinResult{}, err
		}
		if plan.AlreadyMember {
			c.openEvent(eventID)
			return JoinResult{EventID: eventID, AlreadyMember: true}, nil
		}

		c.remote("join event", func(ctx context.Context) error {
			return c.deps.Events.UpdateParticipants(ctx, eventID, plan.Participants)
		}, func(err error) {
			if err == nil {
				c.openEvent(eventID)
				return
			}
			c.emit(SignalJoinFailed, FailurePayload{EventID: eventID, Error: "could not join event"})
			c.resyncEvents(func(resyncErr error) {
				if resyncErr != nil {
					c.board.RevertJoin(eventID, c.viewerID)
				}
				c.emit(SignalEventsChanged, nil)
			})
		})
		return JoinResult{EventID: eventID, Pending: true}, nil
	})
}

func (c *Coordinator) openEvent(eventID string) {
	c.chats.Ensure(eventID, models.SessionEvent, eventID)
	if err := c.chats.SetActive(eventID); err != nil {
		c.log.WithError(err).Warn("open event session")
		return
	}
	c.emit(SignalOpenSession, OpenSessionPayload{SessionID: eventID, Type: models.SessionEvent})
}

// resyncEvents re-reads the event list on a remote goroutine. Must be called
// on the loop.
func (c *Coordinator) resyncEvents(then func(err error)) {
	var list []models.Event
	c.remote("list events", func(ctx context.Context) error {
		var err error
		list, err = c.deps.Events.List(ctx)
		return err
	}, func(err error) {
		if err == nil {
			c.board.Replace(list)
		}
		if then != nil {
			then(err)
		}
	})
}

// CreateEvent stores a new event organized by the viewer and re-reads the
// event list.
func (c *Coordinator) CreateEvent(ctx context.Context, in events.CreateInput) (models.Event, error) {
	if err := in.Validate(); err != nil {
		return models.Event{}, err
	}
	for _, tag := range models.NewTagSet(in.Tags...) {
		tctx, cancel := c.bounded(ctx)
		safe := c.deps.Assistant.IsTagSafe(tctx, tag)
		cancel()
		if !safe {
			return models.Event{}, fmt.Errorf("%w: %q", ErrUnsafeTag, tag)
		}
	}

	ev := events.NewEvent(c.deps.NewID(), c.viewerID, in)
	wctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.deps.Events.Create(wctx, ev); err != nil {
		return models.Event{}, fmt.Errorf("create event: %w", err)
	}

	list, err := c.deps.Events.List(wctx)
	if err != nil {
		c.log.WithError(err).Warn("reload events after create")
	}
	return ev, c.do(ctx, func() error {
		if err != nil {
			list = append([]models.Event{ev}, c.board.Events()...)
		}
		c.board.Replace(list)
		return nil
	})
}
