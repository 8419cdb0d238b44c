// Package assistant wraps a text-completion service for icebreakers,
// compatibility blurbs, celebrity replies and custom-tag moderation. Every
// call degrades to a fixed local answer when the service is missing or fails.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"f2f-dating-app/internal/models"

	"github.com/sirupsen/logrus"
)

// Completer turns a prompt into a short text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	FallbackIcebreaker        = "Hi! Looks like we have similar interests!"
	FallbackIcebreakerNoAI    = "Hi! Great photos."
	FallbackCompatibility     = "You have a lot in common!"
	FallbackCompatibilityNoAI = "You both seem great!"
	FallbackCelebrityReply    = "Sorry, I'm really busy right now, I'll write later!"
	FallbackCelebrityNoAI     = "Thanks for the message! I'll reply a bit later."

	historyWindow = 10
)

type Assistant struct {
	completer Completer
	log       *logrus.Entry
}

// New returns an Assistant. A nil completer makes every call use its fallback.
func New(c Completer, log *logrus.Entry) *Assistant {
	return &Assistant{completer: c, log: log}
}

func (a *Assistant) Enabled() bool {
	return a.completer != nil
}

func (a *Assistant) Icebreaker(ctx context.Context, me, other models.User) string {
	if !a.Enabled() {
		return FallbackIcebreakerNoAI
	}
	prompt := fmt.Sprintf(`You help people start conversations in a friendship and dating app.
Person A (me): interests %s, bio: %s.
Person B: interests %s, bio: %s.
Write one short friendly opening message from A to B, based on shared interests. At most 150 characters. Few emoji.`,
		tagsJSON(me.Interests), me.Bio, tagsJSON(other.Interests), other.Bio)
	return a.complete(ctx, "icebreaker", prompt, FallbackIcebreaker)
}

func (a *Assistant) Compatibility(ctx context.Context, me, other models.User) string {
	if !a.Enabled() {
		return FallbackCompatibilityNoAI
	}
	prompt := fmt.Sprintf(`Compare two people for a friendship.
Me: interests %s, age %d.
Friend: interests %s, age %d.
In 2-3 short positive sentences, explain why we should talk.`,
		tagsJSON(me.Interests), me.Age, tagsJSON(other.Interests), other.Age)
	return a.complete(ctx, "compatibility", prompt, FallbackCompatibility)
}

// CelebrityReply answers the last message of history in the voice of celeb.
func (a *Assistant) CelebrityReply(ctx context.Context, me, celeb models.User, history []models.Message) string {
	if !a.Enabled() {
		return FallbackCelebrityNoAI
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var b strings.Builder
	for _, m := range history {
		name := celeb.Name
		if m.SenderID == me.ID {
			name = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", name, m.Text)
	}
	prompt := fmt.Sprintf(`You reply to chat messages in character as a well-known person on a dating app.
Name: %s
Age: %d
Bio: %s
Interests: %s
You are talking with %s.
Chat history:
%s
Reply to the user's last message in 1-2 short sentences, in this person's style. Stay in character.`,
		celeb.Name, celeb.Age, celeb.Bio, strings.Join(celeb.Interests, ", "), me.Name, b.String())
	return a.complete(ctx, "celebrity_reply", prompt, FallbackCelebrityReply)
}

// IsTagSafe classifies a user-coined interest or event tag. Without a service
// a length check decides; when the service fails the tag is allowed.
func (a *Assistant) IsTagSafe(ctx context.Context, tag string) bool {
	tag = strings.TrimSpace(tag)
	if !a.Enabled() {
		n := utf8.RuneCountInString(tag)
		return n > 2 && n < 30
	}
	prompt := fmt.Sprintf(`You are a content moderator for a friendly social app.
Evaluate the following interest tag: %q.
Is this tag safe, legal, and appropriate for a general audience?
It MUST NOT relate to violence, crime, drugs, hate speech, sexual violence, or illegal acts.
Answer strictly with "YES" if it is safe, or "NO" if it is unsafe.`, tag)

	answer, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		a.log.WithError(err).WithField("tag", tag).Warn("tag safety check failed, allowing tag")
		return true
	}
	return strings.Contains(strings.ToUpper(strings.TrimSpace(answer)), "YES")
}

func (a *Assistant) complete(ctx context.Context, kind, prompt, fallback string) string {
	out, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		a.log.WithError(err).WithField("kind", kind).Warn("completion failed, using fallback")
		return fallback
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return fallback
	}
	return out
}

func tagsJSON(t models.TagSet) string {
	b, err := json.Marshal([]string(t))
	if err != nil {
		return "[]"
	}
	return string(b)
}
