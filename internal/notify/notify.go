// Package notify delivers best-effort messages to runners.
package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind groups notifications for clients that filter them.
type Kind string

const (
	KindMissedTraining Kind = "TRAINING_MISSED"
	KindPlanCreated    Kind = "PLAN_CREATED"
	KindPlanCompleted  Kind = "PLAN_COMPLETED"
)

type Message struct {
	UserID primitive.ObjectID
	Kind   Kind
	Title  string
	Body   string
}

// Notifier is fire-and-forget: callers log a returned error and move on.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the structured log. It stands in for a
// push gateway.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info().
		Str("userId", msg.UserID.Hex()).
		Str("kind", string(msg.Kind)).
		Str("title", msg.Title).
		Msg(msg.Body)
	return nil
}

// Send notifies and swallows the error after logging it.
func Send(ctx context.Context, n Notifier, msg Message) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		log.Warn().Err(err).Str("userId", msg.UserID.Hex()).Str("kind", string(msg.Kind)).Msg("notification failed")
	}
}
