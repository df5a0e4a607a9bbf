// Package dialout drives the outbound SIP handshake of a call: place the
// call, block until it is answered, then greet. A failed dial ends the job.
package dialout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/presence"
	"github.com/rapidxai/outbound-caller/internal/telephony"
)

type State int

const (
	Idle State = iota
	SessionStarted
	Dialing
	Answered
	Greeted
	Skipped
	FallbackGreeted
	DialFailed
)

var stateNames = map[State]string{
	Idle:            "idle",
	SessionStarted:  "session_started",
	Dialing:         "dialing",
	Answered:        "answered",
	Greeted:         "greeted",
	Skipped:         "skipped",
	FallbackGreeted: "fallback_greeted",
	DialFailed:      "dial_failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// OutboundLeg is a create-outbound-participant request.
type OutboundLeg struct {
	Room     string
	TrunkID  string
	Number   string
	Identity string
	// WaitUntilAnswered makes the gateway call return only after pickup.
	WaitUntilAnswered bool
}

type Gateway interface {
	CreateOutboundLeg(ctx context.Context, leg OutboundLeg) error
}

// Greeter speaks an instructed greeting into the call.
type Greeter interface {
	GenerateReply(ctx context.Context, instructions string) error
}

// Observer is told about every state change.
type Observer interface {
	OnTransition(room string, from, to State)
}

type ObserverFunc func(room string, from, to State)

func (f ObserverFunc) OnTransition(room string, from, to State) { f(room, from, to) }

var (
	ErrNoTrunk    = errors.New("sip trunk id not configured")
	ErrNotStarted = errors.New("session not started")
)

// DialError is a failed outbound leg. It is fatal to the job.
type DialError struct {
	Number string
	Err    error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s: %v", e.Number, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

type Config struct {
	Room             string
	TrunkID          string
	InitialGreeting  string
	FallbackGreeting string
}

type Controller struct {
	cfg      Config
	gateway  Gateway
	greeter  Greeter
	shutdown func(reason string)
	observer Observer
	log      logger.Logger

	mu    sync.Mutex
	state State
}

type Option func(*Controller)

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a controller in the Idle state. shutdown terminates the job.
func New(cfg Config, gateway Gateway, greeter Greeter, shutdown func(reason string), opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		gateway:  gateway,
		greeter:  greeter,
		shutdown: shutdown,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionStarted marks the conversational session as running.
func (c *Controller) SessionStarted() error {
	return c.transition(Idle, SessionStarted)
}

// Run carries out the decision of the presence detector. It returns a
// *DialError after a failed dial, in which case the job has been shut down.
func (c *Controller) Run(ctx context.Context, decision presence.Decision, phone string) error {
	switch decision {
	case presence.DialOut:
		return c.dial(ctx, phone)
	default:
		if err := c.transition(SessionStarted, Skipped); err != nil {
			return err
		}
		c.log.Infow("not dialing, greeting participant", "room", c.cfg.Room, "reason", decision.String())
		if err := c.greeter.GenerateReply(ctx, c.cfg.FallbackGreeting); err != nil {
			c.log.Warnw("fallback greeting failed", err, "room", c.cfg.Room)
			return fmt.Errorf("fallback greeting: %w", err)
		}
		return c.transition(Skipped, FallbackGreeted)
	}
}

func (c *Controller) dial(ctx context.Context, phone string) error {
	if err := c.transition(SessionStarted, Dialing); err != nil {
		return err
	}

	if c.cfg.TrunkID == "" {
		return c.fail(phone, ErrNoTrunk)
	}

	c.log.Infow("initiating outbound SIP call", "room", c.cfg.Room, "phone", phone)
	err := c.gateway.CreateOutboundLeg(ctx, OutboundLeg{
		Room:              c.cfg.Room,
		TrunkID:           c.cfg.TrunkID,
		Number:            phone,
		Identity:          telephony.ParticipantIdentity(phone),
		WaitUntilAnswered: true,
	})
	if err != nil {
		return c.fail(phone, err)
	}

	if err := c.transition(Dialing, Answered); err != nil {
		return err
	}
	c.log.Infow("call answered", "room", c.cfg.Room, "phone", phone)

	if err := c.greeter.GenerateReply(ctx, c.cfg.InitialGreeting); err != nil {
		c.log.Warnw("initial greeting failed", err, "room", c.cfg.Room)
		return fmt.Errorf("initial greeting: %w", err)
	}
	return c.transition(Answered, Greeted)
}

// fail moves to DialFailed and shuts the job down. No retry.
func (c *Controller) fail(phone string, err error) error {
	dialErr := &DialError{Number: phone, Err: err}
	if terr := c.transition(Dialing, DialFailed); terr != nil {
		return terr
	}
	c.log.Errorw("failed to place outbound call", err, "room", c.cfg.Room, "phone", phone)
	if c.shutdown != nil {
		c.shutdown(dialErr.Error())
	}
	return dialErr
}

func (c *Controller) transition(from, to State) error {
	c.mu.Lock()
	if c.state != from {
		cur := c.state
		c.mu.Unlock()
		if from == SessionStarted && cur == Idle {
			return ErrNotStarted
		}
		return fmt.Errorf("invalid transition %s -> %s from state %s", from, to, cur)
	}
	c.state = to
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.OnTransition(c.cfg.Room, from, to)
	}
	return nil
}
