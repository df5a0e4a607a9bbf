// Package transfer moves the telephony leg of a call to another destination.
// Every outcome is reported as a string for the conversational agent; a
// failed transfer leaves the call as it was.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/telephony"
)

// Results returned to the agent.
const (
	ResultSuccess     = "Transfer initiated successfully."
	ResultNoDefault   = "Error: No default transfer number configured."
	ResultNoIdentity  = "Failed to transfer: could not identify the caller."
	ResultAmbiguous   = "Failed to transfer: several people are on the call and the caller could not be told apart."
	resultErrorPrefix = "Error executing transfer: "
)

var (
	ErrNoCandidate        = errors.New("no participant to transfer")
	ErrMultipleCandidates = errors.New("multiple candidates for transfer")
)

// Request is one transfer-participant call to the SIP gateway.
type Request struct {
	Room         string
	Identity     string
	Destination  string
	PlayDialtone bool
}

type Gateway interface {
	TransferParticipant(ctx context.Context, req Request) error
}

// ParticipantLister returns the remote participants currently in the room.
type ParticipantLister interface {
	RemoteParticipants() []telephony.Participant
}

// Recorder is told about every transfer the gateway was asked to perform.
type Recorder interface {
	TransferAttempted(ctx context.Context, req Request, err error)
}

type Config struct {
	Room string
	// PhoneNumber is the dialed number of the call, if known.
	PhoneNumber        string
	DefaultDestination string
	SIPDomain          string
}

type Tool struct {
	cfg          Config
	gateway      Gateway
	participants ParticipantLister
	recorder     Recorder
	log          logger.Logger
}

type Option func(*Tool)

func WithRecorder(r Recorder) Option {
	return func(t *Tool) { t.recorder = r }
}

func WithLogger(l logger.Logger) Option {
	return func(t *Tool) {
		if l != nil {
			t.log = l
		}
	}
}

func New(cfg Config, gateway Gateway, participants ParticipantLister, opts ...Option) *Tool {
	t := &Tool{cfg: cfg, gateway: gateway, participants: participants, log: logger.GetLogger()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transfer moves the caller to destination, or to the configured default when
// destination is empty. It never fails; the result text says what happened.
func (t *Tool) Transfer(ctx context.Context, destination string) string {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		destination = strings.TrimSpace(t.cfg.DefaultDestination)
		if destination == "" {
			return ResultNoDefault
		}
	}
	destination = NormalizeDestination(destination, t.cfg.SIPDomain)
	t.log.Infow("transferring call", "room", t.cfg.Room, "destination", destination)

	var remote []telephony.Participant
	if t.cfg.PhoneNumber == "" && t.participants != nil {
		remote = t.participants.RemoteParticipants()
	}
	identity, err := ResolveIdentity(t.cfg.PhoneNumber, remote)
	if err != nil {
		t.log.Warnw("could not determine participant identity for transfer", err, "room", t.cfg.Room)
		if errors.Is(err, ErrMultipleCandidates) {
			return ResultAmbiguous
		}
		return ResultNoIdentity
	}

	req := Request{
		Room:         t.cfg.Room,
		Identity:     identity,
		Destination:  destination,
		PlayDialtone: false,
	}
	err = t.gateway.TransferParticipant(ctx, req)
	if t.recorder != nil {
		t.recorder.TransferAttempted(ctx, req, err)
	}
	if err != nil {
		t.log.Errorw("transfer failed", err, "room", t.cfg.Room, "participant", identity)
		return resultErrorPrefix + err.Error()
	}
	t.log.Infow("transfer initiated", "room", t.cfg.Room, "participant", identity, "destination", destination)
	return ResultSuccess
}

// NormalizeDestination turns a number or address into something the SIP
// gateway can reach. Addresses with a domain get a sip: scheme; bare numbers
// go to sipDomain when one is configured and become tel: URIs otherwise.
func NormalizeDestination(destination, sipDomain string) string {
	destination = strings.TrimSpace(destination)
	if strings.Contains(destination, "@") {
		if !strings.HasPrefix(destination, "sip:") {
			return "sip:" + destination
		}
		return destination
	}
	if sipDomain != "" {
		clean := strings.NewReplacer("tel:", "", "sip:", "").Replace(destination)
		return fmt.Sprintf("sip:%s@%s", clean, sipDomain)
	}
	if strings.HasPrefix(destination, "tel:") || strings.HasPrefix(destination, "sip:") {
		return destination
	}
	return "tel:" + destination
}

// ResolveIdentity finds the participant to transfer. A known phone number
// gives the identity directly. Otherwise the single non-agent participant is
// used; with several, the single telephony leg among them, if there is one.
func ResolveIdentity(phone string, participants []telephony.Participant) (string, error) {
	if phone = strings.TrimSpace(phone); phone != "" {
		return telephony.ParticipantIdentity(phone), nil
	}

	var candidates, legs []string
	for _, p := range participants {
		if p.Identity == "" || telephony.IsAgent(p.Identity) {
			continue
		}
		candidates = append(candidates, p.Identity)
		if telephony.IsTelephonyLeg(p.Identity) {
			legs = append(legs, p.Identity)
		}
	}
	switch {
	case len(candidates) == 0:
		return "", ErrNoCandidate
	case len(candidates) == 1:
		return candidates[0], nil
	case len(legs) == 1:
		return legs[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrMultipleCandidates, strings.Join(candidates, ", "))
	}
}
