package dialout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rapidxai/outbound-caller/internal/presence"
)

type fakeGateway struct {
	mu   sync.Mutex
	legs []OutboundLeg
	err  error
}

func (g *fakeGateway) CreateOutboundLeg(ctx context.Context, leg OutboundLeg) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.legs = append(g.legs, leg)
	return g.err
}

type fakeGreeter struct {
	instructions []string
	err          error
}

func (g *fakeGreeter) GenerateReply(ctx context.Context, instructions string) error {
	g.instructions = append(g.instructions, instructions)
	return g.err
}

type harness struct {
	gw        *fakeGateway
	greeter   *fakeGreeter
	shutdowns []string
	states    []State
	ctrl      *Controller
}

func newHarness(t *testing.T, trunk string, gwErr error) *harness {
	t.Helper()
	h := &harness{gw: &fakeGateway{err: gwErr}, greeter: &fakeGreeter{}}
	cfg := Config{
		Room:             "call-15550100-ab12",
		TrunkID:          trunk,
		InitialGreeting:  "introduce yourself",
		FallbackGreeting: "greet the user",
	}
	h.ctrl = New(cfg, h.gw, h.greeter, func(reason string) { h.shutdowns = append(h.shutdowns, reason) },
		WithObserver(ObserverFunc(func(room string, from, to State) { h.states = append(h.states, to) })))
	if err := h.ctrl.SessionStarted(); err != nil {
		t.Fatalf("SessionStarted: %v", err)
	}
	return h
}

func TestDialSuccessGreetsOnce(t *testing.T) {
	h := newHarness(t, "ST_trunk", nil)

	if err := h.ctrl.Run(context.Background(), presence.DialOut, "+15550100"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.gw.legs) != 1 {
		t.Fatalf("expected one outbound leg, got %d", len(h.gw.legs))
	}
	leg := h.gw.legs[0]
	want := OutboundLeg{Room: "call-15550100-ab12", TrunkID: "ST_trunk", Number: "+15550100", Identity: "sip_+15550100", WaitUntilAnswered: true}
	if leg != want {
		t.Errorf("unexpected leg %+v", leg)
	}
	if len(h.greeter.instructions) != 1 || h.greeter.instructions[0] != "introduce yourself" {
		t.Errorf("expected exactly one introduce greeting, got %v", h.greeter.instructions)
	}
	if len(h.shutdowns) != 0 {
		t.Errorf("unexpected shutdown %v", h.shutdowns)
	}
	if h.ctrl.State() != Greeted {
		t.Errorf("expected greeted, got %s", h.ctrl.State())
	}
	wantStates := []State{SessionStarted, Dialing, Answered, Greeted}
	if len(h.states) != len(wantStates) {
		t.Fatalf("unexpected transitions %v", h.states)
	}
	for i := range wantStates {
		if h.states[i] != wantStates[i] {
			t.Errorf("transition %d = %s, want %s", i, h.states[i], wantStates[i])
		}
	}
}

func TestDialFailureShutsDown(t *testing.T) {
	gwErr := errors.New("486 busy here")
	h := newHarness(t, "ST_trunk", gwErr)

	err := h.ctrl.Run(context.Background(), presence.DialOut, "+15550100")
	var dialErr *DialError
	if !errors.As(err, &dialErr) || !errors.Is(err, gwErr) {
		t.Fatalf("expected DialError wrapping gateway error, got %v", err)
	}
	if len(h.shutdowns) != 1 {
		t.Fatalf("expected one shutdown, got %v", h.shutdowns)
	}
	if len(h.greeter.instructions) != 0 {
		t.Errorf("expected zero greetings, got %v", h.greeter.instructions)
	}
	if len(h.gw.legs) != 1 {
		t.Errorf("dial must not be retried, got %d attempts", len(h.gw.legs))
	}
	if h.ctrl.State() != DialFailed {
		t.Errorf("expected dial_failed, got %s", h.ctrl.State())
	}
}

func TestDialWithoutTrunkFails(t *testing.T) {
	h := newHarness(t, "", nil)

	err := h.ctrl.Run(context.Background(), presence.DialOut, "+15550100")
	if !errors.Is(err, ErrNoTrunk) {
		t.Fatalf("expected ErrNoTrunk, got %v", err)
	}
	if len(h.gw.legs) != 0 || len(h.greeter.instructions) != 0 || len(h.shutdowns) != 1 {
		t.Errorf("legs=%d greetings=%d shutdowns=%d", len(h.gw.legs), len(h.greeter.instructions), len(h.shutdowns))
	}
}

func TestSkipUsesFallbackGreeting(t *testing.T) {
	for _, d := range []presence.Decision{presence.AlreadyPresent, presence.NoNumber} {
		h := newHarness(t, "ST_trunk", nil)
		if err := h.ctrl.Run(context.Background(), d, "+15550100"); err != nil {
			t.Fatalf("%s: Run: %v", d, err)
		}
		if len(h.gw.legs) != 0 {
			t.Errorf("%s: must not dial", d)
		}
		if len(h.greeter.instructions) != 1 || h.greeter.instructions[0] != "greet the user" {
			t.Errorf("%s: unexpected greetings %v", d, h.greeter.instructions)
		}
		if h.ctrl.State() != FallbackGreeted {
			t.Errorf("%s: expected fallback_greeted, got %s", d, h.ctrl.State())
		}
	}
}

func TestGreetingFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, "ST_trunk", nil)
	h.greeter.err = errors.New("tts down")

	if err := h.ctrl.Run(context.Background(), presence.DialOut, "+15550100"); err == nil {
		t.Fatal("expected greeting error")
	}
	if len(h.shutdowns) != 0 {
		t.Errorf("greeting failure must not shut down the job")
	}
	if h.ctrl.State() != Answered {
		t.Errorf("expected answered, got %s", h.ctrl.State())
	}
}

func TestRunBeforeSessionStart(t *testing.T) {
	ctrl := New(Config{TrunkID: "t"}, &fakeGateway{}, &fakeGreeter{}, nil)
	if err := ctrl.Run(context.Background(), presence.DialOut, "1"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}
