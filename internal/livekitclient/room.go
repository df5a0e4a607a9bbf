package livekitclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/livekit/protocol/logger"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/rapidxai/outbound-caller/internal/agents"
	"github.com/rapidxai/outbound-caller/internal/telephony"
	lktoken "github.com/rapidxai/outbound-caller/libs/livekit"
)

const (
	// frameDuration and frameSize describe one 8kHz mu-law packet.
	frameDuration = 20 * time.Millisecond
	frameSize     = 160

	// callerChunk is how much caller audio is gathered before it goes to STT.
	callerChunk = 2 * time.Second

	tokenTTL = 6 * time.Hour
)

// Connector joins rooms as the agent using API credentials.
type Connector struct {
	URL       string
	APIKey    string
	APISecret string
	Log       logger.Logger
}

func (c *Connector) Connect(ctx context.Context, roomName, identity string) (agents.ConnectedRoom, error) {
	log := c.Log
	if log == nil {
		log = logger.GetLogger()
	}
	token, err := lktoken.GenerateAccessToken(c.APIKey, c.APISecret, roomName, identity, tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("agent token: %w", err)
	}

	r := &Room{
		name: roomName,
		log:  log.WithValues("room", roomName),
		done: make(chan struct{}),
		legs: map[string]bool{},
	}
	ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.ctx = ctx

	cb := lksdk.NewRoomCallback()
	cb.OnParticipantConnected = r.participantConnected
	cb.OnParticipantDisconnected = r.participantDisconnected
	cb.OnDisconnected = func() { r.close("disconnected") }
	cb.ParticipantCallback.OnTrackSubscribed = r.trackSubscribed

	room, err := lksdk.ConnectToRoomWithToken(c.URL, token, cb, lksdk.WithAutoSubscribe(true))
	if err != nil {
		r.cancel()
		return nil, fmt.Errorf("join room %s: %w", roomName, err)
	}
	r.room = room
	r.metadata = room.Metadata()

	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypePCMU,
		ClockRate: 8000,
		Channels:  1,
	})
	if err != nil {
		room.Disconnect()
		r.cancel()
		return nil, fmt.Errorf("create agent track: %w", err)
	}
	if _, err := room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{Name: "agent-voice"}); err != nil {
		room.Disconnect()
		r.cancel()
		return nil, fmt.Errorf("publish agent track: %w", err)
	}
	r.track = track

	for _, p := range room.GetRemoteParticipants() {
		r.participantConnected(p)
	}
	return r, nil
}

// Room adapts a joined LiveKit room to the agent. It speaks through a PCMU
// track and hands caller audio to the registered handler in chunks.
type Room struct {
	name     string
	metadata string
	room     *lksdk.Room
	track    *lksdk.LocalSampleTrack
	log      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	onAudio func(ctx context.Context, audio []byte)
	legs    map[string]bool

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (r *Room) Name() string { return r.name }
func (r *Room) Metadata() string { return r.metadata }

func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) OnAudio(handler func(ctx context.Context, audio []byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAudio = handler
}

func (r *Room) RemoteParticipants() []telephony.Participant {
	if r.room == nil {
		return nil
	}
	remote := r.room.GetRemoteParticipants()
	out := make([]telephony.Participant, 0, len(remote))
	for _, p := range remote {
		out = append(out, telephony.Participant{Identity: p.Identity()})
	}
	return out
}

// WriteAudio plays 8kHz mu-law audio into the room in real time. Utterances
// are not interleaved.
func (r *Room) WriteAudio(ctx context.Context, audio []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for _, frame := range frames(audio, frameSize) {
		if err := r.track.WriteSample(media.Sample{Data: frame, Duration: frameDuration}, nil); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return errors.New("room closed")
		case <-ticker.C:
		}
	}
	return nil
}

func (r *Room) Disconnect() {
	r.close("agent left")
	if r.room != nil {
		r.room.Disconnect()
	}
}

func (r *Room) close(reason string) {
	r.closeOnce.Do(func() {
		r.log.Infow("room closed", "reason", reason)
		r.cancel()
		close(r.done)
	})
}

func (r *Room) participantConnected(p *lksdk.RemoteParticipant) {
	identity := p.Identity()
	r.log.Infow("participant joined", "participant", identity)
	if telephony.IsTelephonyLeg(identity) {
		r.mu.Lock()
		r.legs[identity] = true
		r.mu.Unlock()
	}
}

// participantDisconnected closes the room once the callee hangs up.
func (r *Room) participantDisconnected(p *lksdk.RemoteParticipant) {
	identity := p.Identity()
	r.log.Infow("participant left", "participant", identity)
	r.mu.Lock()
	wasLeg := r.legs[identity]
	delete(r.legs, identity)
	r.mu.Unlock()
	if wasLeg {
		r.close("caller hung up")
	}
}

func (r *Room) trackSubscribed(track *webrtc.TrackRemote, _ *lksdk.RemoteTrackPublication, p *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	codec := track.Codec().MimeType
	if codec != webrtc.MimeTypePCMU {
		// TODO: decode Opus tracks to PCM before they reach STT.
		r.log.Warnw("caller track is not PCMU, transcription may fail", nil, "participant", p.Identity(), "codec", codec)
	}
	go r.readTrack(track, p.Identity())
}

// readTrack gathers RTP payloads of track and flushes them to the audio
// handler every callerChunk.
func (r *Room) readTrack(track *webrtc.TrackRemote, identity string) {
	packets := make(chan []byte, 64)
	go func() {
		defer close(packets)
		for {
			pkt, _, err := track.ReadRTP()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					r.log.Debugw("caller track ended", "participant", identity, "error", err)
				}
				return
			}
			select {
			case packets <- pkt.Payload:
			case <-r.ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(callerChunk)
	defer ticker.Stop()
	var buf []byte
	for {
		select {
		case <-r.ctx.Done():
			return
		case payload, ok := <-packets:
			if !ok {
				r.flush(buf)
				return
			}
			buf = append(buf, payload...)
		case <-ticker.C:
			r.flush(buf)
			buf = nil
		}
	}
}

func (r *Room) flush(audio []byte) {
	if len(audio) == 0 {
		return
	}
	r.mu.Lock()
	handler := r.onAudio
	r.mu.Unlock()
	if handler != nil {
		handler(r.ctx, audio)
	}
}

// frames splits audio into packets of size bytes. The last one may be short.
func frames(audio []byte, size int) [][]byte {
	if size <= 0 || len(audio) == 0 {
		return nil
	}
	out := make([][]byte, 0, (len(audio)+size-1)/size)
	for i := 0; i < len(audio); i += size {
		end := min(i+size, len(audio))
		out = append(out, audio[i:end])
	}
	return out
}
