package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
)

// Version is the only STOMP protocol version spoken on the socket.
const Version = "1.2"

// HeartBeatEOL is written on the socket as a heart-beat.
var HeartBeatEOL = []byte{'\n'}

// Encode serializes one frame into a WebSocket message payload.
func Encode(f *frame.Frame) ([]byte, error) {
	if f == nil {
		return nil, errors.New("cannot encode nil frame")
	}
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Command, err)
	}
	return buf.Bytes(), nil
}

// Decode parses every frame contained in one WebSocket message. Heart-beats
// are skipped, so a pure heart-beat message yields no frames.
func Decode(data []byte) ([]*frame.Frame, error) {
	r := frame.NewReader(bytes.NewReader(data))
	var frames []*frame.Frame
	for {
		f, err := r.Read()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("decode frame: %w", err)
		}
		if f == nil {
			continue
		}
		frames = append(frames, f)
	}
}

// FormatHeartBeat renders a heart-beat header value in milliseconds.
func FormatHeartBeat(send, receive time.Duration) string {
	return strconv.FormatInt(send.Milliseconds(), 10) + "," + strconv.FormatInt(receive.Milliseconds(), 10)
}

// ParseHeartBeat parses a heart-beat header value. An empty value means
// no heart-beating in either direction.
func ParseHeartBeat(value string) (send, receive time.Duration, err error) {
	if value == "" {
		return 0, 0, nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid heart-beat %q", value)
	}
	sx, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || sx < 0 {
		return 0, 0, fmt.Errorf("invalid heart-beat %q", value)
	}
	sy, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || sy < 0 {
		return 0, 0, fmt.Errorf("invalid heart-beat %q", value)
	}
	return time.Duration(sx) * time.Millisecond, time.Duration(sy) * time.Millisecond, nil
}

// Negotiate returns the effective heart-beat intervals for one side of the
// session, given what it offered and what the peer offered. A zero interval
// disables heart-beating in that direction.
func Negotiate(localSend, localReceive, peerSend, peerReceive time.Duration) (send, receive time.Duration) {
	if localSend > 0 && peerReceive > 0 {
		send = max(localSend, peerReceive)
	}
	if localReceive > 0 && peerSend > 0 {
		receive = max(localReceive, peerSend)
	}
	return send, receive
}
