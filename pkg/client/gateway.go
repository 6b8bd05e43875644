package client

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/marketbridge/chat-sdk/pkg/core"
	"github.com/marketbridge/chat-sdk/pkg/encoding"
	"github.com/marketbridge/chat-sdk/pkg/transport"
)

type sessionSource interface {
	activeSession() transport.Session
}

// Gateway sends chat commands to the backend. Sends are gated on the
// connection: while disconnected nothing is transmitted and
// core.ErrNotConnected is returned. MarkAsRead is the exception, see below.
type Gateway struct {
	sessions   sessionSource
	registry   *Registry
	dispatcher *Dispatcher
	logger     *logrus.Entry
}

func newGateway(sessions sessionSource, registry *Registry, dispatcher *Dispatcher, logger *logrus.Entry) *Gateway {
	return &Gateway{
		sessions:   sessions,
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SendMessage sends msg to the chat.sendMessage destination. An empty Type
// is sent as CHAT.
func (g *Gateway) SendMessage(msg *encoding.ChatMessage) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}
	sess := g.session(core.DestinationSendMessage)
	if sess == nil {
		return core.ErrNotConnected
	}

	out := *msg
	if out.Type == "" {
		out.Type = encoding.TypeChat
	}
	if err := out.Validate(); err != nil {
		return err
	}
	body, err := out.ToJSON()
	if err != nil {
		return err
	}
	return g.send(sess, core.DestinationSendMessage, body)
}

// JoinRoom sends a JOIN command for roomID. It does not subscribe to the room.
func (g *Gateway) JoinRoom(roomID, senderID string) error {
	sess := g.session(core.DestinationJoinRoom)
	if sess == nil {
		return core.ErrNotConnected
	}
	return g.command(sess, core.DestinationJoinRoom, roomID, senderID, encoding.TypeJoin)
}

// LeaveRoom sends a LEAVE command for roomID and cancels the local room
// subscription, if any. The subscription is dropped whether or not the
// command could be sent.
func (g *Gateway) LeaveRoom(roomID, senderID string) error {
	defer g.registry.UnsubscribeRoom(roomID)

	sess := g.session(core.DestinationLeaveRoom)
	if sess == nil {
		return core.ErrNotConnected
	}
	return g.command(sess, core.DestinationLeaveRoom, roomID, senderID, encoding.TypeLeave)
}

// MarkAsRead resets the global unread counter and, when connected, sends a
// READ command for roomID. The counter is reset before the send and
// regardless of its outcome; while disconnected only the counter changes.
func (g *Gateway) MarkAsRead(roomID, senderID string) error {
	g.dispatcher.ResetUnread()

	sess := g.session(core.DestinationMarkAsRead)
	if sess == nil {
		return nil
	}
	return g.command(sess, core.DestinationMarkAsRead, roomID, senderID, encoding.TypeRead)
}

func (g *Gateway) session(destination string) transport.Session {
	sess := g.sessions.activeSession()
	if sess == nil {
		g.logger.WithField("destination", destination).Debug("not connected, send dropped")
	}
	return sess
}

func (g *Gateway) command(sess transport.Session, destination, roomID, senderID string, t encoding.MessageType) error {
	body, err := encoding.EncodeCommand(encoding.ID(roomID), encoding.ID(senderID), t)
	if err != nil {
		return err
	}
	return g.send(sess, destination, body)
}

func (g *Gateway) send(sess transport.Session, destination string, body []byte) error {
	if err := sess.Send(destination, body); err != nil {
		g.logger.WithField("destination", destination).WithError(err).Warn("send failed")
		return err
	}
	return nil
}
