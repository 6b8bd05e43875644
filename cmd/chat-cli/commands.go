package main

import (
	"fmt"
	"strings"

	"github.com/marketbridge/chat-sdk/pkg/encoding"
)

// execute runs one input line and reports whether the client should quit.
func (m *model) execute(line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "/quit":
		return true
	case "/help":
		m.lines = append(m.lines, strings.Split(helpText, "\n")...)
	case "/join":
		if arg == "" {
			m.appendLine("usage: /join <room>")
			return false
		}
		if m.room != "" && m.room != arg {
			_ = m.client.LeaveRoom(m.room, m.userID)
		}
		m.room = arg
		m.client.SubscribeRoom(arg)
		err = m.client.JoinRoom(arg, m.userID)
	case "/leave":
		if m.room == "" {
			return false
		}
		err = m.client.LeaveRoom(m.room, m.userID)
		m.appendLine(noticeStyle.Render("left room " + m.room))
		m.room = ""
	case "/read":
		if m.room == "" {
			return false
		}
		err = m.client.MarkAsRead(m.room, m.userID)
	case "/unread":
		m.appendLine(fmt.Sprintf("%d unread", m.client.UnreadCount()))
	case "/status":
		m.appendLine(fmt.Sprintf("%s, rooms %v, %d messages", m.client.State(), m.client.Rooms(), len(m.client.Messages())))
	default:
		if strings.HasPrefix(cmd, "/") {
			m.appendLine("unknown command " + cmd)
			return false
		}
		if m.room == "" {
			m.appendLine("join a room first")
			return false
		}
		err = m.client.SendMessage(&encoding.ChatMessage{
			ChatRoomID: encoding.ID(m.room),
			SenderID:   encoding.ID(m.userID),
			Content:    line,
		})
	}
	if err != nil {
		m.appendLine(errorStyle.Render("! " + err.Error()))
	}
	return false
}
