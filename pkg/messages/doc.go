/*
Package messages provides the shared message log of the chat SDK.

# Overview

Every inbound message, whether it arrived on the personal inbox queue or on a
room topic, is appended to a single insertion-ordered Log. The log is not
partitioned by room; ByRoom is a read-side filter over the one sequence.

# Basic Usage

	log := messages.NewLog()
	log.Append(env)

	for _, env := range log.All() {
		fmt.Println(env.Kind, env.RoomID, string(env.Payload))
	}

# Bounded Logs

By default the log keeps every message. A MaxMessages cap drops the oldest
entries once exceeded:

	log := messages.NewLog(messages.LogOptions{MaxMessages: 500})

# Thread Safety

Log is safe for concurrent use. All and Last return copies of the
underlying slice; the envelopes themselves are shared and must be treated as
read-only.
*/
package messages
