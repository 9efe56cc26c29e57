package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming. Every room, including personal user channels, publishes on
// rooms:{room key}; each instance holds one pattern subscription over all of
// them so that per-room order survives the hop through the broker.
const (
	ChannelRoom  = "rooms:%s"
	PatternRooms = "rooms:*"

	roomChannelPrefix = "rooms:"
)

// RoomChannel returns the broker channel for a room key.
func RoomChannel(roomKey string) string {
	return fmt.Sprintf(ChannelRoom, roomKey)
}

// RoomKeyFromChannel is the inverse of RoomChannel.
func RoomKeyFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, roomChannelPrefix) || len(channel) == len(roomChannelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, roomChannelPrefix), true
}
