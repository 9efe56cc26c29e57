package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
)

func TestAuthorize(t *testing.T) {
	defaults := domain.DefaultMeetingFlags()
	locked := domain.MeetingFlags{}

	tests := []struct {
		name   string
		action domain.Action
		role   domain.Role
		flags  domain.MeetingFlags
		want   bool
	}{
		{"host ends", domain.ActionEndMeeting, domain.RoleHost, defaults, true},
		{"co-host ends", domain.ActionEndMeeting, domain.RoleCoHost, defaults, true},
		{"participant cannot end", domain.ActionEndMeeting, domain.RoleParticipant, defaults, false},
		{"participant lists", domain.ActionListParticipants, domain.RoleParticipant, locked, true},
		{"unknown role cannot list", domain.ActionListParticipants, domain.Role("viewer"), defaults, false},
		{"participant shares when allowed", domain.ActionShareScreen, domain.RoleParticipant, defaults, true},
		{"participant cannot share when locked", domain.ActionShareScreen, domain.RoleParticipant, locked, false},
		{"host shares when locked", domain.ActionShareScreen, domain.RoleHost, locked, true},
		{"participant cannot unmute when locked", domain.ActionUnmute, domain.RoleParticipant, locked, false},
		{"co-host unmutes when locked", domain.ActionUnmute, domain.RoleCoHost, locked, true},
		{"chat enabled", domain.ActionChat, domain.RoleParticipant, defaults, true},
		{"chat disabled applies to host", domain.ActionChat, domain.RoleHost, locked, false},
		{"reactions disabled", domain.ActionReact, domain.RoleParticipant, locked, false},
		{"unknown action", domain.Action("kick"), domain.RoleHost, defaults, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Authorize(tt.action, tt.role, tt.flags))
		})
	}
}

func TestAuthorizeMedia(t *testing.T) {
	on, off := true, false
	locked := domain.MeetingFlags{}

	assert.False(t, domain.AuthorizeMedia(domain.MediaPatch{SharingScreen: &on}, domain.RoleParticipant, locked))
	assert.True(t, domain.AuthorizeMedia(domain.MediaPatch{SharingScreen: &off}, domain.RoleParticipant, locked))
	assert.False(t, domain.AuthorizeMedia(domain.MediaPatch{Muted: &off}, domain.RoleParticipant, locked))
	assert.True(t, domain.AuthorizeMedia(domain.MediaPatch{Muted: &on}, domain.RoleParticipant, locked))
	assert.True(t, domain.AuthorizeMedia(domain.MediaPatch{Muted: &off, SharingScreen: &on}, domain.RoleHost, locked))
}
