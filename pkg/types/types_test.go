package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRankName(t *testing.T) {
	require.Equal(t, "زائر", RankName(RankVisitor))
	require.Equal(t, "إداري", RankName(RankAdmin))
	require.Equal(t, "مالك الموقع", RankName(RankOwner))

	// Out-of-range falls back to the visitor name.
	require.Equal(t, "زائر", RankName(-1))
	require.Equal(t, "زائر", RankName(99))
}

func TestIsValidRank(t *testing.T) {
	for rank := RankVisitor; rank <= RankAdmin; rank++ {
		require.True(t, IsValidRank(rank))
	}
	require.False(t, IsValidRank(-1))
	require.False(t, IsValidRank(RankAdmin+1))
}

func TestUser_MutedNow(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name  string
		user  User
		muted bool
	}{
		{"not muted", User{}, false},
		{"active mute", User{IsMuted: true, MuteUntil: &future}, true},
		{"expired mute", User{IsMuted: true, MuteUntil: &past}, false},
		{"flag without deadline", User{IsMuted: true}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.muted, tc.user.MutedNow(now))
		})
	}
}

func TestChatError_Kind(t *testing.T) {
	tests := []struct {
		err  *ChatError
		kind ErrorKind
	}{
		{NewAuthError(), KindAuth},
		{NewBannedError("spam"), KindBanned},
		{NewUnknownRoomError(), KindUnknownRoom},
		{NewFloodError(), KindFlood},
		{NewMutedError(), KindMuted},
		{NewStorageError(), KindStorage},
	}
	for _, tc := range tests {
		require.Equal(t, tc.kind, KindOf(tc.err))
		require.NotEmpty(t, tc.err.Message)
	}
}

func TestKindOf_WrappedAndForeignErrors(t *testing.T) {
	wrapped := fmt.Errorf("dispatch failed: %w", NewMutedError())
	require.Equal(t, KindMuted, KindOf(wrapped))

	require.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	require.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestNewBannedError_DefaultReason(t *testing.T) {
	withReason := NewBannedError("سبام")
	require.Contains(t, withReason.Message, "سبام")

	noReason := NewBannedError("")
	require.Contains(t, noReason.Message, "لم يتم تحديد السبب")
}

func TestIsValidReaction(t *testing.T) {
	require.True(t, IsValidReaction(ReactionLike))
	require.True(t, IsValidReaction(ReactionDislike))
	require.True(t, IsValidReaction(ReactionLove))
	require.False(t, IsValidReaction("angry"))
	require.False(t, IsValidReaction(""))
}
