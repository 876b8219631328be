package memory

import (
	"context"
	"testing"
	"time"

	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/storage"
	"github.com/stretchr/testify/suite"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Display name tests

func (s *StorageSuite) TestClaimDisplayNameIsExclusive() {
	ok, err := s.storage.ClaimDisplayName(s.ctx, "alice", "s1")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.storage.ClaimDisplayName(s.ctx, "alice", "s2")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestReleaseDisplayNameOnlyByOwner() {
	_, _ = s.storage.ClaimDisplayName(s.ctx, "alice", "s1")

	s.Require().NoError(s.storage.ReleaseDisplayName(s.ctx, "alice", "s2"))
	ok, _ := s.storage.ClaimDisplayName(s.ctx, "alice", "s2")
	s.False(ok)

	s.Require().NoError(s.storage.ReleaseDisplayName(s.ctx, "alice", "s1"))
	ok, _ = s.storage.ClaimDisplayName(s.ctx, "alice", "s2")
	s.True(ok)
}

func (s *StorageSuite) TestRefreshDisplayNameChecksOwner() {
	_, _ = s.storage.ClaimDisplayName(s.ctx, "alice", "s1")

	held, err := s.storage.RefreshDisplayName(s.ctx, "alice", "s1")
	s.Require().NoError(err)
	s.True(held)

	held, _ = s.storage.RefreshDisplayName(s.ctx, "alice", "s2")
	s.False(held)
	held, _ = s.storage.RefreshDisplayName(s.ctx, "bob", "s1")
	s.False(held)
}

// Lobby directory tests

func (s *StorageSuite) TestSaveAndGetLobbySummary() {
	summary := &model.LobbySummary{
		ID:        "ABC234",
		Owner:     "alice",
		Members:   []string{"alice", "bob"},
		Settings:  model.DefaultGameSettings(),
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.storage.SaveLobbySummary(s.ctx, summary))

	got, err := s.storage.GetLobbySummary(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal("alice", got.Owner)
	s.Equal([]string{"alice", "bob"}, got.Members)

	summary.Members[0] = "mallory"
	got, _ = s.storage.GetLobbySummary(s.ctx, "ABC234")
	s.Equal("alice", got.Members[0])
}

func (s *StorageSuite) TestGetLobbySummaryNotFound() {
	_, err := s.storage.GetLobbySummary(s.ctx, "NOPE22")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *StorageSuite) TestListAndDeleteLobbySummaries() {
	_ = s.storage.SaveLobbySummary(s.ctx, &model.LobbySummary{ID: "ZZZ222"})
	_ = s.storage.SaveLobbySummary(s.ctx, &model.LobbySummary{ID: "AAA222"})

	list, err := s.storage.ListLobbySummaries(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(model.LobbyID("AAA222"), list[0].ID)

	exists, _ := s.storage.LobbyExists(s.ctx, "ZZZ222")
	s.True(exists)

	s.Require().NoError(s.storage.DeleteLobbySummary(s.ctx, "ZZZ222"))
	exists, _ = s.storage.LobbyExists(s.ctx, "ZZZ222")
	s.False(exists)

	list, _ = s.storage.ListLobbySummaries(s.ctx)
	s.Len(list, 1)
}

// Game result tests

func (s *StorageSuite) TestGameResultsAreCapped() {
	for i := 0; i < storage.DefaultMaxResults+5; i++ {
		err := s.storage.AppendGameResult(s.ctx, &model.GameResult{LobbyID: "ABC234", Rounds: i})
		s.Require().NoError(err)
	}

	results, err := s.storage.GetGameResults(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Len(results, storage.DefaultMaxResults)
	s.Equal(5, results[0].Rounds)
}

func (s *StorageSuite) TestGameResultsEmptyForUnknownLobby() {
	results, err := s.storage.GetGameResults(s.ctx, "NOPE22")
	s.Require().NoError(err)
	s.Empty(results)
}

// Word pool tests

func (s *StorageSuite) TestWordPoolEmptyByDefault() {
	_, err := s.storage.GetWordPool(s.ctx)
	s.ErrorIs(err, model.ErrWordPoolEmpty)
}

func (s *StorageSuite) TestSaveWordPoolKeepsOrder() {
	s.Require().NoError(s.storage.SaveWordPool(s.ctx, []string{"cat", "dog", "ice cream"}))

	words, err := s.storage.GetWordPool(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"cat", "dog", "ice cream"}, words)
}
