package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type FileLogSuite struct {
	suite.Suite
	ctx  context.Context
	path string
	log  *FileLog
}

func TestFileLogSuite(t *testing.T) {
	suite.Run(t, new(FileLogSuite))
}

func (s *FileLogSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "audit.log")
	l, err := OpenFileLog(s.path, zap.NewNop())
	s.Require().NoError(err)
	s.log = l
}

func (s *FileLogSuite) append(userID string) *Entry {
	entry, err := s.log.Append(s.ctx, Entry{
		EventType: EventEnforcementDecision,
		UserID:    userID,
		PolicyID:  "pol-1",
		Status:    "allowed_raw",
	})
	s.Require().NoError(err)
	return entry
}

func (s *FileLogSuite) TestChainLinks() {
	first := s.append("u1")
	s.Empty(first.PreviousLogHash)
	s.NotEmpty(first.CurrentEntryHash)
	s.NotEmpty(first.EventID)
	s.False(first.Timestamp.IsZero())

	second := s.append("u2")
	s.Equal(first.CurrentEntryHash, second.PreviousLogHash)
	s.Equal(second.CurrentEntryHash, s.log.LastHash())

	count, err := s.log.Verify(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *FileLogSuite) TestReopenRecoversChain() {
	first := s.append("u1")
	second := s.append("u2")

	reopened, err := OpenFileLog(s.path, zap.NewNop())
	s.Require().NoError(err)
	s.Equal(second.CurrentEntryHash, reopened.LastHash())

	third, err := reopened.Append(s.ctx, Entry{
		EventType: EventConsentGranted,
		UserID:    "u3",
		PolicyID:  "pol-1",
		Status:    "consent_granted",
	})
	s.Require().NoError(err)
	s.Equal(second.CurrentEntryHash, third.PreviousLogHash)
	s.NotEqual(first.CurrentEntryHash, third.PreviousLogHash)

	count, err := reopened.Verify(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *FileLogSuite) TestVerifyDetectsTampering() {
	s.append("u1")
	s.append("u2")
	s.append("u3")

	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	tampered := strings.Replace(string(data), `"user_id":"u2"`, `"user_id":"u9"`, 1)
	s.Require().NotEqual(string(data), tampered)
	s.Require().NoError(os.WriteFile(s.path, []byte(tampered), 0o644))

	count, err := s.log.Verify(s.ctx)
	s.Require().Error(err)
	s.Equal(1, count)
}

func (s *FileLogSuite) TestEntriesSkipsUnparseableLines() {
	s.append("u1")
	s.append("u2")

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	s.Require().NoError(err)
	_, err = f.WriteString("not json\n")
	s.Require().NoError(err)
	s.Require().NoError(f.Close())

	entries, err := s.log.Entries(s.ctx)
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *FileLogSuite) TestHashExcludesItself() {
	entry := s.append("u1")

	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	var onDisk Entry
	s.Require().NoError(json.Unmarshal(data, &onDisk))

	s.Equal(entry.CurrentEntryHash, computeHash(onDisk))
}

func TestHashRecord(t *testing.T) {
	a := map[string]any{"email": "a@example.com", "name": "Ada"}
	b := map[string]any{"name": "Ada", "email": "a@example.com"}
	if HashRecord(a) != HashRecord(b) {
		t.Fatal("hash must be key-order independent")
	}
	c := map[string]any{"email": "b@example.com", "name": "Ada"}
	if HashRecord(a) == HashRecord(c) {
		t.Fatal("hash must change with content")
	}
}

