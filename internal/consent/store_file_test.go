package consent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"veil/internal/domain"
	"veil/internal/storage"
)

type FileStoreSuite struct {
	suite.Suite
	ctx   context.Context
	dir   string
	store *FileStore
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	store, err := NewFileStore(s.dir, zap.NewNop())
	s.Require().NoError(err)
	s.store = store
}

func (s *FileStoreSuite) newConsent(id string, ts time.Time) *Consent {
	return &Consent{
		ConsentID:      id,
		UserID:         "user-1",
		PolicyID:       "pol-1",
		DataCategories: []domain.DataCategory{domain.CategoryContact},
		Purposes:       []domain.Purpose{domain.PurposeAnalytics},
		Timestamp:      ts.UTC(),
		IsActive:       true,
	}
}

func (s *FileStoreSuite) TestPersistenceAcrossReopen() {
	base := time.Now()
	s.Require().NoError(s.store.Save(s.ctx, s.newConsent("c-1", base.Add(-time.Hour))))
	s.Require().NoError(s.store.Save(s.ctx, s.newConsent("c-2", base)))

	reopened, err := NewFileStore(s.dir, zap.NewNop())
	s.Require().NoError(err)

	got, err := reopened.ListByUserPolicy(s.ctx, "user-1", "pol-1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("c-2", got[0].ConsentID)
}

func (s *FileStoreSuite) TestUpsertOverwrites() {
	c := s.newConsent("c-1", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, c))

	c.IsActive = false
	s.Require().NoError(s.store.Save(s.ctx, c))

	got, err := s.store.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.False(got[0].IsActive)
}

func (s *FileStoreSuite) TestCorruptRecordSkipped() {
	s.Require().NoError(s.store.Save(s.ctx, s.newConsent("c-1", time.Now())))

	path := filepath.Join(s.dir, storage.SafeName("user-1"), "c-2.json")
	s.Require().NoError(os.WriteFile(path, []byte("{broken"), 0o644))

	got, err := s.store.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Len(got, 1)
}
