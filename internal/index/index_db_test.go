package index

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"

	"github.com/soundmark/soundmark/internal/fingerprint"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	return idx
}

func hashOf(b byte) fingerprint.Hash {
	var h fingerprint.Hash
	h[0] = b
	return h
}

func TestInsertSongCreatesThenUpsertsByName(t *testing.T) {
	idx := newTestIndex(t)

	id1, err := idx.InsertSong(Metadata{SongName: "same-song", Title: "Same Song", Artist: "A"})
	require.NoError(t, err)
	require.NotZero(t, id1)

	id2, err := idx.InsertSong(Metadata{SongName: "same-song", Title: "Same Song (Remastered)", Artist: "B"})
	require.NoError(t, err)
	require.Equal(t, id1, id2, "inserting the same song_name must return the existing song_id")

	var stored Song
	require.NoError(t, idx.db.First(&stored, id1).Error)
	require.Equal(t, "Same Song", stored.Title, "the original row is not overwritten by a conflicting insert")
}

func TestInsertSongFallsBackToTitleWhenSongNameEmpty(t *testing.T) {
	idx := newTestIndex(t)
	id, err := idx.InsertSong(Metadata{Title: "Untitled Track"})
	require.NoError(t, err)

	var stored Song
	require.NoError(t, idx.db.First(&stored, id).Error)
	require.Equal(t, "Untitled Track", stored.SongName)
}

func TestBulkInsertFingerprintsMarksSongFingerprinted(t *testing.T) {
	idx := newTestIndex(t)
	songID, err := idx.InsertSong(Metadata{SongName: "track-a"})
	require.NoError(t, err)

	rows := make([]Fingerprint, 50)
	for i := range rows {
		rows[i] = Fingerprint{Hash: hashOf(byte(i)), SongID: songID, TimeOffset: int32(i)}
	}
	require.NoError(t, idx.BulkInsertFingerprints(rows, songID))

	var stored Song
	require.NoError(t, idx.db.First(&stored, songID).Error)
	require.True(t, stored.Fingerprinted)

	var count int64
	require.NoError(t, idx.db.Model(&Fingerprint{}).Where("song_id = ?", songID).Count(&count).Error)
	require.EqualValues(t, 50, count)
}

func TestBulkInsertFingerprintsChunksAcrossBoundary(t *testing.T) {
	idx := newTestIndex(t)
	songID, err := idx.InsertSong(Metadata{SongName: "track-b"})
	require.NoError(t, err)

	n := insertChunkSize + 25
	rows := make([]Fingerprint, n)
	for i := range rows {
		var h fingerprint.Hash
		h[0] = byte(i)
		h[1] = byte(i >> 8)
		rows[i] = Fingerprint{Hash: h, SongID: songID, TimeOffset: int32(i)}
	}
	require.NoError(t, idx.BulkInsertFingerprints(rows, songID))

	var count int64
	require.NoError(t, idx.db.Model(&Fingerprint{}).Where("song_id = ?", songID).Count(&count).Error)
	require.EqualValues(t, n, count)
}

func TestFindMatchesRanksByVotesThenConfidence(t *testing.T) {
	idx := newTestIndex(t)

	strongID, err := idx.InsertSong(Metadata{SongName: "strong-match"})
	require.NoError(t, err)
	weakID, err := idx.InsertSong(Metadata{SongName: "weak-match"})
	require.NoError(t, err)

	sharedHashes := make([]fingerprint.Hash, 30)
	for i := range sharedHashes {
		sharedHashes[i] = hashOf(byte(i))
	}

	// strongID matches on every query hash, weakID only on the first 20.
	strongRows := make([]Fingerprint, len(sharedHashes))
	for i, h := range sharedHashes {
		strongRows[i] = Fingerprint{Hash: h, SongID: strongID, TimeOffset: int32(i)}
	}
	require.NoError(t, idx.BulkInsertFingerprints(strongRows, strongID))

	weakRows := make([]Fingerprint, 20)
	for i := 0; i < 20; i++ {
		weakRows[i] = Fingerprint{Hash: sharedHashes[i], SongID: weakID, TimeOffset: int32(i)}
	}
	require.NoError(t, idx.BulkInsertFingerprints(weakRows, weakID))

	query := make([]QueryHash, len(sharedHashes))
	for i, h := range sharedHashes {
		query[i] = QueryHash{Hash: h, QueryOffset: int32(i)}
	}

	candidates, err := idx.FindMatches(query, WithMinVotes(1), WithMinConfidence(0))
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, strongID, candidates[0].SongID)
	require.Equal(t, 30, candidates[0].Votes)
	require.Equal(t, weakID, candidates[1].SongID)
	require.Equal(t, 20, candidates[1].Votes)
}

func TestFindMatchesExcludesBelowMinVotes(t *testing.T) {
	idx := newTestIndex(t)
	songID, err := idx.InsertSong(Metadata{SongName: "sparse-match"})
	require.NoError(t, err)

	rows := []Fingerprint{{Hash: hashOf(1), SongID: songID, TimeOffset: 0}}
	require.NoError(t, idx.BulkInsertFingerprints(rows, songID))

	query := []QueryHash{{Hash: hashOf(1)}}
	candidates, err := idx.FindMatches(query, WithMinVotes(5))
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestFindMatchesExcludesBelowMinConfidence(t *testing.T) {
	idx := newTestIndex(t)
	songID, err := idx.InsertSong(Metadata{SongName: "low-confidence"})
	require.NoError(t, err)

	rows := []Fingerprint{
		{Hash: hashOf(1), SongID: songID, TimeOffset: 0},
		{Hash: hashOf(2), SongID: songID, TimeOffset: 1},
	}
	require.NoError(t, idx.BulkInsertFingerprints(rows, songID))

	query := make([]QueryHash, 20)
	for i := range query {
		query[i] = QueryHash{Hash: hashOf(byte(i))}
	}

	candidates, err := idx.FindMatches(query, WithMinVotes(1), WithMinConfidence(0.5))
	require.NoError(t, err)
	require.Empty(t, candidates, "2/20 votes is below a 0.5 confidence floor")
}
