package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/franz/sparkify-etl/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func ptr[T any](v T) *T {
	return &v
}

func TestStoreOpenAndMigrate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	version, err := store.getSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range append([]string{"schema_version"}, Tables...) {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	for _, index := range []string{"idx_songs_title_duration", "idx_songs_artist_id", "idx_artists_name"} {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query index %s: %v", index, err)
		}
		if count != 1 {
			t.Errorf("expected index %s to exist (schema v2)", index)
		}
	}
}

func TestStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	store, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	err = store.Transaction(ctx, func(tx *Tx) error {
		return tx.UpsertUser(ctx, &User{UserID: "10", FirstName: "Sylvie", Level: "free"})
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	store.Close()

	store, err = Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	var migrations int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&migrations); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if migrations != currentSchemaVersion {
		t.Errorf("expected %d migration rows, got %d", currentSchemaVersion, migrations)
	}

	user, err := store.GetUser(ctx, "10")
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}
	if user == nil || user.FirstName != "Sylvie" {
		t.Errorf("expected user to survive reopen, got %+v", user)
	}
}

func TestSongAndArtistRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	song := &Song{SongID: "SOMZWCG12A8C13C480", Title: ptr("I Didn't Mean To"), ArtistID: "ARD7TVE1187B99BFB1", Year: ptr(0), Duration: ptr(218.93179)}
	artist := &Artist{ArtistID: "ARD7TVE1187B99BFB1", Name: ptr("Casual"), Location: ptr("California - LA")}
	located := &Artist{ArtistID: "ARMJAGH1187FB546F3", Name: ptr("The Box Tops"), Location: ptr("Memphis, TN"), Latitude: ptr(35.14968), Longitude: ptr(-90.04892)}

	err := store.Transaction(ctx, func(tx *Tx) error {
		if err := tx.UpsertSong(ctx, song); err != nil {
			return err
		}
		if err := tx.UpsertArtist(ctx, artist); err != nil {
			return err
		}
		return tx.UpsertArtist(ctx, located)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	gotSong, err := store.GetSong(ctx, song.SongID)
	if err != nil {
		t.Fatalf("failed to get song: %v", err)
	}
	if !reflect.DeepEqual(gotSong, song) {
		t.Errorf("expected song %+v, got %+v", song, gotSong)
	}

	gotArtist, err := store.GetArtist(ctx, artist.ArtistID)
	if err != nil {
		t.Fatalf("failed to get artist: %v", err)
	}
	if !reflect.DeepEqual(gotArtist, artist) {
		t.Errorf("expected artist %+v, got %+v", artist, gotArtist)
	}
	if gotArtist.Latitude != nil || gotArtist.Longitude != nil {
		t.Errorf("expected null coordinates, got %v/%v", gotArtist.Latitude, gotArtist.Longitude)
	}

	gotLocated, err := store.GetArtist(ctx, located.ArtistID)
	if err != nil {
		t.Fatalf("failed to get artist: %v", err)
	}
	if gotLocated.Latitude == nil || *gotLocated.Latitude != 35.14968 {
		t.Errorf("expected latitude 35.14968, got %v", gotLocated.Latitude)
	}
	if gotLocated.Longitude == nil || *gotLocated.Longitude != -90.04892 {
		t.Errorf("expected longitude -90.04892, got %v", gotLocated.Longitude)
	}

	missing, err := store.GetSong(ctx, "nope")
	if err != nil {
		t.Fatalf("unexpected error for missing song: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing song, got %+v", missing)
	}
}

func TestSongAndArtistNullFields(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	song := &Song{SongID: "SONULL00000000001", ArtistID: "ARNULL00000000001"}
	artist := &Artist{ArtistID: "ARNULL00000000001"}

	err := store.Transaction(ctx, func(tx *Tx) error {
		if err := tx.UpsertSong(ctx, song); err != nil {
			return err
		}
		return tx.UpsertArtist(ctx, artist)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	var nulls int
	err = store.db.QueryRow(`
		SELECT (title IS NULL) + (year IS NULL) + (duration IS NULL)
		FROM songs WHERE song_id = ?`, song.SongID).Scan(&nulls)
	if err != nil {
		t.Fatalf("failed to query song: %v", err)
	}
	if nulls != 3 {
		t.Errorf("expected title, year and duration stored as NULL, got %d NULL columns", nulls)
	}

	err = store.db.QueryRow(`
		SELECT (name IS NULL) + (location IS NULL)
		FROM artists WHERE artist_id = ?`, artist.ArtistID).Scan(&nulls)
	if err != nil {
		t.Fatalf("failed to query artist: %v", err)
	}
	if nulls != 2 {
		t.Errorf("expected name and location stored as NULL, got %d NULL columns", nulls)
	}

	gotSong, err := store.GetSong(ctx, song.SongID)
	if err != nil {
		t.Fatalf("failed to get song: %v", err)
	}
	if !reflect.DeepEqual(gotSong, song) {
		t.Errorf("expected song %+v, got %+v", song, gotSong)
	}

	gotArtist, err := store.GetArtist(ctx, artist.ArtistID)
	if err != nil {
		t.Fatalf("failed to get artist: %v", err)
	}
	if !reflect.DeepEqual(gotArtist, artist) {
		t.Errorf("expected artist %+v, got %+v", artist, gotArtist)
	}

	// a later non-null value overwrites the NULLs
	song.Title = ptr("Setanta matins")
	err = store.Transaction(ctx, func(tx *Tx) error { return tx.UpsertSong(ctx, song) })
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	gotSong, _ = store.GetSong(ctx, song.SongID)
	if gotSong == nil || gotSong.Title == nil || *gotSong.Title != "Setanta matins" {
		t.Errorf("expected title to be overwritten, got %+v", gotSong)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	td := &TimeDimension{StartTime: "1541903636796", Hour: 2, Day: 11, Week: 45, Month: 11, Year: 2018, Weekday: 6}
	for i := 0; i < 2; i++ {
		err := store.Transaction(ctx, func(tx *Tx) error {
			return tx.UpsertTime(ctx, td)
		})
		if err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	count, err := store.CountRows(ctx, "time")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 time row, got %d", count)
	}

	got, err := store.GetTime(ctx, td.StartTime)
	if err != nil {
		t.Fatalf("failed to get time: %v", err)
	}
	if *got != *td {
		t.Errorf("expected %+v, got %+v", td, got)
	}
}

func TestUpsertOverwritesWholeRow(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := &User{UserID: "15", FirstName: "Lily", LastName: "Koch", Gender: "F", Level: "free"}
	second := &User{UserID: "15", FirstName: "Lily", LastName: "", Gender: "F", Level: "paid"}

	for _, u := range []*User{first, second} {
		err := store.Transaction(ctx, func(tx *Tx) error {
			return tx.UpsertUser(ctx, u)
		})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	got, err := store.GetUser(ctx, "15")
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}
	if *got != *second {
		t.Errorf("expected last write %+v, got %+v", second, got)
	}
}

func TestSongplayNullKeys(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sp := &Songplay{SongplayID: "sp-1", StartTime: "1541903636796", UserID: "69", Level: "free", SessionID: "455"}
	err := store.Transaction(ctx, func(tx *Tx) error {
		return tx.UpsertSongplay(ctx, sp)
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := store.GetSongplay(ctx, "sp-1")
	if err != nil {
		t.Fatalf("failed to get songplay: %v", err)
	}
	if got.SongID != nil || got.ArtistID != nil {
		t.Errorf("expected null song/artist keys, got %v/%v", got.SongID, got.ArtistID)
	}

	// Overwrite with resolved keys
	sp.SongID = ptr("SOZCTXZ12AB0182364")
	sp.ArtistID = ptr("AR5KOSW1187FB35FF4")
	err = store.Transaction(ctx, func(tx *Tx) error {
		return tx.UpsertSongplay(ctx, sp)
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err = store.GetSongplay(ctx, "sp-1")
	if err != nil {
		t.Fatalf("failed to get songplay: %v", err)
	}
	if got.SongID == nil || *got.SongID != "SOZCTXZ12AB0182364" {
		t.Errorf("expected resolved song id, got %v", got.SongID)
	}

	matched, err := store.CountMatchedSongplays(ctx)
	if err != nil {
		t.Fatalf("failed to count matched: %v", err)
	}
	if matched != 1 {
		t.Errorf("expected 1 matched songplay, got %d", matched)
	}
}

func TestFindSongArtist(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	err := store.Transaction(ctx, func(tx *Tx) error {
		if err := tx.UpsertArtist(ctx, &Artist{ArtistID: "AR5KOSW1187FB35FF4", Name: ptr("Elena")}); err != nil {
			return err
		}
		return tx.UpsertSong(ctx, &Song{SongID: "SOZCTXZ12AB0182364", Title: ptr("Setanta matins"), ArtistID: "AR5KOSW1187FB35FF4", Duration: ptr(269.58322)})
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	tests := []struct {
		name     string
		title    string
		artist   string
		duration float64
		wantOK   bool
	}{
		{"exact match", "Setanta matins", "Elena", 269.58322, true},
		{"wrong title", "Setanta", "Elena", 269.58322, false},
		{"wrong artist", "Setanta matins", "Elena X", 269.58322, false},
		{"duration off by rounding", "Setanta matins", "Elena", 269.5832, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Transaction(ctx, func(tx *Tx) error {
				songID, artistID, ok, err := tx.FindSongArtist(ctx, tt.title, tt.artist, tt.duration)
				if err != nil {
					return err
				}
				if ok != tt.wantOK {
					t.Errorf("expected ok=%v, got %v", tt.wantOK, ok)
				}
				if ok && (songID != "SOZCTXZ12AB0182364" || artistID != "AR5KOSW1187FB35FF4") {
					t.Errorf("unexpected keys %s/%s", songID, artistID)
				}
				if !ok && (songID != "" || artistID != "") {
					t.Errorf("expected empty keys on miss, got %s/%s", songID, artistID)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("lookup failed: %v", err)
			}
		})
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *Tx) error {
		if err := tx.UpsertUser(ctx, &User{UserID: "1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	count, err := store.CountRows(ctx, "users")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to leave 0 users, got %d", count)
	}
}

func TestResetDropsData(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	err := store.Transaction(ctx, func(tx *Tx) error {
		return tx.UpsertSong(ctx, &Song{SongID: "S1", ArtistID: "A1"})
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	counts, err := store.TableCounts(ctx)
	if err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}
	if len(counts) != len(Tables) {
		t.Fatalf("expected %d tables, got %d", len(Tables), len(counts))
	}
	for _, c := range counts {
		if c.Rows != 0 {
			t.Errorf("expected %s to be empty after reset, got %d rows", c.Table, c.Rows)
		}
	}
}

func TestCountRowsRejectsUnknownTable(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CountRows(context.Background(), "users; DROP TABLE songs")
	if !errors.Is(err, util.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestServerVersion(t *testing.T) {
	store := openTestStore(t)

	version, err := store.ServerVersion(context.Background())
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version == "" {
		t.Error("expected a sqlite version string")
	}
	if store.Dialect() != DialectSQLite {
		t.Errorf("expected sqlite dialect, got %s", store.Dialect())
	}
}
