package store

// Schema v1 - star schema: one fact table (songplays) and four dimensions.
// Month and weekday are stored as numeric ordinals.
var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS songplays (
  songplay_id TEXT PRIMARY KEY,
  start_time TEXT NOT NULL,
  user_id TEXT NOT NULL,
  level TEXT,
  song_id TEXT,
  artist_id TEXT,
  session_id TEXT,
  location TEXT,
  user_agent TEXT
)`,
	`CREATE TABLE IF NOT EXISTS users (
  user_id TEXT PRIMARY KEY,
  first_name TEXT,
  last_name TEXT,
  gender TEXT,
  level TEXT
)`,
	`CREATE TABLE IF NOT EXISTS songs (
  song_id TEXT PRIMARY KEY,
  title TEXT,
  artist_id TEXT NOT NULL,
  year INTEGER,
  duration DOUBLE PRECISION
)`,
	`CREATE TABLE IF NOT EXISTS artists (
  artist_id TEXT PRIMARY KEY,
  name TEXT,
  location TEXT,
  latitude DOUBLE PRECISION,
  longitude DOUBLE PRECISION
)`,
	`CREATE TABLE IF NOT EXISTS "time" (
  start_time TEXT PRIMARY KEY,
  hour INTEGER,
  day INTEGER,
  week INTEGER,
  month INTEGER,
  year INTEGER,
  weekday INTEGER
)`,
}

// Schema v2 - indexes backing the songplay lookup join
var schemaV2 = []string{
	`CREATE INDEX IF NOT EXISTS idx_songs_title_duration ON songs(title, duration)`,
	`CREATE INDEX IF NOT EXISTS idx_songs_artist_id ON songs(artist_id)`,
	`CREATE INDEX IF NOT EXISTS idx_artists_name ON artists(name)`,
}

const schemaVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Tables lists the star schema tables in drop order (fact table first)
var Tables = []string{"songplays", "users", "songs", "artists", "time"}

// quoteTable quotes a table name; "time" collides with a type keyword
func quoteTable(name string) string {
	return `"` + name + `"`
}

func knownTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}
