package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// Key prefixes
const (
	prefixGame  = "game/"
	prefixStats = "stats/"
	keyGameSeq  = "seq/game"
)

// Game results in PGN notation.
const (
	ResultWhite = "1-0"
	ResultBlack = "0-1"
	ResultDraw  = "1/2-1/2"
)

// GameRecord is one finished game.
type GameRecord struct {
	ID          uint64        `json:"id"`
	Played      time.Time     `json:"played"`
	White       string        `json:"white"`
	Black       string        `json:"black"`
	StartFEN    string        `json:"start_fen"`
	Moves       []string      `json:"moves"` // UCI
	Result      string        `json:"result"`
	Termination string        `json:"termination"`
	Pseudo      bool          `json:"pseudo"` // decided by the time-limit rule
	Duration    time.Duration `json:"duration"`
	Generation  int           `json:"generation,omitempty"`
	Round       int           `json:"round,omitempty"`
}

// PlayerStats counts results for one player label.
type PlayerStats struct {
	Games  int `json:"games"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// WinRate returns the win rate as a percentage (0-100).
func (s PlayerStats) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games) * 100
}

// Storage wraps BadgerDB.
type Storage struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens the database in dir. An empty dir opens an in-memory database.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	seq, err := db.GetSequence([]byte(keyGameSeq), 16)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "game sequence")
	}
	return &Storage{db: db, seq: seq}, nil
}

// OpenDefault opens the database in the platform data directory.
func OpenDefault() (*Storage, error) {
	dir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dir)
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.seq != nil {
		if err := s.seq.Release(); err != nil {
			return err
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func gameKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixGame, id))
}

func statsKey(player string) []byte {
	return []byte(prefixStats + player)
}

// RecordGame stores rec under a new ID and updates both players' stats in
// the same transaction. It returns the assigned ID.
func (s *Storage) RecordGame(rec GameRecord) (uint64, error) {
	id, err := s.seq.Next()
	if err != nil {
		return 0, errors.Wrap(err, "next game id")
	}
	// Sequences start at zero; IDs start at one.
	rec.ID = id + 1
	if rec.Played.IsZero() {
		rec.Played = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(gameKey(rec.ID), data); err != nil {
			return err
		}
		white, black := outcomeFor(rec.Result)
		if err := updateStats(txn, rec.White, white); err != nil {
			return err
		}
		return updateStats(txn, rec.Black, black)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "record game %d", rec.ID)
	}
	return rec.ID, nil
}

type outcome int

const (
	loss outcome = iota
	draw
	win
)

func outcomeFor(result string) (white, black outcome) {
	switch result {
	case ResultWhite:
		return win, loss
	case ResultBlack:
		return loss, win
	default:
		return draw, draw
	}
}

func updateStats(txn *badger.Txn, player string, o outcome) error {
	var stats PlayerStats
	if err := getJSON(txn, statsKey(player), &stats); err != nil {
		return err
	}

	stats.Games++
	switch o {
	case win:
		stats.Wins++
	case loss:
		stats.Losses++
	default:
		stats.Draws++
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return txn.Set(statsKey(player), data)
}

// getJSON decodes the value at key into v. A missing key leaves v untouched.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// Game loads one game record.
func (s *Storage) Game(id uint64) (GameRecord, bool, error) {
	var rec GameRecord
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(gameKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return getJSON(txn, gameKey(id), &rec)
	})
	return rec, found, err
}

// Games calls fn for every stored game in ID order until fn returns an error.
func (s *Storage) Games(fn func(GameRecord) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixGame)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec GameRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats returns the results recorded for player.
func (s *Storage) Stats(player string) (PlayerStats, error) {
	var stats PlayerStats
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, statsKey(player), &stats)
	})
	return stats, err
}

// AllStats returns the results of every player with at least one game.
func (s *Storage) AllStats() (map[string]PlayerStats, error) {
	all := make(map[string]PlayerStats)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixStats)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stats PlayerStats
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stats)
			})
			if err != nil {
				return err
			}
			all[string(it.Item().Key()[len(prefix):])] = stats
		}
		return nil
	})
	return all, err
}
