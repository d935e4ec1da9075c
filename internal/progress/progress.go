// Package progress persists in-flight assessment sessions so they can be
// resumed after a restart.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound is returned by Load when no record exists for the key.
	ErrNotFound = errors.New("progress record not found")
	// ErrCorrupt is returned by Load when the stored record cannot be decoded.
	ErrCorrupt = errors.New("progress record corrupt")
)

// Record is the durable snapshot of an active session.
type Record struct {
	Answers       map[int]string `json:"answers"`
	StartTime     int64          `json:"startTime"`
	TimeRemaining int            `json:"timeRemaining"`
	Timestamp     int64          `json:"timestamp"`
}

// Repo stores at most one record per key. Writes are last-write-wins.
type Repo interface {
	Save(ctx context.Context, key string, rec Record) error
	Load(ctx context.Context, key string) (Record, error)
	Delete(ctx context.Context, key string) error
}

// Encode renders a record in its stored JSON form.
func Encode(rec Record) ([]byte, error) {
	if rec.Answers == nil {
		rec.Answers = map[int]string{}
	}
	return json.Marshal(rec)
}

// Decode parses a stored record. Any malformed payload, including answer keys
// that are not question ids, is reported as ErrCorrupt.
func Decode(data []byte) (Record, error) {
	var raw struct {
		Answers       map[string]string `json:"answers"`
		StartTime     int64             `json:"startTime"`
		TimeRemaining int               `json:"timeRemaining"`
		Timestamp     int64             `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	answers, err := decodeAnswers(raw.Answers)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Answers:       answers,
		StartTime:     raw.StartTime,
		TimeRemaining: raw.TimeRemaining,
		Timestamp:     raw.Timestamp,
	}, nil
}

func decodeAnswers(in map[string]string) (map[int]string, error) {
	out := make(map[int]string, len(in))
	for k, v := range in {
		id, err := strconv.Atoi(k)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: answer key %q", ErrCorrupt, k)
		}
		out[id] = v
	}
	return out, nil
}

func cloneRecord(rec Record) Record {
	out := rec
	out.Answers = make(map[int]string, len(rec.Answers))
	for k, v := range rec.Answers {
		out.Answers[k] = v
	}
	return out
}
