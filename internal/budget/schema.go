package budget

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brokeometer/internal/core"
	"brokeometer/internal/storage"
)

// Stored records are wrapped as {"version": N, "data": {...}}. Payloads
// without the wrapper predate versioning.
type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// migration upgrades a record body from version v to v+1.
type migration func(data json.RawMessage, now time.Time) (json.RawMessage, error)

type schema struct {
	current    int
	migrations map[int]migration
}

var schemas = map[string]schema{
	storage.KeyExpenses: {current: 1},
	storage.KeyUser:     {current: 1},
	storage.KeyBudget: {
		current:    2,
		migrations: map[int]migration{1: budgetV1ToV2},
	},
}

// CurrentVersion reports the schema version written for key.
func CurrentVersion(key string) int {
	return schemas[key].current
}

var errUnknownVersion = errors.New("unknown schema version")

func encodeRecord(key string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", key, err)
	}
	return json.Marshal(envelope{Version: schemas[key].current, Data: data})
}

// decodeRecord unwraps body and runs every pending migration. It reports
// whether the stored record was older than the current version.
func decodeRecord(key string, body []byte, now time.Time, out any) (bool, error) {
	sc, ok := schemas[key]
	if !ok {
		return false, fmt.Errorf("no schema for record %q", key)
	}

	version, data, err := unwrap(key, body)
	if err != nil {
		return false, err
	}
	if version < 1 || version > sc.current {
		return false, fmt.Errorf("%s version %d: %w", key, version, errUnknownVersion)
	}

	upgraded := version < sc.current
	for v := version; v < sc.current; v++ {
		m, ok := sc.migrations[v]
		if !ok {
			return false, fmt.Errorf("%s: no migration from version %d", key, v)
		}
		if data, err = m(data, now); err != nil {
			return false, fmt.Errorf("%s: migrate from version %d: %w", key, v, err)
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return upgraded, nil
}

func unwrap(key string, body []byte) (int, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, nil, errors.New("empty record")
	}

	if trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return 0, nil, fmt.Errorf("unmarshal %s: %w", key, err)
		}
		if rawVersion, ok := probe["version"]; ok {
			if data, ok := probe["data"]; ok {
				var version int
				if err := json.Unmarshal(rawVersion, &version); err != nil {
					return 0, nil, fmt.Errorf("%s version: %w", key, err)
				}
				return version, data, nil
			}
		}
		// An untagged budget that already carries savings was written in the
		// full shape and only lacks the wrapper.
		if key == storage.KeyBudget {
			if _, ok := probe["savings"]; ok {
				return 2, json.RawMessage(trimmed), nil
			}
		}
	}
	return 1, json.RawMessage(trimmed), nil
}

// budgetV1ToV2 keeps the limits of a limits-only budget and starts accrual
// from scratch at the current week.
func budgetV1ToV2(data json.RawMessage, now time.Time) (json.RawMessage, error) {
	var legacy struct {
		MonthlyLimit float64 `json:"monthlyLimit"`
		WeeklyLimit  float64 `json:"weeklyLimit"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}
	b := core.EmptyBudget(core.WeekStart(now))
	b.MonthlyLimit = legacy.MonthlyLimit
	b.WeeklyLimit = legacy.WeeklyLimit
	return json.Marshal(b)
}
