// Package events is the append-only JSONL Event Log: the
// authoritative audit trail for a container's lifecycle.
package events

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/nelmo-ux/container-runway/internal/runtimeerr"
)

// Record is one line of events.log.
type Record struct {
	Timestamp string      `json:"timestamp"`
	Type      string      `json:"type"`
	ID        string      `json:"id"`
	Data      interface{} `json:"data,omitempty"`
}

// nowFunc is overridable in tests to produce deterministic timestamps.
var nowFunc = time.Now

// Log appends records to one container's events.log.
type Log struct {
	path string
}

func New(path string) *Log { return &Log{path: path} }

// RecordEvent appends {timestamp, type, id, data?} as one JSON line,
// creating the parent directory if needed and flushing before returning.
func (l *Log) RecordEvent(id, typ string, data interface{}) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "record-event", err)
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "record-event", err)
	}
	defer f.Close()

	rec := Record{
		Timestamp: nowFunc().UTC().Format("2006-01-02T15:04:05.000Z"),
		Type:      typ,
		ID:        id,
		Data:      data,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "record-event", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return runtimeerr.New(runtimeerr.IOFail, "record-event", err)
	}
	return f.Sync()
}

// StateData is the {data} payload of a "state" event.
type StateData struct {
	Status string `json:"status"`
	PID    int    `json:"pid"`
}

// ErrorData is the {data} payload of an "error" event.
type ErrorData struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// SignalData is the {data} payload of a kill event.
type SignalData struct {
	Signal int `json:"signal"`
}

// ExecData is the {data} payload of "exec"/"execExit" events.
type ExecData struct {
	PID    int    `json:"pid"`
	Type   string `json:"type"`
	Status int    `json:"status,omitempty"`
}

// ReadAll reads every record currently in the log, in file order.
func ReadAll(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, runtimeerr.New(runtimeerr.IOFail, "read-events", err)
	}
	return decodeLines(data)
}

func decodeLines(data []byte) ([]Record, error) {
	var recs []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var r Record
		if err := dec.Decode(&r); err != nil {
			break
		}
		recs = append(recs, r)
	}
	return recs, nil
}
