package review

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"
)

// maxInflated bounds decompression of untrusted cookie values.
const maxInflated = 64 << 10

type wire struct {
	MissedIDs []string   `json:"missed_ids"`
	Logs      []LogEntry `json:"logs"`
}

// Decode never fails: anything unreadable yields an empty store, and bad
// fields or entries are dropped individually. It accepts the encoded cookie
// form and plain JSON, including the older "wrong_list" key.
func Decode(raw string) Store {
	payload, ok := unwrap(raw)
	if !ok {
		return Store{}
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil || top == nil {
		return Store{}
	}

	var s Store
	ids, ok := top["missed_ids"]
	if !ok {
		ids = top["wrong_list"]
	}
	for _, item := range rawList(ids) {
		var id string
		if json.Unmarshal(item, &id) == nil {
			s.AddMissed(id)
		}
	}
	for _, item := range rawList(top["logs"]) {
		if e, ok := decodeEntry(item); ok {
			s.logs = append(s.logs, e)
		}
	}
	s.logs = capLogs(s.logs)
	return s
}

func unwrap(raw string) ([]byte, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if raw[0] == '{' || raw[0] == '[' {
		return []byte(raw), true
	}
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return nil, false
	}
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, maxInflated))
	if err != nil {
		return nil, false
	}
	return out, true
}

// rawList yields nil for anything that is not a JSON array.
func rawList(v json.RawMessage) []json.RawMessage {
	if len(v) == 0 {
		return nil
	}
	var out []json.RawMessage
	if err := json.Unmarshal(v, &out); err != nil {
		return nil
	}
	return out
}

func decodeEntry(v json.RawMessage) (LogEntry, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(v, &m); err != nil || m == nil {
		return LogEntry{}, false
	}
	var e LogEntry
	if json.Unmarshal(m["date"], &e.Date) != nil || e.Date == "" {
		return LogEntry{}, false
	}
	if json.Unmarshal(m["correct"], &e.Correct) != nil {
		return LogEntry{}, false
	}
	if c, ok := m["cat"]; ok && json.Unmarshal(c, &e.Category) != nil {
		return LogEntry{}, false
	}
	return e, true
}

// Encode serializes s for the cookie. Logs are capped first; if the value
// is still over MaxEncodedBytes the oldest logs, then the oldest missed ids,
// are dropped until it fits.
func Encode(s Store) string {
	w := wire{MissedIDs: s.MissedIDs(), Logs: capLogs(s.Logs())}
	for {
		out := pack(w)
		if len(out) <= MaxEncodedBytes {
			return out
		}
		switch {
		case len(w.Logs) > 0:
			w.Logs = w.Logs[1:]
		case len(w.MissedIDs) > 0:
			w.MissedIDs = w.MissedIDs[1:]
		default:
			return out
		}
	}
}

func pack(w wire) string {
	if w.MissedIDs == nil {
		w.MissedIDs = []string{}
	}
	if w.Logs == nil {
		w.Logs = []LogEntry{}
	}
	// marshalling plain strings and bools cannot fail
	js, _ := json.Marshal(w)
	var buf bytes.Buffer
	zw, _ := flate.NewWriter(&buf, flate.BestCompression)
	_, _ = zw.Write(js)
	_ = zw.Close()
	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}
