// Package serializer defines the stored value shapes of the page cache:
// a response snapshot and a learned header list, both encoded as JSON so
// that any byte-oriented cache backend can hold them.
package serializer

import (
	"encoding/json"
	"net/http"
)

// Snapshot is the stored representation of a response.
type Snapshot struct {
	StatusCode int         `json:"status"`
	Header     http.Header `json:"headers"`
	Body       []byte      `json:"body"`
}

func SnapshotToBytes(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func BytesToSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(b, &s)
	return s, err
}

// HeaderListToBytes encodes a learned header list, preserving order.
// An empty list encodes to a present value distinct from "no entry":
// a stored empty list means the path is known to vary on nothing.
func HeaderListToBytes(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func BytesToHeaderList(b []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
