package store

import (
	"encoding/json"
	"fmt"

	"plotpact/internal/story"
)

// EncodeState is the document form shared by the SQL backends.
func EncodeState(s *story.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding session %s: %w", s.ID, err)
	}
	return data, nil
}

func DecodeState(data []byte) (*story.Session, error) {
	var s story.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	s.Normalize()
	return &s, nil
}
