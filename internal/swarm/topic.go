package swarm

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// TopicLen is the size of a topic in bytes.
const TopicLen = 32

var ErrInvalidTopic = errors.New("swarm: invalid topic")

// Topic is the shared rendezvous identifier.
type Topic [TopicLen]byte

// NewTopic returns a random topic.
func NewTopic() (Topic, error) {
	var t Topic
	if _, err := rand.Read(t[:]); err != nil {
		return Topic{}, fmt.Errorf("swarm: random topic: %w", err)
	}
	return t, nil
}

// ParseTopic decodes a 64 character hex topic.
func ParseTopic(raw string) (Topic, error) {
	raw = strings.TrimSpace(raw)
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Topic{}, fmt.Errorf("%w: %v", ErrInvalidTopic, err)
	}
	if len(b) != TopicLen {
		return Topic{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidTopic, TopicLen, len(b))
	}
	var t Topic
	copy(t[:], b)
	return t, nil
}

// String is the lowercase hex form shown to users.
func (t Topic) String() string {
	return hex.EncodeToString(t[:])
}

func (t Topic) IsZero() bool {
	return t == Topic{}
}
