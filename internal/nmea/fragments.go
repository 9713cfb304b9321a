package nmea

import (
	"strings"
	"time"

	"github.com/saviobatista/ais-logger/internal/types"
)

const (
	// DefaultMaxAge is how long an incomplete sequence is kept
	DefaultMaxAge = 10 * time.Second
	// DefaultMaxPending bounds the number of incomplete sequences
	DefaultMaxPending = 64
)

// Assembled is a complete armored payload ready for expansion
type Assembled struct {
	Payload      string
	FillBits     int
	Fragments    int
	SequentialID string
	Channel      string
	Identifier   string
	TagBlock     *TagBlock
	Raw          []string
}

type fragmentKey struct {
	seqID   string
	channel string
}

type pending struct {
	total    int
	parts    []string
	raw      []string
	received int
	fill     int
	started  time.Time
	tagBlock *TagBlock
}

// Assembler reassembles multi-sentence messages keyed by sequential id and
// channel. It is not safe for concurrent use; give each stream its own.
type Assembler struct {
	maxPending int
	maxAge     time.Duration
	pending    map[fragmentKey]*pending
	evicted    uint64
	now        func() time.Time
}

// NewAssembler creates an assembler. Zero or negative limits select the defaults.
func NewAssembler(maxPending int, maxAge time.Duration) *Assembler {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Assembler{
		maxPending: maxPending,
		maxAge:     maxAge,
		pending:    make(map[fragmentKey]*pending),
		now:        time.Now,
	}
}

// Add accepts one sentence. It returns nil, nil while more fragments are expected.
func (a *Assembler) Add(s *Sentence) (*Assembled, error) {
	if s.FragmentCount == 1 {
		return &Assembled{
			Payload:      s.Payload,
			FillBits:     s.FillBits,
			Fragments:    1,
			SequentialID: s.SequentialID,
			Channel:      s.Channel,
			Identifier:   s.Identifier,
			TagBlock:     s.TagBlock,
			Raw:          []string{s.Raw},
		}, nil
	}

	now := a.now()
	a.evictStale(now)

	key := fragmentKey{seqID: s.SequentialID, channel: s.Channel}
	entry, ok := a.pending[key]
	if !ok {
		if len(a.pending) >= a.maxPending {
			a.evictOldest()
		}
		entry = &pending{
			total:    s.FragmentCount,
			parts:    make([]string, s.FragmentCount),
			raw:      make([]string, s.FragmentCount),
			started:  now,
			tagBlock: s.TagBlock,
		}
		a.pending[key] = entry
	}

	switch {
	case s.FragmentCount != entry.total:
		delete(a.pending, key)
		return nil, types.NewError(types.KindReassembly, "fragment_count", s.Raw,
			"fragment count changed from %d to %d", entry.total, s.FragmentCount)
	case s.FragmentIndex > entry.total:
		delete(a.pending, key)
		return nil, types.NewError(types.KindReassembly, "fragment_index", s.Raw,
			"index %d exceeds expected total %d", s.FragmentIndex, entry.total)
	case entry.raw[s.FragmentIndex-1] != "":
		delete(a.pending, key)
		return nil, types.NewError(types.KindReassembly, "fragment_index", s.Raw,
			"duplicate fragment %d of sequence %q", s.FragmentIndex, s.SequentialID)
	}

	entry.parts[s.FragmentIndex-1] = s.Payload
	entry.raw[s.FragmentIndex-1] = s.Raw
	entry.received++
	if s.FragmentIndex == entry.total {
		entry.fill = s.FillBits
	}
	if entry.tagBlock == nil {
		entry.tagBlock = s.TagBlock
	}

	if entry.received < entry.total {
		return nil, nil
	}

	delete(a.pending, key)
	return &Assembled{
		Payload:      strings.Join(entry.parts, ""),
		FillBits:     entry.fill,
		Fragments:    entry.total,
		SequentialID: s.SequentialID,
		Channel:      s.Channel,
		Identifier:   s.Identifier,
		TagBlock:     entry.tagBlock,
		Raw:          entry.raw,
	}, nil
}

// Pending returns the number of incomplete sequences
func (a *Assembler) Pending() int {
	return len(a.pending)
}

// Evicted returns how many incomplete sequences were dropped by the age or size bound
func (a *Assembler) Evicted() uint64 {
	return a.evicted
}

// Reset drops every incomplete sequence
func (a *Assembler) Reset() {
	a.pending = make(map[fragmentKey]*pending)
}

func (a *Assembler) evictStale(now time.Time) {
	for key, entry := range a.pending {
		if now.Sub(entry.started) > a.maxAge {
			delete(a.pending, key)
			a.evicted++
		}
	}
}

func (a *Assembler) evictOldest() {
	var (
		oldestKey fragmentKey
		oldest    *pending
	)
	for key, entry := range a.pending {
		if oldest == nil || entry.started.Before(oldest.started) {
			oldestKey, oldest = key, entry
		}
	}
	if oldest != nil {
		delete(a.pending, oldestKey)
		a.evicted++
	}
}
