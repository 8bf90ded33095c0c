package dashboard

import (
	"sort"
	"sync"
	"time"
)

// DefaultFrameInterval is the playback tick period.
const DefaultFrameInterval = 1200 * time.Millisecond

// PlayerState is the snapshot the HTTP layer serves to the frame controls.
type PlayerState struct {
	Keys    []int `json:"keys"`
	Current int   `json:"current"`
	Playing bool  `json:"playing"`
	Enabled bool  `json:"enabled"`
}

// Player owns the ordered frame keys of an animated figure and the play
// loop that cycles through them. The zero state is Stopped with no frames;
// all transitions are mutex-guarded.
type Player struct {
	mu       sync.Mutex
	keys     []int
	current  int
	playing  bool
	interval time.Duration
	stop     chan struct{}
}

// NewPlayer creates a stopped player. A non-positive interval selects the
// default 1200 ms.
func NewPlayer(interval time.Duration) *Player {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Player{interval: interval}
}

// SetInterval changes the playback tick period for subsequent playback. A
// non-positive interval selects the default.
func (p *Player) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultFrameInterval
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

// SetFrames replaces the frame keys. Any running playback stops, the current
// frame resets to the minimum key, and empty keys disable the player.
func (p *Player) SetFrames(keys []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	p.keys = append([]int(nil), keys...)
	sort.Ints(p.keys)
	// drop duplicates
	out := p.keys[:0]
	for i, k := range p.keys {
		if i == 0 || k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	p.keys = out

	if len(p.keys) > 0 {
		p.current = p.keys[0]
	} else {
		p.current = 0
	}
}

// Toggle flips Stopped and Playing, returning the new playing state. With no
// frames it stays Stopped.
func (p *Player) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.stopLocked()
		return false
	}
	if len(p.keys) == 0 {
		return false
	}
	p.playing = true
	p.stop = make(chan struct{})
	go p.run(p.stop)
	return true
}

// Scrub sets the current frame, playing or not, without stopping playback.
// Keys outside the frame set clamp to the nearest valid key. Returns the key
// actually applied.
func (p *Player) Scrub(key int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return p.current
	}
	p.current = nearestKey(p.keys, key)
	return p.current
}

// Current returns the current frame key.
func (p *Player) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Snapshot returns the player state for the UI.
func (p *Player) Snapshot() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PlayerState{
		Keys:    append([]int(nil), p.keys...),
		Current: p.current,
		Playing: p.playing,
		Enabled: len(p.keys) > 0,
	}
}

// Close stops playback. Safe to call repeatedly.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// stopLocked cancels the ticker goroutine. Callers hold p.mu.
func (p *Player) stopLocked() {
	p.playing = false
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *Player) run(stop chan struct{}) {
	p.mu.Lock()
	interval := p.interval
	p.mu.Unlock()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.advance()
		}
	}
}

// advance moves to the next key in cyclic order. A tick that races a stop is
// a no-op.
func (p *Player) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || len(p.keys) == 0 {
		return
	}
	i := sort.SearchInts(p.keys, p.current)
	if i >= len(p.keys) || p.keys[i] != p.current {
		// current was clamped away from the set; restart from the nearest
		p.current = nearestKey(p.keys, p.current)
		return
	}
	p.current = p.keys[(i+1)%len(p.keys)]
}

// nearestKey returns the element of sorted keys closest to key, preferring
// the lower one on ties.
func nearestKey(keys []int, key int) int {
	i := sort.SearchInts(keys, key)
	if i == 0 {
		return keys[0]
	}
	if i == len(keys) {
		return keys[len(keys)-1]
	}
	if keys[i] == key {
		return key
	}
	lo, hi := keys[i-1], keys[i]
	if key-lo <= hi-key {
		return lo
	}
	return hi
}
