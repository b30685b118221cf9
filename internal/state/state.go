package state

import (
	"image"
	"sync"
)

type Phase int

const (
	WELCOME Phase = iota
	LOADING
	PLAYING
	RESULT
	ERROR
)

func (p Phase) String() string {
	switch p {
	case WELCOME:
		return "welcome"
	case LOADING:
		return "loading"
	case PLAYING:
		return "playing"
	case RESULT:
		return "result"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

// FrameInfo describes the most recent interlace render shown by the shell.
type FrameInfo struct {
	Version uint64
	Surface *image.RGBA
}

type State struct {
	Phase  Phase
	Images []string
	Frame  FrameInfo
	Err    string
}

type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: State{Phase: WELCOME}}
}

// Snapshot returns a copy of the state. The frame surface is shared and must
// be treated as read-only.
func (store *Store) Snapshot() State {
	store.mu.RLock()
	defer store.mu.RUnlock()
	out := store.state
	out.Images = cloneStrings(store.state.Images)
	return out
}

func (store *Store) SetPhase(phase Phase) {
	store.mu.Lock()
	store.state.Phase = phase
	store.mu.Unlock()
}

// Advance moves from one phase to the next only if the store is still in
// from. It reports whether the transition happened.
func (store *Store) Advance(from, to Phase) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.state.Phase != from {
		return false
	}
	store.state.Phase = to
	return true
}

func (store *Store) SetImages(images []string) {
	store.mu.Lock()
	store.state.Images = cloneStrings(images)
	store.mu.Unlock()
}

// UpdateFrame stores a rendered frame. Older versions are ignored.
func (store *Store) UpdateFrame(frame FrameInfo) {
	store.mu.Lock()
	if frame.Version >= store.state.Frame.Version {
		store.state.Frame = frame
	}
	store.mu.Unlock()
}

func (store *Store) SetError(message string) {
	store.mu.Lock()
	store.state.Err = message
	store.mu.Unlock()
}

// Reset returns to the welcome phase and forgets the last frame and error.
func (store *Store) Reset() {
	store.mu.Lock()
	store.state.Phase = WELCOME
	store.state.Frame = FrameInfo{}
	store.state.Err = ""
	store.mu.Unlock()
}

func cloneStrings(input []string) []string {
	if len(input) == 0 {
		return nil
	}
	out := make([]string, len(input))
	copy(out, input)
	return out
}
