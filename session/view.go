package session

import (
	"time"

	"github.com/rustyeddy/papertrade/account"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/performance"
	"github.com/rustyeddy/papertrade/risk"
)

// View is the read-only dashboard state after a mutation. Views may share
// slices with the session's cache; callers must not modify them.
type View struct {
	Version         uint64              `json:"version"`
	Running         bool                `json:"running"`
	Ticks           uint64              `json:"ticks"`
	Account         account.Account     `json:"account"`
	Positions       []ledger.Position   `json:"positions"`
	Performance     performance.Metrics `json:"performance"`
	Risk            risk.Snapshot       `json:"risk"`
	RiskInputsFresh bool                `json:"riskInputsFresh"`
	Prices          []market.Tick       `json:"prices"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// View returns the current dashboard state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Subscribe returns a channel that receives the view after every mutation,
// starting with the current one. A slow subscriber only sees the latest
// view. Call the returned func to unsubscribe.
func (s *Session) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View, 1)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.metrics.SetSubscribers(len(s.subs))

	ch <- s.viewLocked()

	var once bool
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if once {
			return
		}
		once = true
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
			s.metrics.SetSubscribers(len(s.subs))
		}
	}
}

func (s *Session) publishLocked(v View) {
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			// Replace the stale view.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
