package strategy

import "sync"

type PositionMachine struct {
	mu    sync.Mutex
	State State
}

func NewPositionMachine() *PositionMachine {
	return &PositionMachine{State: StateFlat}
}

func (p *PositionMachine) Apply(event Event) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.State = nextState(p.State, event)
	return p.State
}

func (p *PositionMachine) SetState(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.State = state
}

func (p *PositionMachine) Current() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.State
}

func nextState(current State, event Event) State {
	switch current {
	case StateFlat:
		if event == EventEnter {
			return StateEntering
		}
	case StateEntering:
		if event == EventOpened {
			return StateOpen
		}
		if event == EventAbort {
			return StateFlat
		}
	case StateOpen:
		if event == EventExit {
			return StateExiting
		}
	case StateExiting:
		if event == EventClosed {
			return StateFlat
		}
		if event == EventAbort {
			return StateOpen
		}
	}
	return current
}
