package engine

import (
	"context"
	"fmt"
)

// Phase — фаза движка. В каждый момент выполняется не более одной
// операции, меняющей курсор: загрузка, опрос или отправка.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhasePolling
	PhaseSending
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhasePolling:
		return "polling"
	case PhaseSending:
		return "sending"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Phase возвращает текущую фазу.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.phase
}

// enterLocked переводит движок из Idle в p. Вызывается под e.mu.
func (e *Engine) enterLocked(p Phase) {
	e.phase = p
	e.idle = make(chan struct{})
}

// tryEnter занимает фазу p, только если движок свободен.
func (e *Engine) tryEnter(p Phase) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseIdle {
		return false
	}

	e.enterLocked(p)
	return true
}

// enter занимает фазу p, дожидаясь окончания загрузки или опроса.
// Если выполняется отправка — ErrBusy.
func (e *Engine) enter(ctx context.Context, p Phase) error {
	for {
		e.mu.Lock()
		switch e.phase {
		case PhaseIdle:
			e.enterLocked(p)
			e.mu.Unlock()
			return nil
		case PhaseSending:
			e.mu.Unlock()
			return ErrBusy
		}

		idle := e.idle
		e.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// leave возвращает движок в Idle и будит ожидающих.
func (e *Engine) leave() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.phase = PhaseIdle
	close(e.idle)
}
