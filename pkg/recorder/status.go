package recorder

import "time"

// Status 录像器状态快照
type Status struct {
	State   State
	File    string
	Frames  int64
	Elapsed time.Duration
	Marking bool
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{
		State:   r.state,
		File:    r.file,
		Frames:  r.frames.Load(),
		Marking: r.marking.Load(),
	}
	switch {
	case r.startedAt.IsZero():
	case r.stoppedAt.IsZero():
		s.Elapsed = r.opts.Now().Sub(r.startedAt)
	default:
		s.Elapsed = r.stoppedAt.Sub(r.startedAt)
	}
	return s
}

// Fields 供事件发布使用
func (s Status) Fields() map[string]any {
	return map[string]any{
		"state":   string(s.State),
		"file":    s.File,
		"frames":  s.Frames,
		"elapsed": s.Elapsed,
		"marking": s.Marking,
	}
}
