package backend

// Progress checkpoints of a submission.
const (
	ProgressAccepted   = 10
	ProgressDispatched = 30
	ProgressDone       = 100
)

// ProgressFunc receives progress values between 0 and 100.
type ProgressFunc func(value int)

// progress only forwards values that move forward, so every value reaches
// the callback at most once.
type progress struct {
	fn    ProgressFunc
	value int
}

func newProgress(fn ProgressFunc) *progress {
	return &progress{fn: fn}
}

func (p *progress) set(value int) {
	if value <= p.value {
		return
	}

	p.value = value
	if p.fn != nil {
		p.fn(value)
	}
}
