package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"lenslingua/internal/capture"
	"lenslingua/internal/logging"
	"lenslingua/internal/media"
	"lenslingua/internal/model"
	"lenslingua/internal/storage"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseSuccess    Phase = "success"
	PhaseError      Phase = "error"
)

// State is one session's view. Result and RecordID are set in PhaseSuccess,
// Failure in PhaseError.
type State struct {
	Phase          Phase             `json:"phase"`
	Kind           model.Kind        `json:"kind,omitempty"`
	TargetLanguage string            `json:"targetLanguage,omitempty"`
	Result         *model.Extraction `json:"result,omitempty"`
	RecordID       string            `json:"recordId,omitempty"`
	Failure        *Failure          `json:"failure,omitempty"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type Request struct {
	Email          string
	Kind           model.Kind
	Source         capture.Source
	TargetLanguage string
}

type Extractor interface {
	ExtractFromImage(ctx context.Context, image []byte, mimeType, targetLanguage string) (model.Extraction, error)
	ExtractFromAudio(ctx context.Context, audio []byte, mimeType, targetLanguage string) (model.Extraction, error)
}

type HistorySaver interface {
	Save(ctx context.Context, ownerEmail string, kind model.Kind, targetLanguage string, items []model.ExtractedItem) (string, error)
}

type ControllerOptions struct {
	Provider              string
	Model                 string
	DefaultTargetLanguage string
	RequestTimeout        time.Duration
	MaxImageBytes         int64
	MaxAudioBytes         int64
}

// Controller runs the capture, extract and save flow with at most one
// operation in flight per user session.
type Controller struct {
	extractor Extractor
	history   HistorySaver
	recorder  storage.Recorder
	opts      ControllerOptions
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	state  State
	cancel context.CancelFunc
	// gen changes on every begin and reset so a late result can tell it
	// no longer owns the session.
	gen uint64
}

func NewController(extractor Extractor, history HistorySaver, recorder storage.Recorder, opts ControllerOptions) *Controller {
	return &Controller{
		extractor: extractor,
		history:   history,
		recorder:  recorder,
		opts:      opts,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

func (c *Controller) Status(email string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked(model.NormalizeEmail(email)).state
}

// Reset returns the session to idle, canceling an in-flight request.
func (c *Controller) Reset(email string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionLocked(model.NormalizeEmail(email))
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.state = State{Phase: PhaseIdle, UpdatedAt: c.now().UTC()}
	return s.state
}

// Translate captures media from req.Source, extracts and translates it and
// saves non-empty results to history. The returned error is also reported in
// the state's Failure.
func (c *Controller) Translate(ctx context.Context, req Request) (State, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" {
		return c.fail(req, ErrUnauthorized)
	}
	if !req.Kind.Valid() {
		return c.fail(req, &media.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown capture kind %q", req.Kind)})
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = c.opts.DefaultTargetLanguage
	}

	ctx, gen, err := c.begin(ctx, email, req)
	if err != nil {
		return c.Status(email), err
	}

	log := logging.NewLogger(ctx).WithField("email", email).WithField("kind", string(req.Kind))
	start := c.now()
	result, recordID, err := c.runRecovered(ctx, email, req)

	event := storage.Event{
		Timestamp:      start.UTC(),
		Email:          email,
		Kind:           string(req.Kind),
		TargetLanguage: req.TargetLanguage,
		Provider:       c.opts.Provider,
		Model:          c.opts.Model,
		LatencyMs:      c.now().Sub(start).Milliseconds(),
		RecordID:       recordID,
		ItemCount:      len(result.Items),
	}

	state := State{Kind: req.Kind, TargetLanguage: req.TargetLanguage, UpdatedAt: c.now().UTC()}
	if err != nil {
		f := Classify(err)
		state.Phase = PhaseError
		state.Failure = &f
		event.Outcome = storage.OutcomeError
		event.ErrorKind = string(f.Kind)
		log.Warnf("translate failed (%s): %v", f.Kind, err)
	} else {
		state.Phase = PhaseSuccess
		state.Result = &result
		state.RecordID = recordID
		event.Outcome = storage.OutcomeSuccess
		if len(result.Items) == 0 {
			event.Outcome = storage.OutcomeEmpty
		}
		log.Infof("translated %d items", len(result.Items))
	}
	c.audit(ctx, event)

	if !c.finish(email, gen, state) {
		log.Info("session was reset while processing, result discarded")
	}
	return state, err
}

// runRecovered turns a panic in capture or extraction into an error so the
// session still leaves the processing phase.
func (c *Controller) runRecovered(ctx context.Context, email string, req Request) (result model.Extraction, recordID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.NewLogger(ctx).WithField("email", email).Errorf("panic during translate: %v\n%s", r, debug.Stack())
			result, recordID, err = model.Extraction{}, "", fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return c.run(ctx, email, req)
}

func (c *Controller) run(ctx context.Context, email string, req Request) (model.Extraction, string, error) {
	limit := c.opts.MaxImageBytes
	if req.Kind == model.KindAudio {
		limit = c.opts.MaxAudioBytes
	}
	m, err := capture.Capture(ctx, req.Source, limit)
	if err != nil {
		return model.Extraction{}, "", err
	}

	var result model.Extraction
	switch req.Kind {
	case model.KindAudio:
		result, err = c.extractor.ExtractFromAudio(ctx, m.Data, m.MIMEType, req.TargetLanguage)
	default:
		result, err = c.extractor.ExtractFromImage(ctx, m.Data, m.MIMEType, req.TargetLanguage)
	}
	if err != nil {
		return model.Extraction{}, "", err
	}
	// a reset that raced with a finished provider call must not save
	if err := ctx.Err(); err != nil {
		return model.Extraction{}, "", err
	}
	if len(result.Items) == 0 {
		return result, "", nil
	}
	id, err := c.history.Save(ctx, email, req.Kind, req.TargetLanguage, result.Items)
	if err != nil {
		return model.Extraction{}, "", err
	}
	return result, id, nil
}

func (c *Controller) begin(parent context.Context, email string, req Request) (context.Context, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionLocked(email)
	if s.state.Phase == PhaseProcessing {
		return nil, 0, ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	if c.opts.RequestTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		parentCancel := cancel
		cancel = func() { timeoutCancel(); parentCancel() }
	}
	s.gen++
	s.cancel = cancel
	s.state = State{Phase: PhaseProcessing, Kind: req.Kind, TargetLanguage: req.TargetLanguage, UpdatedAt: c.now().UTC()}
	return ctx, s.gen, nil
}

// finish stores state unless the session was reset meanwhile.
func (c *Controller) finish(email string, gen uint64, state State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessionLocked(email)
	if s.gen != gen {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = state
	return true
}

func (c *Controller) fail(req Request, err error) (State, error) {
	f := Classify(err)
	return State{Phase: PhaseError, Kind: req.Kind, Failure: &f, UpdatedAt: c.now().UTC()}, err
}

func (c *Controller) audit(ctx context.Context, event storage.Event) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.AppendEvent(event); err != nil {
		logging.NewLogger(ctx).Warnf("append audit event: %v", err)
	}
}

func (c *Controller) sessionLocked(email string) *session {
	s, ok := c.sessions[email]
	if !ok {
		s = &session{state: State{Phase: PhaseIdle}}
		c.sessions[email] = s
	}
	return s
}
