package wizard

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/logging"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/stream"
)

// Backend is the request/response half of the download service.
type Backend interface {
	FetchMetadata(ctx context.Context, url string) (domain.Metadata, error)
	Launch(ctx context.Context, req domain.LaunchRequest) (string, error)
}

const (
	sourceWizard  = "wizard"
	sourceBackend = "backend"
	sourceStream  = "stream"

	messageNoFormats = "No downloadable formats found for this URL."
)

type ControllerOptions struct {
	Backend    Backend
	Subscriber stream.Subscriber
	Logger     *zap.Logger

	Emit func(domain.Event)
	// Go runs a blocking job off the owning goroutine. Nil starts a goroutine.
	Go func(job func())
	// Post hands a closure back to the owning goroutine. Nil runs it inline.
	Post func(func())
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	Step            domain.Step
	Phase           domain.Phase
	Session         domain.Session
	Options         []domain.QualityOption
	Selected        int
	Progress        domain.ProgressView
	Message         string
	Subscribed      bool
	LastRequest     *domain.LaunchRequest
	AttemptsStarted int
}

// Controller is the wizard state machine. All methods must be called from
// one goroutine; I/O results come back through Post.
type Controller struct {
	ctx context.Context
	opt ControllerOptions
	log *zap.Logger

	step     domain.Step
	phase    domain.Phase
	session  domain.Session
	selector *Selector
	monitor  *Monitor
	sub      stream.Subscription

	fetching  bool
	launching bool
	stalled   bool
	message   string

	lastRequest *domain.LaunchRequest
	launches    int

	// gen invalidates I/O results and stream callbacks of superseded attempts.
	gen      uint64
	cancelIO context.CancelFunc
}

func NewController(ctx context.Context, opt ControllerOptions) *Controller {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.Emit == nil {
		opt.Emit = func(domain.Event) {}
	}
	if opt.Go == nil {
		opt.Go = func(job func()) { go job() }
	}
	if opt.Post == nil {
		opt.Post = func(f func()) { f() }
	}
	return &Controller{
		ctx:      ctx,
		opt:      opt,
		log:      opt.Logger.Named("wizard"),
		selector: NewSelector(nil),
	}
}

// Start enters the first step.
func (c *Controller) Start() {
	c.enterPlatformSelect()
}

// Shutdown closes the subscription and cancels in-flight requests.
func (c *Controller) Shutdown() {
	c.invalidate()
	c.closeSubscription()
}

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Step:            c.step,
		Phase:           c.phase,
		Session:         c.session,
		Options:         c.selector.Options(),
		Selected:        c.selector.Index(),
		Message:         c.message,
		Subscribed:      c.sub != nil,
		LastRequest:     c.lastRequest,
		AttemptsStarted: c.launches,
	}
	if c.monitor != nil {
		s.Progress = c.monitor.View()
	}
	return s
}

// Handle applies one user action. Actions the current phase does not offer
// are ignored.
func (c *Controller) Handle(a domain.Action) {
	switch a.Type {
	case domain.ActionSelectPlatform:
		c.selectPlatform(a.Platform)
	case domain.ActionSelectMode:
		c.selectMode(a.Mode)
	case domain.ActionBack:
		c.back(a.Step)
	case domain.ActionSubmitURL:
		c.submitURL(a.Text)
	case domain.ActionSelectQuality:
		c.selectQuality(a.Index)
	case domain.ActionConfirm:
		c.confirm()
	case domain.ActionRetry:
		c.retry()
	case domain.ActionNewDownload:
		if c.phase.CanStartOver() {
			c.enterPlatformSelect()
		}
	default:
		c.log.Debug("unhandled action", zap.String("action", string(a.Type)))
		return
	}
	if err := c.session.Validate(); err != nil {
		c.log.Error("session invariant violated", zap.Error(err), zap.String(logging.FieldStep, c.step.String()))
	}
}

func (c *Controller) selectPlatform(p domain.Platform) {
	if c.phase.Kind != domain.PhaseChoosePlatform || p == domain.PlatformNone {
		return
	}
	c.session.Platform = p
	if p.HasModes() {
		c.enterModeSelect()
		return
	}
	c.enterSource()
}

func (c *Controller) selectMode(m domain.Mode) {
	if c.phase.Kind != domain.PhaseChooseMode || m == domain.ModeNone {
		return
	}
	c.session.Mode = m
	c.enterSource()
}

// back returns to target, or to the previous reachable step when target is
// zero.
func (c *Controller) back(target domain.Step) {
	if !c.phase.CanGoBack() {
		return
	}
	prev := domain.StepPlatformSelect
	if c.step == domain.StepURLAndQuality && c.session.Platform.HasModes() {
		prev = domain.StepModeSelect
	}
	if target == 0 {
		target = prev
	}
	if target >= c.step {
		return
	}
	switch target {
	case domain.StepPlatformSelect:
		c.enterPlatformSelect()
	case domain.StepModeSelect:
		if c.session.Platform.HasModes() {
			c.enterModeSelect()
		}
	}
}

func (c *Controller) submitURL(text string) {
	if !c.phase.CanSubmitURL() {
		return
	}
	url := strings.TrimSpace(text)
	if url == "" {
		return
	}

	gen := c.invalidate()
	c.session.ClearSource()
	c.session.SourceURL = url
	c.selector.Reset()
	c.message = ""
	c.fetching = true
	c.publish()
	c.emitLog(domain.EventLog, sourceWizard, "Fetching video info...", map[string]string{"url": url})

	ctx := c.ioContext()
	c.opt.Go(func() {
		meta, err := c.opt.Backend.FetchMetadata(ctx, url)
		c.opt.Post(func() { c.onMetadata(gen, url, meta, err) })
	})
}

func (c *Controller) onMetadata(gen uint64, url string, meta domain.Metadata, err error) {
	if gen != c.gen || c.step != domain.StepURLAndQuality {
		c.log.Debug("dropping stale metadata", zap.Uint64(logging.FieldGeneration, gen))
		return
	}
	c.fetching = false
	if err != nil {
		c.log.Info("metadata fetch failed", zap.String("url", url), zap.Error(err))
		c.session.SourceURL = ""
		c.message = domain.UserMessage(err, domain.MessageFetchFailed)
		c.emitLog(domain.EventWarning, sourceBackend, c.message, map[string]string{"error": err.Error()})
		c.publish()
		return
	}

	c.session.Metadata = &meta
	c.emit(domain.Event{Type: domain.EventMetadata, Source: sourceBackend, Severity: domain.SeverityInfo,
		Payload: domain.MetadataPayload{URL: url, Metadata: meta}})

	if !c.session.CollectionFlow() {
		c.selector.Load(BuildOptions(meta, c.session.Platform))
		if opt, ok := c.selector.Selected(); ok {
			sel := opt.Selection()
			c.session.Selected = &sel
			c.emitOptions()
		} else {
			c.message = messageNoFormats
			c.emitLog(domain.EventWarning, sourceBackend, c.message, nil)
		}
	}
	c.publish()
}

func (c *Controller) selectQuality(i int) {
	if !c.phase.CanSelectQuality() {
		return
	}
	prev := c.selector.Index()
	if !c.selector.Select(i) || i == prev {
		return
	}
	opt, _ := c.selector.Selected()
	sel := opt.Selection()
	c.session.Selected = &sel
	c.emitOptions()
}

func (c *Controller) confirm() {
	if !c.phase.CanConfirm() {
		return
	}
	req, err := BuildLaunchRequest(&c.session)
	if err != nil {
		c.log.Warn("cannot build launch request", zap.Error(err))
		return
	}
	c.lastRequest = &req
	c.launch(req)
}

func (c *Controller) retry() {
	if !c.phase.CanRetry() || c.lastRequest == nil {
		return
	}
	c.launch(*c.lastRequest)
}

// launch enters the progress step and issues req. Any previous subscription
// is closed first.
func (c *Controller) launch(req domain.LaunchRequest) {
	gen := c.invalidate()
	c.closeSubscription()
	c.session.DownloadID = ""
	c.step = domain.StepProgress
	c.monitor = NewMonitor()
	c.launching = true
	c.stalled = false
	c.message = ""
	c.launches++
	c.publish()

	ctx := c.ioContext()
	c.opt.Go(func() {
		id, err := c.opt.Backend.Launch(ctx, req)
		c.opt.Post(func() { c.onLaunched(gen, req, id, err) })
	})
}

func (c *Controller) onLaunched(gen uint64, req domain.LaunchRequest, id string, err error) {
	if gen != c.gen || c.step != domain.StepProgress {
		c.log.Debug("dropping stale launch result", zap.Uint64(logging.FieldGeneration, gen))
		return
	}
	c.launching = false
	if err != nil {
		c.log.Info("launch failed", zap.String("mode", string(req.Mode)), zap.Error(err))
		c.enterError(domain.UserMessage(err, domain.MessageLaunchFailed), err)
		return
	}

	c.session.DownloadID = id
	c.emit(domain.Event{Type: domain.EventLaunched, Source: sourceBackend, Severity: domain.SeverityInfo,
		Payload: domain.LaunchedPayload{DownloadID: id, Request: req}})

	log := c.log.With(zap.String(logging.FieldDownloadID, id))
	sub, err := c.opt.Subscriber.Subscribe(c.ctx, id, stream.Handler{
		OnEvent: func(ev domain.ProgressEvent) {
			c.opt.Post(func() { c.onProgress(gen, ev) })
		},
		OnFault: func(err error) {
			c.opt.Post(func() { c.onFault(gen, err) })
		},
	})
	if err != nil {
		log.Warn("subscribe failed", zap.Error(err))
		c.markStalled(err)
		return
	}
	if gen != c.gen {
		// A callback already ended this attempt while subscribing.
		sub.Close()
		return
	}
	c.sub = sub
	log.Debug("subscribed")
	c.publish()
}

func (c *Controller) onProgress(gen uint64, ev domain.ProgressEvent) {
	if gen != c.gen || c.step != domain.StepProgress || c.monitor == nil {
		return
	}
	view, outcome := c.monitor.Apply(ev)
	if outcome == OutcomeIgnored {
		return
	}
	c.emit(domain.Event{Type: domain.EventProgress, Source: sourceStream, Severity: domain.SeverityInfo,
		Payload: domain.ProgressPayload{View: view}})

	switch outcome {
	case OutcomeComplete:
		c.closeSubscription()
		c.enterComplete(view)
	case OutcomeFailed:
		c.closeSubscription()
		c.enterError(view.Message, nil)
	default:
		if c.stalled {
			c.stalled = false
			c.message = ""
			c.publish()
		}
	}
}

func (c *Controller) onFault(gen uint64, err error) {
	if gen != c.gen || c.step != domain.StepProgress || c.monitor == nil || c.monitor.Done() {
		return
	}
	c.markStalled(err)
}

// markStalled closes the stream and leaves the step unchanged; the user may
// start over from here.
func (c *Controller) markStalled(err error) {
	c.closeSubscription()
	c.stalled = true
	c.message = domain.MessageStreamLost
	fields := map[string]string{}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.emitLog(domain.EventWarning, sourceStream, c.message, fields)
	c.publish()
}

func (c *Controller) enterPlatformSelect() {
	c.invalidate()
	c.closeSubscription()
	c.session.Reset()
	c.resetAttempt()
	c.lastRequest = nil
	c.step = domain.StepPlatformSelect
	c.publish()
}

func (c *Controller) enterModeSelect() {
	c.invalidate()
	c.closeSubscription()
	c.session.Mode = domain.ModeNone
	c.session.ClearSource()
	c.resetAttempt()
	c.lastRequest = nil
	c.step = domain.StepModeSelect
	c.publish()
}

func (c *Controller) enterSource() {
	c.invalidate()
	c.closeSubscription()
	c.session.ClearSource()
	c.resetAttempt()
	c.lastRequest = nil
	c.step = domain.StepURLAndQuality
	c.publish()
}

func (c *Controller) enterComplete(view domain.ProgressView) {
	c.invalidate()
	c.closeSubscription()
	c.step = domain.StepComplete
	c.stalled = false
	c.message = view.Caption
	c.publish()
}

func (c *Controller) enterError(message string, cause error) {
	c.invalidate()
	c.closeSubscription()
	c.step = domain.StepError
	c.launching = false
	c.stalled = false
	c.message = message
	fields := map[string]string{}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	c.emit(domain.Event{Type: domain.EventError, Source: sourceWizard, Severity: domain.SeverityError,
		Payload: domain.LogPayload{Message: message, Fields: fields}})
	c.publish()
}

func (c *Controller) resetAttempt() {
	c.selector.Reset()
	c.monitor = nil
	c.fetching = false
	c.launching = false
	c.stalled = false
	c.message = ""
}

// invalidate starts a new generation and cancels requests of the old one.
func (c *Controller) invalidate() uint64 {
	if c.cancelIO != nil {
		c.cancelIO()
		c.cancelIO = nil
	}
	c.gen++
	return c.gen
}

func (c *Controller) ioContext() context.Context {
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelIO = cancel
	return ctx
}

func (c *Controller) closeSubscription() {
	if c.sub == nil {
		return
	}
	c.sub.Close()
	c.sub = nil
}

func (c *Controller) publish() {
	c.phase = domain.ComputePhase(domain.PhaseInputs{
		Step:      c.step,
		Session:   &c.session,
		HasOption: len(c.selector.Options()) > 0,
		Fetching:  c.fetching,
		Launching: c.launching,
		Stalled:   c.stalled,
	})
	c.log.Debug("phase",
		zap.String(logging.FieldStep, c.step.String()),
		zap.String(logging.FieldPhase, string(c.phase.Kind)),
		zap.Uint64(logging.FieldGeneration, c.gen))
	c.emit(domain.Event{
		Type:     domain.EventStep,
		Source:   sourceWizard,
		Severity: domain.SeverityInfo,
		Payload: domain.StepPayload{
			Step:     c.step,
			Phase:    c.phase,
			Platform: c.session.Platform,
			Mode:     c.session.Mode,
			Message:  c.message,
		},
	})
}

func (c *Controller) emitOptions() {
	c.emit(domain.Event{Type: domain.EventOptions, Source: sourceWizard, Severity: domain.SeverityInfo,
		Payload: domain.OptionsPayload{Options: c.selector.Options(), Selected: c.selector.Index()}})
}

func (c *Controller) emitLog(t domain.EventType, source, msg string, fields map[string]string) {
	sev := domain.SeverityInfo
	if t == domain.EventWarning {
		sev = domain.SeverityWarn
	}
	c.emit(domain.Event{Type: t, Source: source, Severity: sev, Payload: domain.LogPayload{Message: msg, Fields: fields}})
}

func (c *Controller) emit(ev domain.Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	if ev.Step == 0 {
		ev.Step = c.step
	}
	c.opt.Emit(ev)
}
