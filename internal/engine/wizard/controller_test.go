package wizard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

type harness struct {
	t      *testing.T
	c      *Controller
	be     *fakeBackend
	subs   *fakeSubscriber
	jobs   *jobQueue
	events []domain.Event
}

func newHarness(t *testing.T, be *fakeBackend) *harness {
	t.Helper()
	h := &harness{t: t, be: be, subs: &fakeSubscriber{}, jobs: &jobQueue{}}
	h.c = NewController(context.Background(), ControllerOptions{
		Backend:    be,
		Subscriber: h.subs,
		Emit:       func(ev domain.Event) { h.events = append(h.events, ev) },
		Go:         h.jobs.Go,
	})
	h.c.Start()
	return h
}

func (h *harness) do(a domain.Action) Snapshot {
	h.c.Handle(a)
	h.jobs.flush()
	return h.c.Snapshot()
}

func (h *harness) push(ev domain.ProgressEvent) Snapshot {
	sub := h.subs.last()
	require.NotNil(h.t, sub, "no subscription")
	sub.handler.OnEvent(ev)
	return h.c.Snapshot()
}

func (h *harness) countEvents(t domain.EventType) int {
	n := 0
	for _, ev := range h.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func videoMeta() domain.Metadata {
	d := 213
	return domain.Metadata{
		Title:           "Song",
		ChannelOrArtist: "Artist",
		DurationSeconds: &d,
		VideoQualities: []domain.VideoQuality{
			{Label: "1080p", Height: 1080},
			{Label: "720p", Height: 720},
		},
	}
}

func audioMeta() domain.Metadata {
	return domain.Metadata{
		Title:          "Track",
		AudioQualities: []domain.AudioQuality{{Label: "160kbps", Bitrate: 160}, {Label: "128kbps", Bitrate: 128}},
	}
}

func selectPrimary(h *harness) Snapshot {
	return h.do(domain.Action{Type: domain.ActionSelectPlatform, Platform: domain.PlatformPrimary})
}

func submit(h *harness, url string) Snapshot {
	return h.do(domain.Action{Type: domain.ActionSubmitURL, Text: url})
}

func TestPrimaryFlowToComplete(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchID: "dl-1"})
	snap := h.c.Snapshot()
	assert.Equal(t, domain.StepPlatformSelect, snap.Step)
	assert.Equal(t, domain.PhaseChoosePlatform, snap.Phase.Kind)

	snap = selectPrimary(h)
	assert.Equal(t, domain.StepURLAndQuality, snap.Step, "primary platform skips mode selection")
	assert.Equal(t, domain.PhaseAwaitURL, snap.Phase.Kind)

	snap = submit(h, "  https://youtu.be/x ")
	assert.Equal(t, []string{"https://youtu.be/x"}, h.be.fetches)
	assert.Equal(t, domain.PhaseChooseQuality, snap.Phase.Kind)
	require.Len(t, snap.Options, 3)
	assert.Equal(t, "1080p", snap.Options[0].Label)
	assert.Equal(t, "720p", snap.Options[1].Label)
	assert.Equal(t, BestAudioLabel, snap.Options[2].Label)
	assert.Equal(t, 0, snap.Selected)
	require.NotNil(t, snap.Session.Selected)
	assert.Equal(t, domain.SelectedQuality{Kind: domain.QualityVideo, Value: domain.QualityN(1080)}, *snap.Session.Selected)

	snap = h.do(domain.Action{Type: domain.ActionSelectQuality, Index: 1})
	assert.Equal(t, domain.QualityN(720), snap.Session.Selected.Value)

	h.c.Handle(domain.Action{Type: domain.ActionConfirm})
	snap = h.c.Snapshot()
	assert.Equal(t, domain.StepProgress, snap.Step)
	assert.Equal(t, domain.PhaseLaunching, snap.Phase.Kind)
	assert.False(t, snap.Subscribed)

	h.jobs.flush()
	snap = h.c.Snapshot()
	require.Len(t, h.be.launches, 1)
	assert.Equal(t, domain.DownloadVideoAtQuality, h.be.launches[0].Mode)
	assert.Equal(t, "dl-1", snap.Session.DownloadID)
	assert.True(t, snap.Subscribed)
	assert.Equal(t, domain.PhaseStreaming, snap.Phase.Kind)
	require.Len(t, h.subs.subs, 1)
	assert.Equal(t, "dl-1", h.subs.subs[0].id)

	snap = h.push(domain.ProgressEvent{Status: domain.StatusDownloading, Percent: f64(42.7), SpeedBytesPerSec: f64(2097152)})
	assert.Equal(t, "42%", snap.Progress.PercentLabel)
	assert.Equal(t, "2.00 MB/s", snap.Progress.Speed)

	snap = h.push(domain.ProgressEvent{Status: domain.StatusComplete, Percent: f64(100), Message: "Download complete!"})
	assert.Equal(t, domain.StepComplete, snap.Step)
	assert.Equal(t, domain.PhaseDone, snap.Phase.Kind)
	assert.Equal(t, "Download complete!", snap.Message)
	assert.False(t, snap.Subscribed)
	assert.Equal(t, 1, h.subs.subs[0].closed)

	progressEvents := h.countEvents(domain.EventProgress)
	snap = h.push(domain.ProgressEvent{Status: domain.StatusDownloading, Percent: f64(5)})
	assert.Equal(t, domain.StepComplete, snap.Step, "late events are dropped")
	assert.Equal(t, progressEvents, h.countEvents(domain.EventProgress))
}

func TestAudioPlatformSingleMode(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: audioMeta(), launchID: "dl-2"})
	snap := h.do(domain.Action{Type: domain.ActionSelectPlatform, Platform: domain.PlatformAudio})
	assert.Equal(t, domain.StepModeSelect, snap.Step)
	assert.Equal(t, domain.ModeNone, snap.Session.Mode)

	snap = h.do(domain.Action{Type: domain.ActionSelectMode, Mode: domain.ModeSingle})
	assert.Equal(t, domain.StepURLAndQuality, snap.Step)
	assert.Equal(t, domain.PlatformAudio, snap.Session.Platform)
	assert.Equal(t, domain.ModeSingle, snap.Session.Mode)

	snap = submit(h, "https://music.test/watch")
	require.Len(t, snap.Options, 2)
	for _, o := range snap.Options {
		assert.Equal(t, domain.QualityAudio, o.Kind)
		assert.False(t, o.Value.Best)
	}

	h.do(domain.Action{Type: domain.ActionConfirm})
	require.Len(t, h.be.launches, 1)
	assert.Equal(t, domain.DownloadAudioAtQuality, h.be.launches[0].Mode)
	assert.Equal(t, domain.QualityN(160), *h.be.launches[0].Quality)
}

func TestCollectionFlowSendsNullQuality(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{
		meta:     domain.Metadata{IsCollection: true, Title: "Mix", ItemCount: 12},
		launchID: "dl-3",
	})
	h.do(domain.Action{Type: domain.ActionSelectPlatform, Platform: domain.PlatformAudio})
	h.do(domain.Action{Type: domain.ActionSelectMode, Mode: domain.ModeCollection})
	snap := submit(h, "https://music.test/playlist")

	assert.Equal(t, domain.PhaseConfirmCollection, snap.Phase.Kind)
	assert.Empty(t, snap.Options)
	assert.Nil(t, snap.Session.Selected)

	snap = h.do(domain.Action{Type: domain.ActionSelectQuality, Index: 0})
	assert.Nil(t, snap.Session.Selected, "collections have no quality to select")

	h.do(domain.Action{Type: domain.ActionConfirm})
	require.Len(t, h.be.launches, 1)
	assert.Equal(t, domain.DownloadCollectionBulk, h.be.launches[0].Mode)
	assert.Nil(t, h.be.launches[0].Quality)
}

func TestPrimaryPlaylistURLUsesCollectionFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: domain.Metadata{IsCollection: true, Title: "List", ItemCount: 4}, launchID: "dl"})
	selectPrimary(h)
	snap := submit(h, "https://youtube.test/playlist?list=1")
	assert.Equal(t, domain.PhaseConfirmCollection, snap.Phase.Kind)

	h.do(domain.Action{Type: domain.ActionConfirm})
	assert.Equal(t, domain.DownloadCollectionBulk, h.be.launches[0].Mode)
}

func TestLaunchRejectedGoesToErrorWithoutSubscription(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchErr: &domain.RemoteRejectedError{Message: "Unsupported URL"}})
	selectPrimary(h)
	submit(h, "https://example.test/x")
	snap := h.do(domain.Action{Type: domain.ActionConfirm})

	assert.Equal(t, domain.StepError, snap.Step)
	assert.Equal(t, domain.PhaseFailed, snap.Phase.Kind)
	assert.Equal(t, "Unsupported URL", snap.Message)
	assert.Empty(t, h.subs.subs)
	assert.Equal(t, 1, h.countEvents(domain.EventError))
}

func TestLaunchUnreachableUsesFixedMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchErr: fmt.Errorf("launch download: %w", domain.ErrUnreachable)})
	selectPrimary(h)
	submit(h, "https://example.test/x")
	snap := h.do(domain.Action{Type: domain.ActionConfirm})

	assert.Equal(t, domain.StepError, snap.Step)
	assert.Equal(t, domain.MessageLaunchFailed, snap.Message)
}

func TestFetchErrorRestoresInput(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want string
	}{
		"rejected":    {&domain.RemoteRejectedError{Message: "Could not fetch video info"}, "Could not fetch video info"},
		"unreachable": {fmt.Errorf("fetch: %w", domain.ErrUnreachable), domain.MessageFetchFailed},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, &fakeBackend{metaErr: tc.err})
			selectPrimary(h)
			snap := submit(h, "https://bad.test")

			assert.Equal(t, domain.StepURLAndQuality, snap.Step)
			assert.Equal(t, domain.PhaseAwaitURL, snap.Phase.Kind)
			assert.True(t, snap.Phase.CanSubmitURL())
			assert.Equal(t, tc.want, snap.Message)
			assert.Nil(t, snap.Session.Metadata)
			assert.Empty(t, snap.Options)
		})
	}
}

func TestSubmitIgnoredWhileFetching(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta()})
	selectPrimary(h)
	h.c.Handle(domain.Action{Type: domain.ActionSubmitURL, Text: "https://a.test"})
	snap := h.c.Snapshot()
	assert.Equal(t, domain.PhaseFetching, snap.Phase.Kind)
	assert.True(t, snap.Phase.Busy())

	h.c.Handle(domain.Action{Type: domain.ActionSubmitURL, Text: "https://b.test"})
	h.c.Handle(domain.Action{Type: domain.ActionBack})
	h.c.Handle(domain.Action{Type: domain.ActionConfirm})
	h.jobs.flush()

	assert.Equal(t, []string{"https://a.test"}, h.be.fetches)
	assert.Equal(t, "https://a.test", h.c.Snapshot().Session.SourceURL)
	assert.Empty(t, h.be.launches)
}

func TestEmptySubmitIsNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta()})
	selectPrimary(h)
	before := len(h.events)
	snap := submit(h, "   ")
	assert.Empty(t, h.be.fetches)
	assert.Equal(t, domain.PhaseAwaitURL, snap.Phase.Kind)
	assert.Equal(t, before, len(h.events))
}

func TestConfirmIgnoredWhileLaunching(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchID: "dl"})
	selectPrimary(h)
	submit(h, "https://a.test")
	h.c.Handle(domain.Action{Type: domain.ActionConfirm})
	h.c.Handle(domain.Action{Type: domain.ActionConfirm})
	h.c.Handle(domain.Action{Type: domain.ActionNewDownload})
	h.jobs.flush()

	assert.Len(t, h.be.launches, 1)
	assert.Len(t, h.subs.subs, 1)
}

func TestSelectQualityIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta()})
	selectPrimary(h)
	submit(h, "https://a.test")
	optionsBefore := h.countEvents(domain.EventOptions)

	first := h.do(domain.Action{Type: domain.ActionSelectQuality, Index: 2})
	second := h.do(domain.Action{Type: domain.ActionSelectQuality, Index: 2})
	assert.Equal(t, first.Session.Selected, second.Session.Selected)
	assert.Equal(t, domain.SelectedQuality{Kind: domain.QualityAudio, Value: domain.BestQuality}, *second.Session.Selected)
	assert.Equal(t, optionsBefore+1, h.countEvents(domain.EventOptions))

	snap := h.do(domain.Action{Type: domain.ActionSelectQuality, Index: 9})
	assert.Equal(t, 2, snap.Selected)
}

func TestServerErrorStatusEndsInError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchID: "dl"})
	selectPrimary(h)
	submit(h, "https://a.test")
	h.do(domain.Action{Type: domain.ActionConfirm})

	h.push(domain.ProgressEvent{Status: domain.StatusDownloading, Percent: f64(20)})
	snap := h.push(domain.ProgressEvent{Status: domain.StatusError, Message: "ERROR: Video unavailable"})

	assert.Equal(t, domain.StepError, snap.Step)
	assert.Equal(t, "ERROR: Video unavailable", snap.Message)
	assert.False(t, snap.Subscribed)
	assert.Equal(t, 1, h.subs.last().closed)
}

func TestStreamFaultStallsWithoutChangingStep(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchID: "dl"})
	selectPrimary(h)
	submit(h, "https://a.test")
	h.do(domain.Action{Type: domain.ActionConfirm})
	h.push(domain.ProgressEvent{Status: domain.StatusDownloading, Percent: f64(33)})

	sub := h.subs.last()
	sub.handler.OnFault(&domain.StreamFaultError{Err: errors.New("eof")})
	snap := h.c.Snapshot()

	assert.Equal(t, domain.StepProgress, snap.Step)
	assert.Equal(t, domain.PhaseStalled, snap.Phase.Kind)
	assert.Equal(t, "33%", snap.Progress.PercentLabel, "last rendered state is kept")
	assert.Equal(t, domain.MessageStreamLost, snap.Message)
	assert.False(t, snap.Subscribed)
	assert.Equal(t, 1, sub.closed)
	assert.True(t, snap.Phase.CanStartOver())

	snap = h.do(domain.Action{Type: domain.ActionNewDownload})
	assert.Equal(t, domain.StepPlatformSelect, snap.Step)
	assert.Equal(t, domain.Session{}, snap.Session)

	sub.handler.OnEvent(domain.ProgressEvent{Status: domain.StatusComplete})
	assert.Equal(t, domain.StepPlatformSelect, h.c.Snapshot().Step, "events of a superseded attempt are dropped")
}

func TestSubscribeFailureStalls(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchID: "dl"})
	h.subs.err = errors.New("bad id")
	selectPrimary(h)
	submit(h, "https://a.test")
	snap := h.do(domain.Action{Type: domain.ActionConfirm})

	assert.Equal(t, domain.StepProgress, snap.Step)
	assert.Equal(t, domain.PhaseStalled, snap.Phase.Kind)
}

func TestRetryReissuesLastRequest(t *testing.T) {
	t.Parallel()

	be := &fakeBackend{meta: videoMeta(), launchErr: &domain.RemoteRejectedError{Message: "busy"}}
	h := newHarness(t, be)
	selectPrimary(h)
	submit(h, "https://a.test")
	h.do(domain.Action{Type: domain.ActionSelectQuality, Index: 1})
	snap := h.do(domain.Action{Type: domain.ActionConfirm})
	require.Equal(t, domain.StepError, snap.Step)
	assert.True(t, snap.Phase.CanRetry())

	be.launchErr = nil
	be.launchID = "dl-retry"
	snap = h.do(domain.Action{Type: domain.ActionRetry})

	require.Len(t, be.launches, 2)
	assert.Equal(t, be.launches[0], be.launches[1])
	assert.Equal(t, domain.StepProgress, snap.Step)
	assert.Equal(t, "dl-retry", snap.Session.DownloadID)
	assert.Equal(t, 2, snap.AttemptsStarted)
}

func TestRetryAfterServerErrorClosesOldSubscription(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchID: "dl"})
	selectPrimary(h)
	submit(h, "https://a.test")
	h.do(domain.Action{Type: domain.ActionConfirm})
	h.push(domain.ProgressEvent{Status: domain.StatusError, Message: "boom"})
	first := h.subs.last()

	h.do(domain.Action{Type: domain.ActionRetry})
	require.Len(t, h.subs.subs, 2)
	assert.Equal(t, 1, first.closed)

	first.handler.OnEvent(domain.ProgressEvent{Status: domain.StatusComplete})
	assert.Equal(t, domain.StepProgress, h.c.Snapshot().Step)
}

func TestBackNavigation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: audioMeta()})
	h.do(domain.Action{Type: domain.ActionSelectPlatform, Platform: domain.PlatformAudio})
	h.do(domain.Action{Type: domain.ActionSelectMode, Mode: domain.ModeSingle})
	submit(h, "https://music.test/x")

	snap := h.do(domain.Action{Type: domain.ActionBack})
	assert.Equal(t, domain.StepModeSelect, snap.Step)
	assert.Equal(t, domain.PlatformAudio, snap.Session.Platform)
	assert.Equal(t, domain.ModeNone, snap.Session.Mode)
	assert.Nil(t, snap.Session.Metadata)
	assert.Empty(t, snap.Options)

	snap = h.do(domain.Action{Type: domain.ActionBack})
	assert.Equal(t, domain.StepPlatformSelect, snap.Step)
	assert.Equal(t, domain.Session{}, snap.Session)

	selectPrimary(h)
	submit(h, "https://youtu.be/x")
	snap = h.do(domain.Action{Type: domain.ActionBack, Step: domain.StepModeSelect})
	assert.Equal(t, domain.StepURLAndQuality, snap.Step, "primary platform has no mode step to return to")
	snap = h.do(domain.Action{Type: domain.ActionBack})
	assert.Equal(t, domain.StepPlatformSelect, snap.Step)
}

func TestStepOneEntryAlwaysResets(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta(), launchID: "dl"})
	selectPrimary(h)
	submit(h, "https://a.test")
	h.do(domain.Action{Type: domain.ActionConfirm})
	h.push(domain.ProgressEvent{Status: domain.StatusComplete})

	snap := h.do(domain.Action{Type: domain.ActionNewDownload})
	assert.Equal(t, domain.StepPlatformSelect, snap.Step)
	assert.Equal(t, domain.PlatformNone, snap.Session.Platform)
	assert.Equal(t, domain.ModeNone, snap.Session.Mode)
	assert.Empty(t, snap.Session.DownloadID)
	assert.Nil(t, snap.LastRequest)

	for _, ev := range h.events {
		if ev.Type != domain.EventStep {
			continue
		}
		p := ev.Payload.(domain.StepPayload)
		assert.GreaterOrEqual(t, int(p.Step), int(domain.StepPlatformSelect))
		assert.LessOrEqual(t, int(p.Step), int(domain.StepError))
		if p.Step == domain.StepPlatformSelect {
			assert.Equal(t, domain.PlatformNone, p.Platform)
			assert.Equal(t, domain.ModeNone, p.Mode)
		}
	}
}

func TestActionsOutsidePhaseAreIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeBackend{meta: videoMeta()})
	for _, a := range []domain.Action{
		{Type: domain.ActionSelectMode, Mode: domain.ModeSingle},
		{Type: domain.ActionSubmitURL, Text: "https://a.test"},
		{Type: domain.ActionConfirm},
		{Type: domain.ActionRetry},
		{Type: domain.ActionNewDownload},
		{Type: domain.ActionBack},
		{Type: domain.ActionSelectPlatform},
	} {
		snap := h.do(a)
		assert.Equal(t, domain.StepPlatformSelect, snap.Step, "action %s", a.Type)
	}
	assert.Empty(t, h.be.fetches)

	snap := selectPrimary(h)
	snap2 := h.do(domain.Action{Type: domain.ActionSelectPlatform, Platform: domain.PlatformAudio})
	assert.Equal(t, snap.Session, snap2.Session)
}
