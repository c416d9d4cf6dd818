package logging

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

func stepEvent(step domain.Step, phase domain.PhaseKind) domain.Event {
	return domain.Event{
		Type:    domain.EventStep,
		Step:    step,
		Source:  "wizard",
		Payload: domain.StepPayload{Step: step, Phase: domain.Phase{Kind: phase}},
	}
}

func TestFinalizeSkipsCleanSession(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l := NewEventLogger(Config{Dir: dir})
	l.Record(stepEvent(domain.StepPlatformSelect, domain.PhaseChoosePlatform))

	res, err := l.Finalize()
	require.NoError(t, err)
	assert.False(t, res.Written)
	_, statErr := os.Stat(dir + "/" + TranscriptFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFinalizeWritesFailedSession(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l := NewEventLogger(Config{Dir: dir, BackendURL: "http://127.0.0.1:5000", Transport: "sse"})
	q := domain.QualityN(720)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	l.Record(stepEvent(domain.StepURLAndQuality, domain.PhaseAwaitURL))
	l.Record(domain.Event{
		Type: domain.EventLaunched, Step: domain.StepProgress, TS: ts, Source: "backend",
		Payload: domain.LaunchedPayload{DownloadID: "dl-1", Request: domain.LaunchRequest{URL: "u", Mode: domain.DownloadVideoAtQuality, Quality: &q}},
	})
	for _, p := range []float64{10, 20, 30} {
		l.Record(domain.Event{
			Type: domain.EventProgress, Step: domain.StepProgress, TS: ts, Source: "stream",
			Payload: domain.ProgressPayload{View: domain.ProgressView{Status: domain.StatusDownloading, Percent: p, PercentLabel: "x", Title: "Downloading..."}},
		})
	}
	l.Record(domain.Event{
		Type: domain.EventProgress, Step: domain.StepProgress, TS: ts, Source: "stream",
		Payload: domain.ProgressPayload{View: domain.ProgressView{Status: domain.StatusError, Message: "disk full"}},
	})
	l.Record(stepEvent(domain.StepError, domain.PhaseFailed))

	res, err := l.Finalize()
	require.NoError(t, err)
	require.True(t, res.Written)

	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, "# ytw session log")
	assert.Contains(t, out, "- Result: Failed")
	assert.Contains(t, out, "- Failure reason: Download failed: disk full")
	assert.Contains(t, out, "- Downloads: dl-1")
	assert.Contains(t, out, "- Backend: http://127.0.0.1:5000")
	assert.Contains(t, out, "### Download progress (`progress`)")
	assert.Contains(t, out, "quality=720")
	assert.Equal(t, 1, strings.Count(out, "Downloading... x"), "progress ticks of one status collapse into one line")
}

func TestFinalizeAlwaysWritesCleanSession(t *testing.T) {
	t.Parallel()

	l := NewEventLogger(Config{Dir: t.TempDir(), Always: true})
	l.Record(stepEvent(domain.StepComplete, domain.PhaseDone))

	res, err := l.Finalize()
	require.NoError(t, err)
	require.True(t, res.Written)
	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "- Result: Completed")
}

func TestSanitizeMessageRedactsSecrets(t *testing.T) {
	t.Parallel()

	got := sanitizeMessage("fetch https://x.test/v?id=1&token=abc\nnext")
	assert.Equal(t, "fetch https://x.test/v?id=1&token=<redacted> next", got)
}

func TestMarkFailure(t *testing.T) {
	t.Parallel()

	l := NewEventLogger(Config{Dir: t.TempDir()})
	assert.False(t, l.HadError())
	l.MarkFailure()
	assert.True(t, l.HadError())
}
