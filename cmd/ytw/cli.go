package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

// lineAnswers are the wizard choices supplied up front in line mode.
type lineAnswers struct {
	Platform string
	Mode     string
	URL      string
	Quality  string
}

func (a lineAnswers) validate() error {
	if strings.TrimSpace(a.URL) == "" {
		return usagef("line mode is non-interactive; provide --url to continue")
	}
	if strings.TrimSpace(a.Platform) != "" {
		if _, ok := domain.ParsePlatform(a.Platform); !ok {
			return usagef("--platform must be one of: youtube, music (got %q)", a.Platform)
		}
	}
	if strings.TrimSpace(a.Mode) != "" {
		if _, ok := domain.ParseMode(a.Mode); !ok {
			return usagef("--mode must be one of: single, playlist (got %q)", a.Mode)
		}
	}
	return nil
}

func (a lineAnswers) platform() domain.Platform {
	if p, ok := domain.ParsePlatform(a.Platform); ok {
		return p
	}
	return domain.PlatformPrimary
}

func (a lineAnswers) mode() domain.Mode {
	if m, ok := domain.ParseMode(a.Mode); ok {
		return m
	}
	return domain.ModeSingle
}

var (
	errDownloadFailed = errors.New("download failed")
	errStreamLost     = errors.New("download status unknown: progress stream lost")
)

// lineRunner answers the wizard from lineAnswers and prints its events as
// plain lines.
type lineRunner struct {
	out     io.Writer
	errOut  io.Writer
	actions chan<- domain.Action
	answers lineAnswers
	quiet   bool

	options   []domain.QualityOption
	selected  int
	submitted bool
	confirmed bool
	bar       *progressbar.ProgressBar
	barStatus domain.ProgressStatus

	err  error
	done bool
}

func runLine(ctx context.Context, events <-chan domain.Event, actions chan<- domain.Action, cancel func(), answers lineAnswers, quiet bool, out, errOut io.Writer) error {
	if !quiet {
		fmt.Fprintln(out, "Running in line mode (no TUI).")
	}
	r := &lineRunner{out: out, errOut: errOut, actions: actions, answers: answers, quiet: quiet}

	for {
		select {
		case <-ctx.Done():
			cancel()
			return fmt.Errorf("download cancelled: %w", ctx.Err())
		case ev, ok := <-events:
			if !ok {
				if !r.done && r.err == nil {
					return errors.New("wizard stopped before the download finished")
				}
				return r.err
			}
			r.apply(ev)
		}
	}
}

func (r *lineRunner) apply(ev domain.Event) {
	if r.done {
		return
	}
	switch ev.Type {
	case domain.EventStep:
		if p, ok := ev.Payload.(domain.StepPayload); ok {
			r.onStep(p)
		}
	case domain.EventMetadata:
		if p, ok := ev.Payload.(domain.MetadataPayload); ok {
			printCLILine("•", ev.Step, describeMetadata(p.Metadata), r.out)
		}
	case domain.EventOptions:
		if p, ok := ev.Payload.(domain.OptionsPayload); ok {
			first := r.options == nil
			r.options = p.Options
			r.selected = p.Selected
			if first && !r.quiet {
				printCLILine("•", ev.Step, "Qualities: "+optionLabels(p.Options), r.out)
			}
		}
	case domain.EventLaunched:
		if p, ok := ev.Payload.(domain.LaunchedPayload); ok && !r.quiet {
			printCLILine("•", ev.Step, "Download id: "+p.DownloadID, r.out)
		}
	case domain.EventProgress:
		if p, ok := ev.Payload.(domain.ProgressPayload); ok {
			r.onProgress(ev.Step, p.View)
		}
	case domain.EventLog:
		if p, ok := ev.Payload.(domain.LogPayload); ok && !r.quiet {
			printCLILine("-", ev.Step, p.Message, r.out)
		}
	case domain.EventWarning:
		if p, ok := ev.Payload.(domain.LogPayload); ok {
			r.finishBar()
			printCLILine("!", ev.Step, p.Message, r.errOut)
		}
	case domain.EventError:
		if p, ok := ev.Payload.(domain.LogPayload); ok {
			r.finishBar()
			printCLILine("✗", ev.Step, p.Message, r.errOut)
		}
	}
}

func (r *lineRunner) onStep(p domain.StepPayload) {
	switch p.Phase.Kind {
	case domain.PhaseChoosePlatform:
		platform := r.answers.platform()
		printCLILine("==>", p.Step, "Platform: "+platform.Label(), r.out)
		r.send(domain.Action{Type: domain.ActionSelectPlatform, Platform: platform})
	case domain.PhaseChooseMode:
		mode := r.answers.mode()
		printCLILine("==>", p.Step, "Mode: "+string(mode), r.out)
		r.send(domain.Action{Type: domain.ActionSelectMode, Mode: mode})
	case domain.PhaseAwaitURL:
		if r.submitted {
			// The fetch failed or offered nothing; the warning is already printed.
			r.stop(errDownloadFailed)
			return
		}
		r.submitted = true
		r.send(domain.Action{Type: domain.ActionSubmitURL, Text: r.answers.URL})
	case domain.PhaseChooseQuality:
		if r.confirmed {
			return
		}
		i, err := pickQuality(r.options, r.answers.Quality)
		if err != nil {
			printCLILine("✗", p.Step, err.Error(), r.errOut)
			r.stop(usageError{err: err})
			return
		}
		if i != r.selected {
			r.send(domain.Action{Type: domain.ActionSelectQuality, Index: i})
		}
		printCLILine("==>", p.Step, "Quality: "+r.options[i].Label, r.out)
		r.confirmed = true
		r.send(domain.Action{Type: domain.ActionConfirm})
	case domain.PhaseConfirmCollection:
		if r.confirmed {
			return
		}
		printCLILine("==>", p.Step, "Downloading the whole playlist", r.out)
		r.confirmed = true
		r.send(domain.Action{Type: domain.ActionConfirm})
	case domain.PhaseLaunching:
		printCLILine("==>", p.Step, "Starting download...", r.out)
	case domain.PhaseStalled:
		r.stop(errStreamLost)
	case domain.PhaseDone:
		r.finishBar()
		printCLILine("✓", p.Step, p.Message, r.out)
		r.stop(nil)
	case domain.PhaseFailed:
		r.stop(errDownloadFailed)
	}
}

func (r *lineRunner) onProgress(step domain.Step, view domain.ProgressView) {
	if r.quiet {
		return
	}
	if view.Status != r.barStatus {
		r.finishBar()
		r.barStatus = view.Status
		if view.Status.Terminal() {
			return
		}
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription(view.Title),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowCount(),
		)
	}
	if r.bar == nil {
		return
	}
	desc := view.Title
	if view.Speed != "" {
		desc += " " + view.Speed
	}
	if view.ETA != "" {
		desc += " ETA " + view.ETA
	}
	r.bar.Describe(desc)
	_ = r.bar.Set(int(view.Percent))
}

func (r *lineRunner) finishBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	fmt.Fprintln(r.out)
	r.bar = nil
}

func (r *lineRunner) stop(err error) {
	r.done = true
	r.err = err
	r.send(domain.Action{Type: domain.ActionQuit})
}

func (r *lineRunner) send(a domain.Action) {
	if r.actions == nil {
		return
	}
	select {
	case r.actions <- a:
	default:
	}
}

// pickQuality resolves a --quality value against the offered options. An
// empty value keeps the default (first) option.
func pickQuality(options []domain.QualityOption, want string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no qualities offered")
	}
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return 0, nil
	}
	for i, opt := range options {
		if strings.ToLower(opt.Label) == want {
			return i, nil
		}
	}
	if want == "best" || want == "best-audio" {
		for i, opt := range options {
			if opt.Value.Best {
				return i, nil
			}
		}
	}
	n, err := strconv.Atoi(strings.TrimRight(strings.TrimSuffix(want, "kbps"), "p "))
	if err == nil {
		for i, opt := range options {
			if !opt.Value.Best && opt.Value.N == n {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("quality %q is not offered; available: %s", want, optionLabels(options))
}

func optionLabels(options []domain.QualityOption) string {
	labels := make([]string, 0, len(options))
	for _, o := range options {
		labels = append(labels, o.Label)
	}
	return strings.Join(labels, ", ")
}

func describeMetadata(m domain.Metadata) string {
	var details []string
	if m.IsCollection {
		details = append(details, humanize.Comma(int64(m.ItemCount))+" tracks")
	} else {
		if m.ChannelOrArtist != "" {
			details = append(details, m.ChannelOrArtist)
		}
		if d := m.DurationLabel(); d != "" {
			details = append(details, d)
		}
	}
	if len(details) == 0 {
		return m.Title
	}
	return m.Title + " (" + strings.Join(details, ", ") + ")"
}

func printCLILine(prefix string, step domain.Step, message string, out io.Writer) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	if step != 0 {
		fmt.Fprintf(out, "%s [%s] %s\n", prefix, step, message)
		return
	}
	fmt.Fprintf(out, "%s %s\n", prefix, message)
}
