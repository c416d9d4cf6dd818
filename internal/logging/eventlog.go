package logging

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

const TranscriptFile = "ytw-log.md"

type Config struct {
	// Always writes the transcript even when the session ended cleanly.
	Always     bool
	Dir        string
	BackendURL string
	Transport  string
	Version    string
}

type Result struct {
	Path    string
	Written bool
}

// EventLogger keeps a transcript of one wizard session and renders it as
// markdown on Finalize.
type EventLogger struct {
	cfg         Config
	started     time.Time
	ended       time.Time
	buffer      logBuffer
	hadError    bool
	failedSteps map[domain.Step]bool
	downloads   []string
	lastStatus  domain.ProgressStatus
}

func NewEventLogger(cfg Config) *EventLogger {
	return &EventLogger{
		cfg:         cfg,
		started:     time.Now(),
		failedSteps: map[domain.Step]bool{},
	}
}

func (l *EventLogger) Record(ev domain.Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	l.ended = ev.TS

	switch ev.Type {
	case domain.EventStep:
		p, ok := ev.Payload.(domain.StepPayload)
		if !ok {
			return
		}
		fields := map[string]string{"phase": string(p.Phase.Kind)}
		if p.Platform != domain.PlatformNone {
			fields["platform"] = string(p.Platform)
		}
		if p.Mode != domain.ModeNone {
			fields["mode"] = string(p.Mode)
		}
		l.buffer.append(domain.LogEntry{
			TS:      ev.TS,
			Level:   domain.LogInfo,
			Source:  ev.Source,
			Step:    ev.Step,
			Message: "Entered: " + StepTitle(p.Step),
			Fields:  fields,
		})
		if p.Step == domain.StepError {
			l.hadError = true
			l.failedSteps[domain.StepProgress] = true
		}
	case domain.EventMetadata:
		p, ok := ev.Payload.(domain.MetadataPayload)
		if !ok {
			return
		}
		msg := "Fetched metadata: " + strings.TrimSpace(p.Metadata.Title)
		fields := map[string]string{"url": p.URL}
		if p.Metadata.IsCollection {
			fields["items"] = strconv.Itoa(p.Metadata.ItemCount)
		} else {
			fields["video_qualities"] = strconv.Itoa(len(p.Metadata.VideoQualities))
			fields["audio_qualities"] = strconv.Itoa(len(p.Metadata.AudioQualities))
		}
		l.buffer.append(domain.LogEntry{TS: ev.TS, Level: domain.LogInfo, Source: ev.Source, Step: ev.Step, Message: msg, Fields: fields})
	case domain.EventOptions:
		p, ok := ev.Payload.(domain.OptionsPayload)
		if !ok || p.Selected < 0 || p.Selected >= len(p.Options) {
			return
		}
		l.buffer.add(ev, domain.LogInfo, domain.LogPayload{
			Message: "Selected quality: " + p.Options[p.Selected].Label,
			Fields:  map[string]string{"op": "replace_last_if_same", "kind": "selection"},
		})
	case domain.EventLaunched:
		p, ok := ev.Payload.(domain.LaunchedPayload)
		if !ok {
			return
		}
		l.downloads = append(l.downloads, p.DownloadID)
		fields := map[string]string{"mode": string(p.Request.Mode), "download_id": p.DownloadID}
		if p.Request.Quality != nil {
			fields["quality"] = p.Request.Quality.String()
		}
		l.buffer.append(domain.LogEntry{TS: ev.TS, Level: domain.LogInfo, Source: ev.Source, Step: ev.Step, Message: "Download started", Fields: fields})
	case domain.EventProgress:
		p, ok := ev.Payload.(domain.ProgressPayload)
		if !ok {
			return
		}
		msg := fmt.Sprintf("%s %s", p.View.Title, p.View.PercentLabel)
		if p.View.Speed != "" {
			msg += " at " + p.View.Speed
		}
		level := domain.LogInfo
		if p.View.Status == domain.StatusError {
			level = domain.LogError
			msg = "Download failed: " + p.View.Message
		}
		op := "replace_last_if_same"
		if p.View.Status != l.lastStatus {
			op = ""
		}
		l.lastStatus = p.View.Status
		l.buffer.add(ev, level, domain.LogPayload{
			Message: msg,
			Fields:  map[string]string{"op": op, "kind": "progress", "progress_key": string(p.View.Status)},
		})
	case domain.EventLog:
		if p, ok := ev.Payload.(domain.LogPayload); ok {
			l.buffer.add(ev, domain.LogInfo, p)
		}
	case domain.EventWarning:
		if p, ok := ev.Payload.(domain.LogPayload); ok {
			l.buffer.add(ev, domain.LogWarning, p)
		}
	case domain.EventError:
		l.hadError = true
		if ev.Step != 0 {
			l.failedSteps[ev.Step] = true
		}
		if p, ok := ev.Payload.(domain.LogPayload); ok {
			l.buffer.add(ev, domain.LogError, p)
		}
	}
}

func (l *EventLogger) MarkFailure() {
	l.hadError = true
}

func (l *EventLogger) HadError() bool { return l.hadError }

func (l *EventLogger) Finalize() (Result, error) {
	if !l.cfg.Always && !l.hadError {
		return Result{}, nil
	}

	path := filepath.Join(resolveLogDir(l.cfg.Dir), TranscriptFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if l.ended.IsZero() {
		l.ended = time.Now()
	}
	l.writeMarkdown(w)
	if err := w.Flush(); err != nil {
		return Result{}, err
	}
	return Result{Path: path, Written: true}, nil
}

// StepTitle is the human heading of a wizard step.
func StepTitle(s domain.Step) string {
	switch s {
	case domain.StepPlatformSelect:
		return "Choose platform"
	case domain.StepModeSelect:
		return "Choose mode"
	case domain.StepURLAndQuality:
		return "Source and quality"
	case domain.StepProgress:
		return "Download progress"
	case domain.StepComplete:
		return "Download complete"
	case domain.StepError:
		return "Download failed"
	default:
		return "Session"
	}
}

type stepGroup struct {
	step    domain.Step
	entries []domain.LogEntry
}

type logItem struct {
	ts      time.Time
	level   domain.LogLevel
	source  string
	message string
	fields  string
	count   int
}

func (l *EventLogger) writeMarkdown(w *bufio.Writer) {
	groups, general := groupEntries(l.buffer.entries)
	result := "Completed"
	if l.hadError {
		result = "Failed"
	}

	fmt.Fprintln(w, "# ytw session log")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "- Started: %s\n", l.started.Format(time.RFC3339))
	fmt.Fprintf(w, "- Ended: %s\n", l.ended.Format(time.RFC3339))
	fmt.Fprintf(w, "- Result: %s\n", result)
	if l.hadError {
		if reason := failureReason(l.buffer.entries); reason != "" {
			fmt.Fprintf(w, "- Failure reason: %s\n", reason)
		}
	}
	if failed := l.failedStepList(); len(failed) > 0 {
		fmt.Fprintf(w, "- Failed steps: %s\n", strings.Join(failed, "; "))
	}
	if len(l.downloads) > 0 {
		fmt.Fprintf(w, "- Downloads: %s\n", strings.Join(l.downloads, ", "))
	}
	if v := strings.TrimSpace(l.cfg.BackendURL); v != "" {
		fmt.Fprintf(w, "- Backend: %s\n", v)
	}
	if v := strings.TrimSpace(l.cfg.Transport); v != "" {
		fmt.Fprintf(w, "- Transport: %s\n", v)
	}
	if v := strings.TrimSpace(l.cfg.Version); v != "" {
		fmt.Fprintf(w, "- Version: %s\n", v)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Steps")
	if len(groups) == 0 {
		fmt.Fprintln(w, "_No step logs recorded._")
	} else {
		for _, g := range groups {
			fmt.Fprintf(w, "### %s (`%s`)\n", StepTitle(g.step), g.step)
			writeEntries(w, g.entries)
			fmt.Fprintln(w)
		}
	}
	if len(general) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "## General")
		writeEntries(w, general)
	}
}

func (l *EventLogger) failedStepList() []string {
	steps := make([]int, 0, len(l.failedSteps))
	for s := range l.failedSteps {
		steps = append(steps, int(s))
	}
	sort.Ints(steps)
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		step := domain.Step(s)
		out = append(out, fmt.Sprintf("%s (`%s`)", StepTitle(step), step))
	}
	return out
}

// groupEntries splits entries into consecutive visits of a step. Revisiting a
// step after leaving it starts a new group.
func groupEntries(entries []domain.LogEntry) ([]stepGroup, []domain.LogEntry) {
	var groups []stepGroup
	var general []domain.LogEntry
	for _, entry := range entries {
		if entry.Step == 0 {
			general = append(general, entry)
			continue
		}
		if n := len(groups); n > 0 && groups[n-1].step == entry.Step {
			groups[n-1].entries = append(groups[n-1].entries, entry)
			continue
		}
		groups = append(groups, stepGroup{step: entry.Step, entries: []domain.LogEntry{entry}})
	}
	return groups, general
}

func writeEntries(w *bufio.Writer, entries []domain.LogEntry) {
	items := compressEntries(entries)
	if len(items) == 0 {
		fmt.Fprintln(w, "_No logs recorded._")
		return
	}

	var issues []logItem
	for _, item := range items {
		if item.level == domain.LogError || item.level == domain.LogWarning {
			issues = append(issues, item)
		}
	}
	if len(issues) > 0 {
		fmt.Fprintln(w, "#### Issues")
		fmt.Fprintln(w, "```text")
		for _, item := range issues {
			fmt.Fprintln(w, formatItemLine(item, true))
		}
		fmt.Fprintln(w, "```")
		fmt.Fprintln(w)
	}

	for _, item := range items {
		fmt.Fprintf(w, "- %s\n", formatItemLine(item, true))
	}
}

func compressEntries(entries []domain.LogEntry) []logItem {
	items := make([]logItem, 0, len(entries))
	for _, entry := range entries {
		item := logItem{
			ts:      entry.TS,
			level:   entry.Level,
			source:  strings.TrimSpace(entry.Source),
			message: sanitizeMessage(entry.Message),
			fields:  formatFields(entry.Fields),
			count:   1,
		}
		if len(items) > 0 {
			last := &items[len(items)-1]
			if last.level == item.level && last.source == item.source && last.message == item.message && last.fields == item.fields {
				last.count++
				continue
			}
		}
		items = append(items, item)
	}
	return items
}

func formatItemLine(item logItem, includeFields bool) string {
	level := strings.ToUpper(string(item.level))
	if level == "" {
		level = "INFO"
	}
	line := fmt.Sprintf("%s [%s]", item.ts.Format("2006-01-02 15:04:05"), level)
	if item.source != "" {
		line += " (" + item.source + ")"
	}
	if item.message != "" {
		line += " " + item.message
	}
	if item.count > 1 {
		line += fmt.Sprintf(" (x%d)", item.count)
	}
	if includeFields && item.fields != "" {
		line += " [" + item.fields + "]"
	}
	return line
}

func failureReason(entries []domain.LogEntry) string {
	for _, level := range []domain.LogLevel{domain.LogError, domain.LogWarning} {
		for _, entry := range entries {
			if entry.Level != level {
				continue
			}
			if entry.Fields != nil {
				if errText := strings.TrimSpace(entry.Fields["error"]); errText != "" {
					return sanitizeMessage(errText)
				}
			}
			if msg := sanitizeMessage(entry.Message); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if isInternalField(k) {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+formatValue(sanitizeMessage(fields[k])))
	}
	return strings.Join(out, " ")
}

func formatValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "\"\""
	}
	if strings.ContainsAny(v, " \t") {
		return strconv.Quote(v)
	}
	return v
}

func resolveLogDir(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err == nil {
		return dir
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return os.TempDir()
}

func isInternalField(k string) bool {
	switch strings.ToLower(strings.TrimSpace(k)) {
	case "op", "kind", "progress_key":
		return true
	default:
		return false
	}
}

type logBuffer struct {
	entries []domain.LogEntry
}

func (b *logBuffer) append(entry domain.LogEntry) {
	b.entries = append(b.entries, entry)
}

// add appends payload, or replaces the previous entry when the payload asks
// for it and the previous entry is of the same kind and key.
func (b *logBuffer) add(ev domain.Event, level domain.LogLevel, payload domain.LogPayload) {
	entry := domain.LogEntry{
		TS:      ev.TS,
		Level:   level,
		Source:  ev.Source,
		Step:    ev.Step,
		Message: payload.Message,
		Fields:  payload.Fields,
	}
	if payload.Fields != nil && payload.Fields["op"] == "replace_last_if_same" && len(b.entries) > 0 {
		last := b.entries[len(b.entries)-1]
		if last.Fields != nil && last.Step == entry.Step &&
			last.Fields["kind"] == payload.Fields["kind"] &&
			last.Fields["progress_key"] == payload.Fields["progress_key"] {
			b.entries[len(b.entries)-1] = entry
			return
		}
	}
	b.entries = append(b.entries, entry)
}

var secretQueryRe = regexp.MustCompile(`(?i)([?&](?:token|key|sig|signature|auth)=)[^&\s]+`)

func sanitizeMessage(message string) string {
	if strings.TrimSpace(message) == "" {
		return ""
	}
	message = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return ' '
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, message)
	return secretQueryRe.ReplaceAllString(message, "$1<redacted>")
}
