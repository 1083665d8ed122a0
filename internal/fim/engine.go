package fim

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger is the structured logging sink the engine reports through
// (spec.md §7). internal/fimlog satisfies it over a *zap.Logger; tests
// use a no-op or recording stub.
type Logger interface {
	Error(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Info(msg string, kv ...any)
	Debug1(msg string, kv ...any)
	Debug2(msg string, kv ...any)
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any)  {}
func (nopLogger) Warn(string, ...any)   {}
func (nopLogger) Info(string, ...any)   {}
func (nopLogger) Debug1(string, ...any) {}
func (nopLogger) Debug2(string, ...any) {}

// Engine wires every core component together and owns the two mutexes
// the source calls fim_scan_mutex and fim_entry_mutex (spec.md §5);
// ConfigResolver owns fim_symlink_mutex itself. All of the three entry
// points — Scan, HandleRealtimeEvent, HandleWhodataEvent — funnel through
// the same entry mutex, giving total ordering of events per path.
type Engine struct {
	scanMu  sync.Mutex
	entryMu sync.Mutex

	store    EntryStore
	resolver *ConfigResolver
	dbState  *DbStateMonitor

	capacityEnabled bool
	fileMaxSize     int64
	prefilterCmd    string
	rateLimiter     *RateLimiter

	diff      Differ
	diffQuota DiffQuota
	transport Transport
	realtime  RealtimeWatcher
	log       Logger

	ignorePrefixes []string
	ignoreRegexes  []Matcher
	skipFS         map[string]struct{}

	statFunc func(string) (os.FileInfo, error)
	nowFunc  func() time.Time

	canContinue CanContinue

	mu       sync.Mutex // guards baseLine only
	baseLine bool

	diffFolderSizeKB int64
	rtDelay          time.Duration
}

// Config is the set of construction-time parameters Engine needs beyond
// the monitored-directory list, which lives in ConfigResolver.
type Config struct {
	Store           EntryStore
	Dirs            []MonitoredDir
	Capacity        int
	CapacityEnabled bool
	FileMaxSize     int64
	PrefilterCmd    string
	MaxEPS          int
	Differ          Differ
	DiffQuota       DiffQuota
	Transport       Transport
	Realtime        RealtimeWatcher
	Logger          Logger
	IgnorePrefixes  []string
	IgnoreRegexes   []Matcher
	SkipFilesystems []string
	RTDelay         time.Duration
}

// NewEngine builds an Engine from cfg. A nil Logger installs a no-op
// sink; a MaxEPS of zero or less disables rate limiting.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	skip := make(map[string]struct{}, len(cfg.SkipFilesystems))
	for _, fs := range cfg.SkipFilesystems {
		skip[fs] = struct{}{}
	}

	return &Engine{
		store:            cfg.Store,
		resolver:         NewConfigResolver(cfg.Dirs),
		dbState:          NewDbStateMonitor(cfg.Capacity),
		capacityEnabled:  cfg.CapacityEnabled,
		fileMaxSize:      cfg.FileMaxSize,
		prefilterCmd:     cfg.PrefilterCmd,
		rateLimiter:      NewRateLimiter(cfg.MaxEPS),
		diff:             cfg.Differ,
		diffQuota:        cfg.DiffQuota,
		transport:        cfg.Transport,
		realtime:         cfg.Realtime,
		log:              logger,
		ignorePrefixes:   cfg.IgnorePrefixes,
		ignoreRegexes:    cfg.IgnoreRegexes,
		skipFS:           skip,
		statFunc:         os.Lstat,
		nowFunc:          time.Now,
		canContinue:      alwaysContinue,
		rtDelay:          cfg.RTDelay,
	}
}

// SetCanContinue installs the cooperative cancellation predicate
// traversal checks at directory/file boundaries (spec.md §5).
func (e *Engine) SetCanContinue(fn CanContinue) {
	if fn == nil {
		fn = alwaysContinue
	}
	e.canContinue = fn
}

func (e *Engine) baseline() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseLine
}

func (e *Engine) setBaseline() {
	e.mu.Lock()
	e.baseLine = true
	e.mu.Unlock()
}

// DBState reports the current capacity band, primarily useful for tests
// and diagnostics; production consumers observe transitions through the
// emitted DB-state alerts instead.
func (e *Engine) DBState() DbState {
	return e.dbState.State()
}

func (e *Engine) newScanID() string {
	return uuid.NewString()
}

// emit hands an event to the transport collaborator, swallowing nil
// events (the common no-event-produced case) and logging delivery
// failures rather than propagating them — event emission never aborts
// the scan or reconciliation step that produced it.
func (e *Engine) emit(ev *Event) {
	if ev == nil || e.transport == nil {
		return
	}
	if !e.baseline() {
		// Invariant I5: the first scheduled scan establishes the
		// baseline silently; no change event escapes before it does.
		return
	}
	if err := e.transport.SendEvent(ev.Envelope()); err != nil {
		e.log.Warn("failed to send event", "path", ev.Path, "error", err)
	}
}

func (e *Engine) emitBracket(kind string, scanID string) {
	if e.transport == nil {
		return
	}
	b := ScanBracketEvent{Type: kind, Data: ScanBracketData{Timestamp: e.nowFunc().Unix(), ScanID: scanID}}
	if err := e.transport.SendScanBracket(b); err != nil {
		e.log.Warn("failed to send scan bracket", "kind", kind, "error", err)
	}
}

func (e *Engine) emitDbStateAlert(alert *DbStateAlert) {
	if alert == nil {
		return
	}
	e.log.Info("wazuh: FIM DB", "file_limit", alert.FileLimit, "file_count", alert.FileCount, "alert_type", alert.AlertType)
	if e.transport == nil {
		return
	}
	body, err := json.Marshal(alert)
	if err != nil {
		e.log.Warn("failed to marshal db state alert", "error", err)
		return
	}
	if err := e.transport.SendLogMessage("wazuh: FIM DB: " + string(body)); err != nil {
		e.log.Warn("failed to send db state alert", "error", err)
	}
}
