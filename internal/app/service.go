// Package app runs one office-hours scheduling request end to end: save
// the uploads, build the config, call the engine, package the outputs and
// record anonymized usage.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthigger/oh-sched-web/internal/adapters/engine"
	"github.com/matthigger/oh-sched-web/internal/adapters/objectstore"
	"github.com/matthigger/oh-sched-web/internal/domain/schedule"
	"github.com/matthigger/oh-sched-web/internal/domain/usage"
	"github.com/matthigger/oh-sched-web/pkg/logger"
	"github.com/matthigger/oh-sched-web/pkg/metrics"
)

const defaultUsageTimeout = 5 * time.Second

// Fallback names for uploads whose client filename is unusable.
const (
	defaultCSVName  = "upload.csv"
	defaultYAMLName = "config.yaml"
)

// Upload is a file received from the client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// Input is one scheduling request. A nil or empty YAML upload means the
// form fields are used instead.
type Input struct {
	CSV  *Upload
	YAML *Upload
	Form schedule.FormFields
}

// Service executes scheduling requests.
type Service struct {
	engine      engine.Engine
	store       objectstore.Store
	logger      logger.Logger
	now         func() time.Time
	newID       func() string
	scratchRoot string
	outputRoot  string

	usageTimeout time.Duration
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine sets the scheduling engine.
func WithEngine(e engine.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithStore sets the usage record store. Without one, usage records are
// only logged.
func WithStore(st objectstore.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithUsageTimeout bounds the usage record upload so a slow bucket cannot
// hold up the results page. Non-positive values are ignored.
func WithUsageTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.usageTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for usage timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides run and usage key generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithScratchRoot sets the parent of per-request upload directories.
func WithScratchRoot(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.scratchRoot = dir
		}
	}
}

// WithOutputRoot sets the parent of per-run output directories.
func WithOutputRoot(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outputRoot = dir
		}
	}
}

// New constructs a Service. The default engine runs the oh_sched CLI.
func New(opts ...Option) *Service {
	s := &Service{
		engine:      engine.NewExecEngine(),
		logger:      logger.Nop(),
		now:         time.Now,
		newID:       uuid.NewString,
		scratchRoot: "uploads",
		outputRoot:  "outputs",

		usageTimeout: defaultUsageTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OutputRoot returns the directory holding per-run outputs.
func (s *Service) OutputRoot() string { return s.outputRoot }

// Run executes one request. Failures are reported in Result.Err rather
// than as an error so the caller can always render a results page.
func (s *Service) Run(ctx context.Context, in Input) Result {
	start := time.Now()
	metrics.IncActiveRuns()
	defer metrics.DecActiveRuns()

	res, outcome := s.run(ctx, in)

	metrics.RecordSchedulerRun(outcome)
	s.logger.Info(ctx, "schedule run finished",
		logger.String("run_id", res.RunID),
		logger.String("outcome", outcome),
		logger.Int("artifacts", len(res.Artifacts)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res
}

func (s *Service) run(ctx context.Context, in Input) (Result, string) {
	res := Result{RunID: s.newID()}

	if in.CSV == nil {
		res.fail(KindUpload, ErrMissingCSV.Error())
		return res, metrics.OutcomeError
	}

	ws, err := newWorkspace(s.scratchRoot, s.outputRoot, res.RunID)
	if err != nil {
		s.logger.Error(ctx, "workspace setup failed", logger.Error(err))
		res.fail(KindFilesystem, err.Error())
		return res, metrics.OutcomeError
	}
	defer func() {
		if err := ws.Close(); err != nil {
			metrics.RecordCleanupError()
			s.logger.Warn(ctx, "scratch cleanup failed",
				logger.String("dir", ws.scratchDir),
				logger.Error(err),
			)
		}
	}()

	csvPath, err := ws.save(in.CSV, defaultCSVName)
	if err != nil {
		s.logger.Error(ctx, "saving csv upload failed", logger.Error(err))
		res.fail(KindFilesystem, err.Error())
		return res, metrics.OutcomeError
	}

	cfg, err := s.buildConfig(ws, in)
	if err != nil {
		if errors.Is(err, ErrSaveUpload) {
			res.fail(KindFilesystem, err.Error())
			return res, metrics.OutcomeError
		}
		s.logger.Info(ctx, "rejected schedule config", logger.Error(err))
		res.fail(KindConfig, err.Error())
		s.addStream(ctx, ws, &res, ErrorFile, err.Error())
		return res, metrics.OutcomeConfigError
	}

	calendar := filepath.Join(ws.outputDir, schedule.CalendarFile)
	engineStart := time.Now()
	out, runErr := s.engine.Schedule(ctx, engine.Request{
		CSVPath: csvPath,
		Config:  cfg.WithOutput(calendar),
		WorkDir: ws.scratchDir,
	})
	metrics.RecordSchedulerRunDuration(float64(time.Since(engineStart).Milliseconds()))

	if runErr != nil {
		// A failed run may leave a partial calendar behind.
		if err := os.Remove(calendar); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn(ctx, "removing partial calendar failed", logger.Error(err))
		}
		s.logger.Warn(ctx, "scheduler failed",
			logger.String("run_id", res.RunID),
			logger.Error(runErr),
		)
		errText := joinNonEmpty(string(out.Stderr), runErr.Error())
		res.fail(KindEngine, runErr.Error())
		s.addStream(ctx, ws, &res, ErrorFile, errText)
		s.addStream(ctx, ws, &res, OutputFile, string(out.Stdout))
		return res, metrics.OutcomeEngineError
	}

	echo, err := cfg.WithOutput(schedule.CalendarFile).Marshal()
	if err != nil {
		res.fail(KindFilesystem, err.Error())
		return res, metrics.OutcomeError
	}
	echoPath, err := ws.write(ConfigEchoFile, echo)
	if err != nil {
		s.logger.Error(ctx, "writing config echo failed", logger.Error(err))
		res.fail(KindFilesystem, err.Error())
		return res, metrics.OutcomeError
	}

	res.addArtifact(schedule.CalendarFile, calendar)
	res.addArtifact(ConfigEchoFile, echoPath)
	res.Sections = append(res.Sections, Section{Name: ConfigEchoFile, Body: string(echo)})
	s.addStream(ctx, ws, &res, ErrorFile, string(out.Stderr))
	s.addStream(ctx, ws, &res, OutputFile, string(out.Stdout))

	s.recordUsage(ctx, csvPath)
	return res, metrics.OutcomeSuccess
}

func (s *Service) buildConfig(ws *workspace, in Input) (schedule.Config, error) {
	if in.YAML == nil || in.YAML.Size == 0 {
		return schedule.FromForm(in.Form)
	}
	path, err := ws.save(in.YAML, defaultYAMLName)
	if err != nil {
		return schedule.Config{}, err
	}
	return schedule.FromYAML(path)
}

// addStream records a captured stream as a section and a downloadable
// file, unless it is blank.
func (s *Service) addStream(ctx context.Context, ws *workspace, res *Result, name, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	res.Sections = append(res.Sections, Section{Name: name, Body: body})
	p, err := ws.write(name, []byte(body))
	if err != nil {
		s.logger.Warn(ctx, "writing stream file failed", logger.String("file", name), logger.Error(err))
		return
	}
	res.addArtifact(name, p)
}

// recordUsage logs and uploads the anonymized participant record. Errors
// are logged and counted, never returned.
func (s *Service) recordUsage(ctx context.Context, csvPath string) {
	ids, err := s.engine.Participants(ctx, csvPath)
	if err != nil {
		metrics.RecordUsageUpload(metrics.OutcomeError)
		s.logger.Warn(ctx, "reading participants failed", logger.Error(err))
		return
	}

	line := usage.NewRecord(s.now(), ids).Line()
	s.logger.Info(ctx, usage.LogPrefix+" "+line)

	if s.store == nil {
		metrics.RecordUsageUpload(metrics.OutcomeSkipped)
		return
	}
	key := s.newID()
	putCtx, cancel := context.WithTimeout(ctx, s.usageTimeout)
	defer cancel()
	if err := s.store.Put(putCtx, key, []byte(line+"\n")); err != nil {
		metrics.RecordUsageUpload(metrics.OutcomeError)
		s.logger.Warn(ctx, "usage upload failed", logger.String("key", key), logger.Error(err))
		return
	}
	metrics.RecordUsageUpload(metrics.OutcomeSuccess)
}

func (r *Result) fail(kind ErrorKind, msg string) {
	r.Err = &ErrorInfo{Kind: kind, Message: msg}
	if kind == KindUpload || kind == KindFilesystem {
		r.Sections = append(r.Sections, Section{Name: ErrorFile, Body: msg})
	}
}

func (r *Result) addArtifact(name, path string) {
	r.Artifacts = append(r.Artifacts, Artifact{Name: name, Path: path, URL: DownloadURL(r.RunID, name)})
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimRight(p, "\n"); strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
