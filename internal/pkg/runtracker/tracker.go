// Package runtracker assigns sequential run numbers per account and generates artifact file names.
//
// Runs are recorded in a JSON control file:
//
//	{"<account_id>": [{"run_id": 1, "timestamp": "20240102_030405", "account_id": 123, "started_at": "..."}]}
package runtracker

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	jsoniter "github.com/json-iterator/go"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/log"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
)

const (
	ControlFileName = "importer_runs.json"
	TimestampFormat = "20060102_150405"
	startedAtFormat = "2006-01-02T15:04:05.999999Z"
	lockSuffix      = ".lock"
	lockRetryDelay  = 50 * time.Millisecond
)

// Artifact types.
const (
	TypeSnapshot  = "snapshot"
	TypeSummary   = "summary"
	TypeOutline   = "outline"
	TypeLineItems = "line_items"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type RunInfo struct {
	RunID     int    `json:"run_id"`
	Timestamp string `json:"timestamp"`
	AccountID int64  `json:"account_id"`
	StartedAt string `json:"started_at"`
}

// Run is a started run.
type Run struct {
	RunInfo
}

// FileName returns "account_<id>_run_<NNN>__<type>__<timestamp>.<ext>".
func (r Run) FileName(fileType, extension string) string {
	return FileName(r.AccountID, r.RunID, r.Timestamp, fileType, extension)
}

type Tracker struct {
	logger      log.Logger
	clock       clockwork.Clock
	controlFile string
}

type Option func(t *Tracker)

func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// New creates a tracker of the control file, the parent directory is created if it does not exist.
func New(controlFile string, logger log.Logger, opts ...Option) (*Tracker, error) {
	t := &Tracker{logger: logger, clock: clockwork.NewRealClock(), controlFile: controlFile}
	for _, o := range opts {
		o(t)
	}

	if err := os.MkdirAll(filepath.Dir(controlFile), 0o755); err != nil {
		return nil, errors.Errorf(`cannot create directory "%s": %w`, filepath.Dir(controlFile), err)
	}

	return t, nil
}

func (t *Tracker) ControlFile() string {
	return t.controlFile
}

// StartRun records a new run of the account and returns it.
// The control file is exclusively locked for the read-modify-write cycle.
func (t *Tracker) StartRun(ctx context.Context, accountID int64) (Run, error) {
	lock := flock.New(t.controlFile + lockSuffix)
	if locked, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return Run{}, errors.Errorf(`cannot acquire lock "%s": %w`, lock.Path(), err)
	} else if !locked {
		return Run{}, errors.Errorf(`cannot acquire lock "%s": already locked`, lock.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			t.logger.Warnf(`cannot release lock "%s": %s`, lock.Path(), err)
		}
	}()

	data := t.load()
	key := strconv.FormatInt(accountID, 10)

	now := t.clock.Now().UTC()
	run := Run{RunInfo: RunInfo{
		RunID:     len(data[key]) + 1,
		Timestamp: now.Format(TimestampFormat),
		AccountID: accountID,
		StartedAt: now.Format(startedAtFormat),
	}}
	data[key] = append(data[key], run.RunInfo)

	if err := t.save(data); err != nil {
		return Run{}, err
	}

	t.logger.Debugf(`started run %d of account %d`, run.RunID, accountID)
	return run, nil
}

// Runs returns recorded runs of the account.
func (t *Tracker) Runs(accountID int64) []RunInfo {
	return t.load()[strconv.FormatInt(accountID, 10)]
}

// load reads the control file, a missing or invalid file is an empty history.
func (t *Tracker) load() map[string][]RunInfo {
	data := make(map[string][]RunInfo)

	content, err := os.ReadFile(t.controlFile)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warnf(`cannot read control file "%s", starting a new history: %s`, t.controlFile, err)
		}
		return data
	}

	if err := json.Unmarshal(content, &data); err != nil {
		t.logger.Warnf(`invalid control file "%s", starting a new history: %s`, t.controlFile, err)
		return make(map[string][]RunInfo)
	}

	return data
}

func (t *Tracker) save(data map[string][]RunInfo) error {
	content, err := stdjson.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Errorf(`cannot encode control file: %w`, err)
	}
	content = append(content, '\n')

	if err := os.WriteFile(t.controlFile, content, 0o644); err != nil {
		return errors.Errorf(`cannot write control file "%s": %w`, t.controlFile, err)
	}
	return nil
}

// FileName returns "account_<id>_run_<NNN>__<type>__<timestamp>.<ext>".
func FileName(accountID int64, runID int, timestamp, fileType, extension string) string {
	return fmt.Sprintf("account_%d_run_%03d__%s__%s.%s", accountID, runID, fileType, timestamp, extension)
}
