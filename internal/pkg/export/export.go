// Package export serializes the account snapshot and writes run artifacts to a filesystem.
package export

import (
	"bytes"
	stdjson "encoding/json"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/lineitems"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/log"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/model"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/report"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/runtracker"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/utils/errors"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf(`unexpected format "%s", expected "json" or "yaml"`, value)
	}
}

// FormatOf returns the format by the file extension, JSON is the default.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func (f Format) Extension() string {
	return string(f)
}

// EncodeSnapshot serializes the snapshot, JSON is indented by 2 spaces unless compact.
func EncodeSnapshot(snapshot *model.AccountSnapshot, format Format, compact bool) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snapshot); err != nil {
			return nil, errors.Errorf(`cannot encode snapshot to YAML: %w`, err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return encodeJSON(snapshot, compact)
	default:
		return nil, errors.Errorf(`unexpected format "%s"`, format)
	}
}

// DecodeSnapshot parses a previously exported snapshot.
func DecodeSnapshot(content []byte, format Format) (*model.AccountSnapshot, error) {
	snapshot := &model.AccountSnapshot{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(content, snapshot)
	default:
		err = json.Unmarshal(content, snapshot)
	}
	if err != nil {
		return nil, errors.Errorf(`cannot decode snapshot: %w`, err)
	}
	return snapshot, nil
}

func encodeJSON(v any, compact bool) ([]byte, error) {
	var out []byte
	var err error
	if compact {
		out, err = json.Marshal(v)
	} else {
		// jsoniter loses indentation of values nested in maps
		out, err = stdjson.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return nil, errors.Errorf(`cannot encode to JSON: %w`, err)
	}
	return append(out, '\n'), nil
}

// Writer writes artifacts to the filesystem.
type Writer struct {
	fs     afero.Fs
	logger log.Logger
}

func NewWriter(fs afero.Fs, logger log.Logger) *Writer {
	return &Writer{fs: fs, logger: logger}
}

// WriteFile writes the file, missing parent directories are created.
func (w *Writer) WriteFile(path string, content []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Errorf(`cannot create directory "%s": %w`, dir, err)
		}
	}
	if err := afero.WriteFile(w.fs, path, content, 0o644); err != nil {
		return errors.Errorf(`cannot write file "%s": %w`, path, err)
	}
	w.logger.Debugf(`written file "%s"`, path)
	return nil
}

// ReadSnapshot reads a snapshot file, the format is detected by the extension.
func (w *Writer) ReadSnapshot(path string) (*model.AccountSnapshot, error) {
	content, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return nil, errors.Errorf(`cannot read snapshot "%s": %w`, path, err)
	}
	snapshot, err := DecodeSnapshot(content, FormatOf(path))
	if err != nil {
		return nil, errors.PrefixErrorf(err, `invalid snapshot "%s"`, path)
	}
	return snapshot, nil
}

type RunOptions struct {
	Format       Format
	Compact      bool
	SkipSnapshot bool
	SkipReports  bool
	Version      string
	GeneratedAt  time.Time
}

// Artifacts are paths of the written files, an empty path means the artifact was skipped.
type Artifacts struct {
	Snapshot  string
	Summary   string
	Outline   string
	LineItems string
}

// WriteRun writes all artifacts of the run to the directory.
func (w *Writer) WriteRun(dir string, run runtracker.Run, snapshot *model.AccountSnapshot, opts RunOptions) (Artifacts, error) {
	if opts.Format == "" {
		opts.Format = FormatJSON
	}

	var out Artifacts
	errs := errors.NewMultiError()
	write := func(target *string, fileType, extension string, content func() ([]byte, error)) {
		path := filepath.Join(dir, run.FileName(fileType, extension))
		data, err := content()
		if err == nil {
			err = w.WriteFile(path, data)
		}
		if err != nil {
			errs.AppendWithPrefixf(err, `cannot write %s`, fileType)
			return
		}
		*target = path
	}

	if !opts.SkipSnapshot {
		write(&out.Snapshot, runtracker.TypeSnapshot, opts.Format.Extension(), func() ([]byte, error) {
			return EncodeSnapshot(snapshot, opts.Format, opts.Compact)
		})
	}

	if !opts.SkipReports {
		write(&out.Summary, runtracker.TypeSummary, "md", func() ([]byte, error) {
			return []byte(report.Summary(snapshot, opts.GeneratedAt, opts.Version)), nil
		})
		write(&out.Outline, runtracker.TypeOutline, "md", func() ([]byte, error) {
			return []byte(report.Outline(snapshot, opts.GeneratedAt, opts.Version)), nil
		})
	}

	write(&out.LineItems, runtracker.TypeLineItems, "json", func() ([]byte, error) {
		return encodeJSON(lineitems.Build(snapshot, lineitems.DefaultStartNumber), false)
	})

	return out, errs.ErrorOrNil()
}
