package converter

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"duoconv/core/settings"
)

// ConvertTask runs the requested pipelines for one file, OGG first, and folds
// the outcomes. A WebM run never depends on the OGG outcome. The returned
// error covers faults outside a pipeline, such as failing to create the
// output directory.
func (c *Converter) ConvertTask(task Task, s settings.Settings) (TaskResult, error) {
	requested := task.Requested()
	if requested.Empty() {
		return TaskSkipped{Path: task.Path}, nil
	}

	outDir := filepath.Join(filepath.Dir(task.Path), c.subdir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", outDir, err)
	}

	outcomes := make(map[Format]Outcome, 2)
	for _, f := range requested.Slice() {
		outcomes[f] = c.Transcode(task.Path, s, f)
	}

	result := Fold(task.Path, requested, outcomes)
	if result.Status() == StatusNoOp {
		c.logger.Error("task produced neither output nor error",
			zap.String("file", task.Path),
			zap.Stringer("requested", requested))
	}
	return result, nil
}

// Fold derives a TaskResult from the outcomes of the requested formats.
// Errors are kept in pipeline order.
func Fold(path string, requested FormatSet, outcomes map[Format]Outcome) TaskResult {
	if requested.Empty() {
		return TaskSkipped{Path: path}
	}

	var produced FormatSet
	var errs []string
	for _, f := range requested.Slice() {
		switch o := outcomes[f].(type) {
		case Succeeded:
			produced = produced.With(f)
		case Failed:
			errs = append(errs, o.Diagnostic)
		}
	}

	switch {
	case len(errs) > 0:
		return TaskError{Path: path, Formats: produced, Errors: errs}
	case !produced.Empty():
		return TaskSuccess{Path: path, Formats: produced}
	default:
		return TaskNoOp{Path: path}
	}
}
