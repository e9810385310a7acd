package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
)

// Artifact file names consumed by the presentation layer. These, like the
// field names inside them, are part of the external contract.
const (
	intelFileName      = "intel.json"
	enrichmentFileName = "enrichment.json"
	runFileName        = "run.json"
)

var artifactJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ArtifactWriter writes the run's JSON artifacts into the output directory:
// the normalized intermediate artifact, the enrichment artifact, and the final
// combined run artifact.
type ArtifactWriter struct {
	dir    string
	logger *zap.Logger
}

// NewArtifactWriter creates a writer rooted at dir.
func NewArtifactWriter(dir string, logger *zap.Logger) *ArtifactWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactWriter{dir: dir, logger: logger.Named("artifacts")}
}

// Write emits all three artifacts for the run.
func (w *ArtifactWriter) Write(run *schemas.RunArtifact) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.writeJSON(intelFileName, run.Intel); err != nil {
		return err
	}
	if err := w.writeJSON(enrichmentFileName, run.Enrichment); err != nil {
		return err
	}
	if err := w.writeJSON(runFileName, run); err != nil {
		return err
	}

	w.logger.Info("Artifacts written", zap.String("dir", w.dir))
	return nil
}

func (w *ArtifactWriter) writeJSON(name string, v any) error {
	data, err := artifactJSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %s: %w", name, err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	return nil
}
