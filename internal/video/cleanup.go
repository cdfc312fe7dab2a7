package video

import (
	"fmt"
	"os"
	"path/filepath"
)

// Cleanup removes the transient per-segment clips and the concat
// manifest from workDir. Avatar images and the final output are left
// alone. Missing files are not an error, so repeated calls are no-ops.
func Cleanup(workDir string) error {
	clips, err := filepath.Glob(filepath.Join(workDir, "segment_*.mp4"))
	if err != nil {
		return fmt.Errorf("glob segments: %w", err)
	}
	for _, clip := range clips {
		if err := os.Remove(clip); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove segment %s: %w", clip, err)
		}
	}
	manifest := filepath.Join(workDir, ManifestName)
	if err := os.Remove(manifest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove manifest: %w", err)
	}
	return nil
}
