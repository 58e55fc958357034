package pathplan

import (
	"fmt"
	"os"
	"path/filepath"

	"callscribe/internal/model"
)

// Planner derives canonical storage paths for normalized recordings.
// The same call metadata always maps to the same path, which makes the
// path double as a de-duplication and audit key.
type Planner struct {
	root string
}

// NewPlanner creates a planner rooted at the records directory.
func NewPlanner(root string) *Planner {
	return &Planner{root: root}
}

// Plan returns the canonical path for a recording and ensures its
// directory chain exists. Layout:
//
//	<root>/tenant_{tenant}/{year}/{month}/{day}/{rep}/{callType}/{start}_{caller}_{callee}_{rep}_{callId}.{ext}
//
// Month and day are zero-padded to width 2. Directory creation is
// idempotent; only real filesystem failures (permissions, read-only
// mounts) propagate.
func (p *Planner) Plan(meta model.CallMetadata, extension string) (string, error) {
	callType := meta.CallType
	if callType == "" {
		callType = "inbound"
	}

	start := meta.CallStartTimestamp
	dir := filepath.Join(
		p.root,
		fmt.Sprintf("tenant_%d", meta.TenantID),
		fmt.Sprintf("%d", start.Year()),
		fmt.Sprintf("%02d", int(start.Month())),
		fmt.Sprintf("%02d", start.Day()),
		meta.RepresentativeID,
		callType,
	)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create records directory %s: %w", dir, err)
	}

	filename := fmt.Sprintf("%s_%s_%s_%s_%s.%s",
		start.Format("2006-01-02T15-04-05"),
		meta.CallerPhoneNumber,
		meta.CalleePhoneNumber,
		meta.RepresentativeID,
		meta.CallID,
		extension,
	)

	return filepath.Join(dir, filename), nil
}
