// Package report renders a pipeline run as a JSON audit report and a
// pair of standalone cleanup scripts.
//
// Ported from original_source/json_report.py and script_report.py. The
// JSON schema, field names, and cleanup script text (including the exact
// bash/PowerShell quote-escaping) are kept as close to the originals as
// an idiomatic Go rendering allows.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"cerebro/internal/types"
)

const schema = "cerebro.report.v1"

// jsonReport is the top-level payload written to the audit report file.
type jsonReport struct {
	Schema      string         `json:"schema"`
	GeneratedTS float64        `json:"generated_ts"`
	ScanID      string         `json:"scan_id"`
	Request     requestSummary `json:"request"`
	Stats       map[string]any `json:"stats"`
	Groups      []groupSummary `json:"groups"`
	DeletePlan  planSummary    `json:"delete_plan"`
}

type requestSummary struct {
	Roots          []string       `json:"roots"`
	Mode           types.Mode     `json:"mode"`
	UseFullHash    bool           `json:"use_full_hash"`
	ValidationMode bool           `json:"validation_mode"`
	Options        map[string]any `json:"options,omitempty"`
}

type groupSummary struct {
	Key   string   `json:"key"`
	Size  int64    `json:"size"`
	Count int      `json:"count"`
	Paths []string `json:"paths"`
}

type planItemSummary struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type planSummary struct {
	Policy       *types.DeletionPolicy `json:"policy"`
	DryRun       bool                  `json:"dry_run"`
	TokenPresent bool                  `json:"token_present"`
	Items        []planItemSummary     `json:"items"`
}

// WriteJSON renders the full audit report to outPath, creating parent
// directories as needed. generatedTS is a UNIX timestamp in seconds,
// supplied by the caller (not computed here) so validation-mode tests can
// exclude it from byte-identical comparison, per spec.md's determinism
// invariant applied to everything except wall-clock fields. stats is
// written verbatim under the "stats" key, matching json_report.py's
// "stats or {}" — a nil map is rendered as {}.
func WriteJSON(outPath, scanID string, req types.PipelineRequest, stats map[string]any, groups []types.DuplicateGroup, plan types.DeletePlan, generatedTS float64) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if stats == nil {
		stats = map[string]any{}
	}

	payload := jsonReport{
		Schema:      schema,
		GeneratedTS: generatedTS,
		ScanID:      scanID,
		Request: requestSummary{
			Roots:          req.Roots,
			Mode:           req.Mode,
			UseFullHash:    req.UseFullHash,
			ValidationMode: req.ValidationMode,
			Options:        req.Options,
		},
		Stats:      stats,
		Groups:     serializeGroups(groups),
		DeletePlan: serializePlan(plan),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// BuildStats summarizes one pipeline run's groups and delete plan into
// the "stats" object json_report.py leaves to its caller to populate.
// execution may be nil (SCAN/SIMILAR modes, or a DELETE run that never
// reached the executor).
func BuildStats(groups []types.DuplicateGroup, plan types.DeletePlan, execution *types.ExecutionReport) map[string]any {
	var reclaimable int64
	candidates := 0
	for _, it := range plan.Items {
		if !it.Survivor {
			candidates++
			reclaimable += it.SizeBytes
		}
	}

	stats := map[string]any{
		"duplicate_groups":  len(groups),
		"delete_candidates": candidates,
		"bytes_reclaimable": reclaimable,
	}

	if execution != nil {
		stats["deleted_count"] = execution.DeletedCount
		stats["failed_count"] = execution.FailedCount
	}

	return stats
}

func serializeGroups(groups []types.DuplicateGroup) []groupSummary {
	return lo.Map(groups, func(g types.DuplicateGroup, _ int) groupSummary {
		paths := lo.Map(g.Items, func(it types.DuplicateItem, _ int) string { return it.Path })
		var size int64
		if len(g.Items) > 0 {
			size = g.Items[0].SizeBytes
		}
		return groupSummary{Key: g.GroupID, Size: size, Count: len(g.Items), Paths: paths}
	})
}

func serializePlan(plan types.DeletePlan) planSummary {
	items := lo.Map(plan.Items, func(it types.DeletePlanItem, _ int) planItemSummary {
		return planItemSummary{Path: it.Path, Reason: it.Reason}
	})
	summary := planSummary{
		DryRun:       plan.DeletionPolicy == types.PolicyDryRun,
		TokenPresent: plan.Token != "",
		Items:        items,
	}
	if plan.DeletionPolicy != "" {
		p := plan.DeletionPolicy
		summary.Policy = &p
	}
	return summary
}

// WriteCleanupScripts emits cleanup.sh and cleanup.ps1 into outDir,
// listing every path in plan (survivors included; both scripts are
// advisory artifacts a human reviews before running).
func WriteCleanupScripts(outDir, scanID string, plan types.DeletePlan) (shPath, psPath string, err error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create script dir: %w", err)
	}

	paths := make([]string, len(plan.Items))
	for i, it := range plan.Items {
		paths[i] = it.Path
	}

	shPath = filepath.Join(outDir, "cleanup.sh")
	psPath = filepath.Join(outDir, "cleanup.ps1")

	if err := os.WriteFile(shPath, []byte(bashScript(paths, scanID)), 0o755); err != nil { //nolint:gosec // script must be executable
		return "", "", fmt.Errorf("write cleanup.sh: %w", err)
	}
	if err := os.WriteFile(psPath, []byte(powershellScript(paths, scanID)), 0o644); err != nil {
		return "", "", fmt.Errorf("write cleanup.ps1: %w", err)
	}
	return shPath, psPath, nil
}

func bashScript(paths []string, scanID string) string {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n")
	b.WriteString("set -euo pipefail\n\n")
	fmt.Fprintf(&b, "# CEREBRO cleanup script (scan_id=%s)\n", scanID)
	b.WriteString("# Safe default: DRY RUN (echo). To execute, run: EXECUTE=1 ./cleanup.sh\n")
	b.WriteString("EXECUTE=\"${EXECUTE:-0}\"\n\n")
	b.WriteString("rm_file() {\n")
	b.WriteString("  local p=\"$1\"\n")
	b.WriteString("  if [[ \"${EXECUTE}\" == \"1\" ]]; then\n")
	b.WriteString("    rm -f -- \"$p\"\n")
	b.WriteString("  else\n")
	b.WriteString("    echo \"[DRY] rm -f -- $p\"\n")
	b.WriteString("  fi\n")
	b.WriteString("}\n\n")
	for _, p := range paths {
		qp := strings.ReplaceAll(p, "'", `'"'"'`)
		fmt.Fprintf(&b, "rm_file '%s'\n", qp)
	}
	b.WriteString("\n")
	return b.String()
}

func powershellScript(paths []string, scanID string) string {
	var b strings.Builder
	b.WriteString("# CEREBRO cleanup script\n")
	fmt.Fprintf(&b, "# scan_id: %s\n", scanID)
	b.WriteString("# Safe default: DRY RUN (Write-Host). To execute: $env:EXECUTE=1; .\\cleanup.ps1\n")
	b.WriteString("$Execute = $env:EXECUTE\n")
	b.WriteString("if (-not $Execute) { $Execute = '0' }\n\n")
	b.WriteString("function Remove-FileSafe($p) {\n")
	b.WriteString("  if ($Execute -eq '1') {\n")
	b.WriteString("    Remove-Item -LiteralPath $p -Force -ErrorAction Continue\n")
	b.WriteString("  } else {\n")
	b.WriteString("    Write-Host \"[DRY] Remove-Item -LiteralPath $p -Force\"\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	for _, p := range paths {
		qp := strings.ReplaceAll(p, "'", "''")
		fmt.Fprintf(&b, "Remove-FileSafe '%s'\n", qp)
	}
	b.WriteString("\n")
	return b.String()
}

// NowUnixSeconds is the one place this package touches wall-clock time,
// kept isolated so tests can hold it fixed or ignore the field entirely.
func NowUnixSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
