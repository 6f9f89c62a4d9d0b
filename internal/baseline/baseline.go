package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/faucetdb/driftguard/internal/model"
)

// Fingerprint identifies a diagnostic independently of its line, so accepted
// findings survive unrelated edits above them.
func Fingerprint(d model.Diagnostic) string {
	h := sha256.New()
	h.Write([]byte(d.Category))
	h.Write([]byte{0})
	h.Write([]byte(d.File))
	h.Write([]byte{0})
	h.Write([]byte(d.Message))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// FromDiagnostics builds the entries accepting diags, one per fingerprint,
// ordered by file then fingerprint.
func FromDiagnostics(project string, diags []model.Diagnostic, now time.Time) []Entry {
	seen := make(map[string]bool, len(diags))
	var out []Entry
	for _, d := range diags {
		fp := Fingerprint(d)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, Entry{
			Project:     project,
			Fingerprint: fp,
			Category:    d.Category,
			File:        d.File,
			Message:     d.Message,
			AcceptedAt:  now.UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out
}

// Filter removes the diagnostics covered by accepted and reports the accepted
// entries the run no longer produces. Order of diags is preserved.
func Filter(diags []model.Diagnostic, accepted []Entry) Result {
	byFingerprint := make(map[string]bool, len(accepted))
	for _, e := range accepted {
		byFingerprint[e.Fingerprint] = true
	}

	res := Result{Diagnostics: []model.Diagnostic{}}
	matched := make(map[string]bool)
	for _, d := range diags {
		fp := Fingerprint(d)
		if byFingerprint[fp] {
			matched[fp] = true
			res.Suppressed++
			continue
		}
		res.Diagnostics = append(res.Diagnostics, d)
	}
	for _, e := range accepted {
		if !matched[e.Fingerprint] {
			res.Resolved = append(res.Resolved, e)
		}
	}
	return res
}

// Apply filters report in place and recomputes its status.
func Apply(report *model.Report, accepted []Entry) Result {
	res := Filter(report.Diagnostics, accepted)
	report.Diagnostics = res.Diagnostics
	report.Suppressed = res.Suppressed
	report.Status = model.StatusOf(res.Diagnostics)
	return res
}
