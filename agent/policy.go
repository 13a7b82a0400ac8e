package agent

import (
	"fmt"
	"strings"

	"github.com/mkale/sleuth/chat"
)

const downloadToolName = "download_file"

// minDownloadSizes maps extensions to the smallest plausible size for a
// real document of that type. Anything smaller is usually an error page.
var minDownloadSizes = map[string]int64{
	".pdf":  20000,
	".xlsx": 5000,
	".xls":  5000,
}

// runState carries the per-invocation caches: constructed fresh at the
// start of one ProcessMessage call and discarded at its end, never shared
// across sessions or invocations.
type runState struct {
	budget        int
	calls         int
	downloadCache map[downloadKey]map[string]any
	emittedFiles  map[string]struct{}
}

func newRunState(budget int) *runState {
	return &runState{
		budget:        budget,
		downloadCache: make(map[downloadKey]map[string]any),
		emittedFiles:  make(map[string]struct{}),
	}
}

// downloadKey identifies "the same download" for dedup purposes: the URL
// byte-exact plus the case-folded filename.
type downloadKey struct {
	url      string
	filename string
}

func downloadKeyFor(args map[string]any) downloadKey {
	u, _ := args["url"].(string)
	f, _ := args["filename"].(string)
	return downloadKey{url: u, filename: strings.ToLower(f)}
}

// annotateDuplicate returns a copy of a cached download result flagged as
// deduplicated. The cached entry itself stays untouched.
func annotateDuplicate(cached map[string]any) map[string]any {
	out := make(map[string]any, len(cached)+2)
	for k, v := range cached {
		out[k] = v
	}
	out["deduplicated"] = true
	out["deduplicated_reason"] = "Skipped duplicate download_file call for identical url+filename."
	return out
}

// applyFilePolicy decides what the user sees for a download result: a file
// message for a verified artifact (once per case-folded filename), or a
// system warning when verification fails. Deduplicated and failed results
// produce neither.
func (a *Agent) applyFilePolicy(conv *chat.Conversation, state *runState, result map[string]any) {
	if !boolField(result, "success") || boolField(result, "deduplicated") {
		return
	}

	if warning := verifyDownload(result); warning != "" {
		conv.AddSystemMessage(warning)
		return
	}

	filename := stringField(result, "filename")
	key := strings.ToLower(filename)
	if _, seen := state.emittedFiles[key]; seen {
		return
	}
	state.emittedFiles[key] = struct{}{}
	conv.AddFileMessage(filename, stringField(result, "path"), intField(result, "size_bytes"))
}

// verifyDownload checks a successful download for suspicious signals.
// Returns the combined warning text, or "" when the artifact looks sound.
func verifyDownload(result map[string]any) string {
	var warnings []string
	filename := stringField(result, "filename")
	size := intField(result, "size_bytes")

	lower := strings.ToLower(filename)
	for ext, min := range minDownloadSizes {
		if strings.HasSuffix(lower, ext) && size < min {
			warnings = append(warnings, fmt.Sprintf(
				"File size (%s bytes) is suspiciously small for a %s file. "+
					"Expected at least %s bytes. The URL may have returned an error page.",
				commafy(size), strings.ToUpper(ext[1:]), commafy(min)))
			break
		}
	}

	if w := stringField(result, "warning"); w != "" {
		warnings = append(warnings, w)
	}

	if len(warnings) == 0 {
		return ""
	}
	return "DOWNLOAD VERIFICATION WARNING:\n- " + strings.Join(warnings, "\n- ")
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// intField reads a numeric field regardless of whether it arrived as a Go
// integer or a JSON-decoded float.
func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// commafy renders n with thousands separators.
func commafy(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}
