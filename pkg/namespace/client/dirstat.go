package client

import (
	"fmt"
	"time"

	"github.com/driftfs/driftfs/pkg/namespace"
)

// FormatDirStat renders a directory's aggregated statistics as the
// multi-line text block surfaced to tooling (immediate entry counts first,
// then the recursive totals the MDS maintains lazily).
func FormatDirStat(meta *namespace.ObjectMeta) string {
	if meta == nil || !meta.IsDir() {
		return ""
	}
	st := meta.DirStat
	return fmt.Sprintf(
		"entries:   %20d\n"+
			" files:    %20d\n"+
			" subdirs:  %20d\n"+
			"rentries:  %20d\n"+
			" rfiles:   %20d\n"+
			" rsubdirs: %20d\n"+
			"rbytes:    %20d\n"+
			"rctime:    %20s\n",
		st.Entries,
		st.Files,
		st.Subdirs,
		st.REntries,
		st.RFiles,
		st.RSubdirs,
		st.RBytes,
		st.RCtime.UTC().Format(time.RFC3339),
	)
}
