package hypothesis

import (
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
)

// targetNames are conventional names for a prediction target.
var targetNames = []string{"survived", "target", "label", "y", "class"}

// FindTarget picks the column hypotheses are framed around: a column with a
// conventional target name, else the first categorical column, else the first
// numeric one. It returns "" when nothing qualifies.
func FindTarget(t *dataset.Table, numeric, categorical []string) string {
	for _, name := range t.Columns() {
		lower := strings.ToLower(name)
		for _, want := range targetNames {
			if lower == want {
				return name
			}
		}
	}
	if len(categorical) > 0 {
		return categorical[0]
	}
	if len(numeric) > 0 {
		return numeric[0]
	}
	return ""
}
