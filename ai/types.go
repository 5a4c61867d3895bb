package ai

// ClassLabels defines the valid document class labels a Classifier may
// return. ClassLabelMixed doubles as the fallback for content that fits no
// other label.
var ClassLabels = []string{
	"text",
	"code",
	"table",
	"markdown",
	"config",
	"log",
	"mixed",
}

// ClassLabelMixed is the catch-all label.
const ClassLabelMixed = "mixed"

// ValidClassLabel reports whether label is one of ClassLabels.
func ValidClassLabel(label string) bool {
	for _, known := range ClassLabels {
		if label == known {
			return true
		}
	}
	return false
}
