package hypothesis

// Export is the presentation-free form of a Hypothesis used by reports and
// the JSON/YAML exporters.
type Export struct {
	Statement     string `json:"statement" yaml:"statement"`
	Justification string `json:"justification" yaml:"justification"`
	Verification  string `json:"verification_method" yaml:"verification_method"`
}

// Export strips the plot payload.
func (h Hypothesis) Export() Export {
	return Export{Statement: h.Statement, Justification: h.Justification, Verification: h.Verification}
}

// ExportAll converts hs in order.
func ExportAll(hs []Hypothesis) []Export {
	out := make([]Export, len(hs))
	for i, h := range hs {
		out[i] = h.Export()
	}
	return out
}
