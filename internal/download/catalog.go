package download

// Entry is a suggested dataset.
type Entry struct {
	Name               string `json:"name" yaml:"name"`
	Ref                string `json:"ref" yaml:"ref"`
	Description        string `json:"description" yaml:"description"`
	Size               string `json:"size" yaml:"size"`
	RequiresAcceptance bool   `json:"requires_acceptance" yaml:"requires_acceptance"`
}

var catalog = []Entry{
	{Name: "Titanic", Ref: "c/titanic", Description: "Passengers of the Titanic (891 rows, 12 columns)", Size: "~60 KB", RequiresAcceptance: true},
	{Name: "House Prices", Ref: "c/house-prices-advanced-regression-techniques", Description: "House price regression (1460 rows, 81 columns)", Size: "~300 KB", RequiresAcceptance: true},
	{Name: "Sales Data", Ref: "rohanrao/aisles-and-sales-data", Description: "Product sales (10000+ rows)", Size: "~500 KB"},
	{Name: "Customer Segmentation", Ref: "vjchoudhary7/customer-segmentation-tutorial-in-python", Description: "Customer segmentation for marketing (2000 rows, 8 columns)", Size: "~50 KB"},
	{Name: "Iris", Ref: "uciml/iris", Description: "Iris classification (150 rows, 5 columns)", Size: "~5 KB"},
	{Name: "Wine Quality", Ref: "uciml/red-wine-quality-cortez-et-al-2009", Description: "Red wine quality (1599 rows, 12 columns)", Size: "~30 KB"},
}

// Catalog lists suggested datasets.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// RulesURL returns the page where the rules for ref are accepted.
func RulesURL(ref string) string {
	if isCompetition(ref) {
		return "https://www.kaggle.com/competitions/" + ref[2:]
	}
	return "https://www.kaggle.com/datasets/" + ref
}
