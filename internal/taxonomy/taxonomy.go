// Package taxonomy defines the closed category tree that harvested
// questions are filed under. The tree is fixed at build time: every
// subcategory belongs to exactly one main category.
package taxonomy

import "strings"

// Main category names.
const (
	MathDiagnostic   = "Math Diagnostic Test"
	VerbalDiagnostic = "Verbal Diagnostic Test"
	QuantSection     = "Quantitative Section"
	VerbalSection    = "Verbal Section"
)

// Question-type folder names. For diagnostic tests these double as
// subcategories; for the quant section they are leaf subfolders under
// each topic subcategory.
const (
	TypeQCQ = "Quantitative Comparison (QCQ)"
	TypePS  = "Problem Solving (PS)"
	TypeMAC = "Multiple Answer Choices (MAC)"
	TypeNE  = "Numeric Entry (NE)"
	TypeDI  = "Data Interpretation (DI)"
	TypeTC  = "Text Completion (TC)"
	TypeSE  = "Sentence Equivalence (SE)"
	TypeRC  = "Reading Comprehension (RC)"

	TypeUnknown = "Unknown"
)

// Label is a (main category, subcategory) pair.
type Label struct {
	Main string
	Sub  string
}

// String renders the label the way run logs and index previews show it.
func (l Label) String() string {
	if l.Sub == "" {
		return l.Main
	}
	return l.Main + " > " + l.Sub
}

// QuantQuestionTypes are the question-type subfolders created under every
// Quantitative Section topic.
var QuantQuestionTypes = []string{TypeQCQ, TypePS, TypeMAC, TypeNE, TypeDI}

// Tree maps each main category to its ordered subcategory list.
var Tree = map[string][]string{
	MathDiagnostic: {TypeQCQ, TypePS, TypeMAC, TypeNE, TypeDI},
	VerbalDiagnostic: {
		TypeTC, TypeSE, TypeRC,
	},
	QuantSection: {
		"Arithmetic",
		"Exponents and Roots",
		"Linear and Quadratic Equations",
		"Functions, Formulas, and Sequences",
		"Inequalities and Absolute Values",
		"Divisibility and Primes",
		"Number Properties",
		"Fractions and Decimals",
		"Percents",
		"Ratios",
		"Word Problems",
		"Two Variables Word Problems",
		"Averages, Weighted Averages, Median, and Mode",
		"Standard Deviation and Normal Distribution",
		"Data Interpretation",
		"Triangles",
		"Polygons and Rectangular Solids",
		"Circles and Cylinders",
		"Coordinate Geometry",
		"Mixed Geometry",
		"Rates and Work",
		"Probability, Combinatorics, and Overlapping Sets",
		"Advanced Quant",
		"Quant Practice Sections",
		"Quant Practice Adaptive Sections",
	},
	VerbalSection: {
		"Text Completion",
		"Sentence Equivalence",
		"Reading Comprehension",
		"Passage Paragraph Argument",
		"Verbal Practice Sections",
		"Verbal Practice Adaptive Sections",
	},
}

// MainCategories lists the main categories in filing order.
var MainCategories = []string{MathDiagnostic, VerbalDiagnostic, QuantSection, VerbalSection}

// SectionFolders maps styled index-page headers ("GRE Arithmetic" etc.)
// to their quant subcategory folder.
var SectionFolders = map[string]string{
	"GRE Arithmetic":               "Arithmetic",
	"GRE Algebra & Word Problems":  "Word Problems",
	"GRE Algebra":                  "Word Problems",
	"GRE Geometry":                 "Triangles",
	"GRE Data Analysis":            "Data Interpretation",
}

// SubsectionAliases maps topic headings that appear on the index page
// under different names than their folder.
var SubsectionAliases = map[string]string{
	"Graphs & Illustrations":               "Data Interpretation",
	"Overlapping Sets":                     "Probability, Combinatorics, and Overlapping Sets",
	"Sequence and Series":                  "Functions, Formulas, and Sequences",
	"SIMPLE INTEREST AND COMPOUND INTEREST": "Percents",
	"Rate and Time":                        "Rates and Work",
	"Statistic":                            "Averages, Weighted Averages, Median, and Mode",
}

// Valid reports whether the label exists in the tree. Labels with an
// empty subcategory are valid if the main category exists.
func Valid(l Label) bool {
	subs, ok := Tree[l.Main]
	if !ok {
		return false
	}
	if l.Sub == "" {
		return true
	}
	for _, s := range subs {
		if s == l.Sub {
			return true
		}
	}
	return false
}

// MainOf returns the main category that owns the given subcategory, or ""
// when the subcategory is unknown. Subcategory names are unique across
// main categories, so the answer is unambiguous.
func MainOf(sub string) string {
	for _, main := range MainCategories {
		for _, s := range Tree[main] {
			if s == sub {
				return main
			}
		}
	}
	return ""
}

// NormalizeQuantSubsection maps a detected quant topic heading (in any
// case) to its canonical folder name, or "" if it is not a quant topic.
func NormalizeQuantSubsection(name string) string {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, sub := range Tree[QuantSection] {
		if strings.ToLower(sub) == needle {
			return sub
		}
	}
	for alias, folder := range SubsectionAliases {
		if strings.ToLower(alias) == needle {
			return folder
		}
	}
	return ""
}

// QuestionTypeFolder maps any question-type spelling ("QCQ", "Numeric
// Entry (NE)", ...) to its canonical folder, defaulting to Problem
// Solving the way the archive tree does.
func QuestionTypeFolder(questionType string) string {
	switch {
	case strings.Contains(questionType, "Quantitative Comparison") || questionType == "QCQ":
		return TypeQCQ
	case strings.Contains(questionType, "Multiple Answer Choices") || questionType == "MAC":
		return TypeMAC
	case strings.Contains(questionType, "Numeric Entry") || questionType == "NE":
		return TypeNE
	case strings.Contains(questionType, "Data Interpretation") || questionType == "DI":
		return TypeDI
	default:
		return TypePS
	}
}
