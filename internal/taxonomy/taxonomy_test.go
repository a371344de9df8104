package taxonomy

import "testing"

func TestTreeCoversAllMains(t *testing.T) {
	for _, main := range MainCategories {
		subs, ok := Tree[main]
		if !ok {
			t.Errorf("main category %q missing from tree", main)
		}
		if len(subs) == 0 {
			t.Errorf("main category %q has no subcategories", main)
		}
	}
}

func TestSubcategoriesAreUnique(t *testing.T) {
	seen := make(map[string]string)
	for _, main := range MainCategories {
		for _, sub := range Tree[main] {
			if prev, ok := seen[sub]; ok && prev != main {
				t.Errorf("subcategory %q appears under both %q and %q", sub, prev, main)
			}
			seen[sub] = main
		}
	}
}

func TestValid(t *testing.T) {
	cases := []struct {
		label Label
		want  bool
	}{
		{Label{Main: QuantSection, Sub: "Arithmetic"}, true},
		{Label{Main: QuantSection, Sub: ""}, true},
		{Label{Main: MathDiagnostic, Sub: TypeQCQ}, true},
		{Label{Main: VerbalSection, Sub: "Text Completion"}, true},
		{Label{Main: QuantSection, Sub: "Organic Chemistry"}, false},
		{Label{Main: "GMAT Section", Sub: "Arithmetic"}, false},
		{Label{Main: VerbalSection, Sub: "Arithmetic"}, false},
	}
	for _, tc := range cases {
		if got := Valid(tc.label); got != tc.want {
			t.Errorf("Valid(%v) = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestMainOf(t *testing.T) {
	if got := MainOf("Arithmetic"); got != QuantSection {
		t.Errorf("MainOf(Arithmetic) = %q, want %q", got, QuantSection)
	}
	if got := MainOf("Reading Comprehension"); got != VerbalSection {
		t.Errorf("MainOf(Reading Comprehension) = %q, want %q", got, VerbalSection)
	}
	if got := MainOf("Astrology"); got != "" {
		t.Errorf("MainOf(Astrology) = %q, want empty", got)
	}
}

func TestNormalizeQuantSubsection(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Arithmetic", "Arithmetic"},
		{"arithmetic", "Arithmetic"},
		{"  Percents  ", "Percents"},
		{"Overlapping Sets", "Probability, Combinatorics, and Overlapping Sets"},
		{"Rate and Time", "Rates and Work"},
		{"Statistic", "Averages, Weighted Averages, Median, and Mode"},
		{"SIMPLE INTEREST AND COMPOUND INTEREST", "Percents"},
		{"Graphs & Illustrations", "Data Interpretation"},
		{"Sequence and Series", "Functions, Formulas, and Sequences"},
		{"Quantum Mechanics", ""},
	}
	for _, tc := range cases {
		if got := NormalizeQuantSubsection(tc.in); got != tc.want {
			t.Errorf("NormalizeQuantSubsection(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestQuestionTypeFolder(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{TypeQCQ, TypeQCQ},
		{"QCQ", TypeQCQ},
		{"MAC", TypeMAC},
		{TypeNE, TypeNE},
		{"DI", TypeDI},
		{TypePS, TypePS},
		{"", TypePS},
		{"Unknown", TypePS},
	}
	for _, tc := range cases {
		if got := QuestionTypeFolder(tc.in); got != tc.want {
			t.Errorf("QuestionTypeFolder(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLabelString(t *testing.T) {
	l := Label{Main: QuantSection, Sub: "Percents"}
	if got := l.String(); got != "Quantitative Section > Percents" {
		t.Errorf("String() = %q", got)
	}
	bare := Label{Main: VerbalSection}
	if got := bare.String(); got != VerbalSection {
		t.Errorf("String() = %q", got)
	}
}
