package filename

import (
	"testing"

	"github.com/ffcpay/statement-query/internal/domain/model"
)

// staticSchemes — фиксированный справочник для тестов.
type staticSchemes map[int]string

func (s staticSchemes) Abbreviation(id int) (string, bool) {
	a, ok := s[id]
	return a, ok
}

var testSchemes = staticSchemes{1: "SFI", 6: "BPS"}

// TestParse проверяет разбор имён файлов.
func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   Parsed
	}{
		{
			name:   "с папкой outbound",
			input:  "outbound/FFC_PaymentDelinkedStatement_SFI_2024_1100021264_2025081908254124.pdf",
			wantOK: true,
			want:   Parsed{Scheme: "SFI", Year: "2024", FRN: "1100021264", Timestamp: "2025081908254124"},
		},
		{
			name:   "без папки",
			input:  "FFC_PaymentDelinkedStatement_BPS_2023_1234567890_2024010100000000.pdf",
			wantOK: true,
			want:   Parsed{Scheme: "BPS", Year: "2023", FRN: "1234567890", Timestamp: "2024010100000000"},
		},
		{
			name:   "верхний регистр расширения не отрезается",
			input:  "FFC_PaymentDelinkedStatement_SFI_2024_1_20250101.PDF",
			wantOK: true,
			want:   Parsed{Scheme: "SFI", Year: "2024", FRN: "1", Timestamp: "20250101.PDF"},
		},
		{
			name:   "слишком мало сегментов",
			input:  "outbound/FFC_PaymentDelinkedStatement_SFI_2024.pdf",
			wantOK: false,
		},
		{
			name:   "пустая строка",
			input:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, ожидалось %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if *got != tt.want {
				t.Errorf("Parse(%q) = %+v, ожидалось %+v", tt.input, *got, tt.want)
			}
		})
	}
}

// TestBuildParse_RoundTrip проверяет, что построенное имя разбирается обратно.
func TestBuildParse_RoundTrip(t *testing.T) {
	name := Build("SFI", "2024", "1100021264", "2025081908254124")
	if name != "FFC_PaymentDelinkedStatement_SFI_2024_1100021264_2025081908254124.pdf" {
		t.Fatalf("Build = %q", name)
	}

	p, ok := Parse(StoragePath(name))
	if !ok {
		t.Fatalf("Parse(%q): имя не разобрано", name)
	}
	want := Parsed{Scheme: "SFI", Year: "2024", FRN: "1100021264", Timestamp: "2025081908254124"}
	if *p != want {
		t.Errorf("round-trip = %+v, ожидалось %+v", *p, want)
	}
}

// TestStoragePath проверяет добавление папки outbound/.
func TestStoragePath(t *testing.T) {
	if got := StoragePath("X.pdf"); got != "outbound/X.pdf" {
		t.Errorf("StoragePath(X.pdf) = %q", got)
	}
	if got := StoragePath("outbound/X.pdf"); got != "outbound/X.pdf" {
		t.Errorf("StoragePath(outbound/X.pdf) = %q", got)
	}
	if got := StoragePath("archive/X.pdf"); got != "archive/X.pdf" {
		t.Errorf("StoragePath(archive/X.pdf) = %q", got)
	}
}

// TestIsPDF проверяет регистрозависимую проверку расширения.
func TestIsPDF(t *testing.T) {
	cases := map[string]bool{
		"outbound/a.pdf": true,
		"outbound/a.PDF": false,
		"outbound/a.txt": false,
		"outbound/":      false,
	}
	for in, want := range cases {
		if got := IsPDF(in); got != want {
			t.Errorf("IsPDF(%q) = %v, ожидалось %v", in, got, want)
		}
	}
}

// TestMatches проверяет сопоставление с критериями (нулевые поля — wildcard).
func TestMatches(t *testing.T) {
	p := &Parsed{Scheme: "SFI", Year: "2024", FRN: "1100021264", Timestamp: "2025081908254124"}

	tests := []struct {
		name     string
		criteria model.SearchCriteria
		want     bool
	}{
		{"пустые критерии", model.SearchCriteria{}, true},
		{"совпадение схемы", model.SearchCriteria{SchemeID: 1}, true},
		{"другая схема", model.SearchCriteria{SchemeID: 6}, false},
		{"неизвестная схема", model.SearchCriteria{SchemeID: 99}, false},
		{"совпадение года", model.SearchCriteria{MarketingYear: 2024}, true},
		{"другой год", model.SearchCriteria{MarketingYear: 2023}, false},
		{"совпадение FRN", model.SearchCriteria{FRN: "1100021264"}, true},
		{"другой FRN", model.SearchCriteria{FRN: "1"}, false},
		{"другая метка времени", model.SearchCriteria{Timestamp: "1"}, false},
		{
			"все поля",
			model.SearchCriteria{SchemeID: 1, MarketingYear: 2024, FRN: "1100021264", Timestamp: "2025081908254124"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(p, tt.criteria, testSchemes); got != tt.want {
				t.Errorf("Matches(%+v) = %v, ожидалось %v", tt.criteria, got, tt.want)
			}
		})
	}

	if Matches(nil, model.SearchCriteria{}, testSchemes) {
		t.Error("Matches(nil) должен возвращать false")
	}
}

// TestBuildPrefix проверяет построение префикса листинга.
func TestBuildPrefix(t *testing.T) {
	tests := []struct {
		name     string
		criteria model.SearchCriteria
		want     string
	}{
		{"без схемы", model.SearchCriteria{FRN: "1100021264"}, "outbound/FFC_PaymentDelinkedStatement_"},
		{"неизвестная схема", model.SearchCriteria{SchemeID: 99}, "outbound"},
		{"только схема", model.SearchCriteria{SchemeID: 1}, "outbound/FFC_PaymentDelinkedStatement_SFI_"},
		{
			"схема и год",
			model.SearchCriteria{SchemeID: 1, MarketingYear: 2024},
			"outbound/FFC_PaymentDelinkedStatement_SFI_2024_",
		},
		{
			"пропуск года обрывает префикс",
			model.SearchCriteria{SchemeID: 1, FRN: "1100021264"},
			"outbound/FFC_PaymentDelinkedStatement_SFI_",
		},
		{
			"все поля",
			model.SearchCriteria{SchemeID: 1, MarketingYear: 2024, FRN: "1100021264", Timestamp: "2025081908254124"},
			"outbound/FFC_PaymentDelinkedStatement_SFI_2024_1100021264_2025081908254124",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildPrefix(tt.criteria, testSchemes); got != tt.want {
				t.Errorf("BuildPrefix = %q, ожидалось %q", got, tt.want)
			}
		})
	}
}

// TestRecord проверяет сборку записи из имени файла.
func TestRecord(t *testing.T) {
	rec := Record("outbound/FFC_PaymentDelinkedStatement_SFI_2024_1100021264_2025081908254124.pdf")
	if rec.Scheme != "SFI" || rec.Year != "2024" || rec.FRN != "1100021264" || rec.Timestamp != "2025081908254124" {
		t.Errorf("Record = %+v", rec)
	}

	rec = Record("outbound/report.pdf")
	if rec.Filename != "outbound/report.pdf" || rec.Scheme != "" {
		t.Errorf("Record(неканоническое имя) = %+v", rec)
	}
}
